package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-payments/internal/config"
	"ms-payments/internal/logger"
	"ms-payments/internal/models"
)

// Producer streams payment lifecycle events, one writer per topic.
type Producer struct {
	events   *kafka.Writer
	success  *kafka.Writer
	failed   *kafka.Writer
	refunded *kafka.Writer
	logger   *logger.Logger
}

func NewProducer(cfg config.KafkaConfig, log *logger.Logger) *Producer {
	writer := func(topic string) *kafka.Writer {
		return kafka.NewWriter(kafka.WriterConfig{
			Brokers: cfg.Brokers,
			Topic:   topic,
		})
	}

	return &Producer{
		events:   writer(cfg.Topics.PaymentEvents),
		success:  writer(cfg.Topics.PaymentSuccess),
		failed:   writer(cfg.Topics.PaymentFailed),
		refunded: writer(cfg.Topics.PaymentRefunded),
		logger:   log,
	}
}

func (p *Producer) publish(writer *kafka.Writer, event models.PaymentEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.logger.LogKafka("PUBLISH", writer.Topic, fmt.Sprintf("%s order=%s", event.Type, event.OrderID))

	return writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(event.OrderID),
			Value: msgBytes,
		},
	)
}

// PublishCheckoutInitiated streams the start of a checkout attempt.
func (p *Producer) PublishCheckoutInitiated(event models.PaymentEvent) error {
	return p.publish(p.events, event)
}

// PublishPaymentSucceeded streams a settled payment.
func (p *Producer) PublishPaymentSucceeded(event models.PaymentEvent) error {
	return p.publish(p.success, event)
}

// PublishPaymentFailed streams a declined or expired payment.
func (p *Producer) PublishPaymentFailed(event models.PaymentEvent) error {
	return p.publish(p.failed, event)
}

// PublishPaymentRefunded streams a full or partial refund.
func (p *Producer) PublishPaymentRefunded(event models.PaymentEvent) error {
	return p.publish(p.refunded, event)
}

// Close flushes and closes all writers.
func (p *Producer) Close() error {
	for _, w := range []*kafka.Writer{p.events, p.success, p.failed, p.refunded} {
		if err := w.Close(); err != nil {
			return err
		}
	}
	return nil
}
