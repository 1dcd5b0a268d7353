package kafka

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-payments/internal/config"
	"ms-payments/internal/logger"
)

// EnsureTopicsExist creates the payment topics if missing. Broker-side
// auto-creation is often disabled, so the service bootstraps its own.
func EnsureTopicsExist(cfg config.KafkaConfig, log *logger.Logger) error {
	conn, err := kafka.Dial("tcp", cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial kafka broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to find kafka controller: %w", err)
	}
	controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("failed to dial kafka controller: %w", err)
	}
	defer controllerConn.Close()

	topics := []string{
		cfg.Topics.PaymentEvents,
		cfg.Topics.PaymentSuccess,
		cfg.Topics.PaymentFailed,
		cfg.Topics.PaymentRefunded,
	}

	for _, topic := range topics {
		err := controllerConn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
		if err != nil {
			if err.Error() == "kafka server: topic already exists" {
				continue
			}
			log.Error("KAFKA", fmt.Sprintf("Error creating topic %s: %v", topic, err))
			continue
		}
		log.LogKafka("CREATE_TOPIC", topic, "created")
	}

	// Give the cluster a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
	return nil
}
