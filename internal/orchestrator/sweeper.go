package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-payments/internal/conekta"
	"ms-payments/internal/config"
	"ms-payments/internal/logger"
	"ms-payments/internal/models"
	"ms-payments/internal/store"
)

const sweepBatchSize = 100

// Sweeper cleans up orphaned pending orders: checkouts the customer
// abandoned without the processor ever sending a terminal webhook. It
// cancels the processor order, cancels the local order, and releases the
// reserved inventory.
type Sweeper struct {
	Ticketing TicketingAPI
	Gateway   PaymentGateway
	Pending   PendingTracker
	Journal   store.Store
	cfg       config.AppConfig
	logger    *logger.Logger
}

func NewSweeper(ticketing TicketingAPI, gateway PaymentGateway, pending PendingTracker, journal store.Store, cfg config.AppConfig, log *logger.Logger) *Sweeper {
	return &Sweeper{
		Ticketing: ticketing,
		Gateway:   gateway,
		Pending:   pending,
		Journal:   journal,
		cfg:       cfg,
		logger:    log,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	s.logger.Info("SWEEPER", fmt.Sprintf("Pending-order sweeper running every %s (TTL %s)", s.cfg.SweepInterval, s.cfg.PendingOrderTTL))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("SWEEPER", "Sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep processes one batch of expired entries.
func (s *Sweeper) Sweep(ctx context.Context) {
	entries, err := s.Pending.Due(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		s.logger.Error("SWEEPER", fmt.Sprintf("Failed to list due orders: %v", err))
		return
	}

	for _, entry := range entries {
		s.sweepOne(ctx, entry)
	}
}

func (s *Sweeper) sweepOne(ctx context.Context, entry PendingEntry) {
	paymentOrder, err := s.Gateway.GetOrder(ctx, entry.ConektaOrderID)
	if err != nil {
		var gwErr *conekta.GatewayError
		if errors.As(err, &gwErr) && gwErr.IsNotFound() {
			// Processor never heard of it; nothing left to clean up.
			s.logger.Warn("SWEEPER", fmt.Sprintf("Processor order %s not found, dropping entry", entry.ConektaOrderID))
			s.remove(ctx, entry)
			return
		}
		// Transient failure, the entry stays for the next pass.
		s.logger.Error("SWEEPER", fmt.Sprintf("Failed to fetch processor order %s: %v", entry.ConektaOrderID, err))
		return
	}

	if paymentOrder.PaymentStatus != models.PaymentPending {
		// A webhook settled it; the reconciler owns this path.
		s.remove(ctx, entry)
		return
	}

	s.logger.Info("SWEEPER", fmt.Sprintf("Expiring abandoned order %s (processor order %s)", entry.OrderID, entry.ConektaOrderID))

	if _, err := s.Gateway.CancelOrder(ctx, entry.ConektaOrderID); err != nil {
		s.logger.Error("SWEEPER", fmt.Sprintf("Failed to cancel processor order %s: %v", entry.ConektaOrderID, err))
		return
	}

	if err := s.Ticketing.UpdateOrder(ctx, entry.OrderID, models.OrderUpdate{Status: models.OrderCancelled}); err != nil {
		s.logger.Error("SWEEPER", fmt.Sprintf("Failed to cancel local order %s: %v", entry.OrderID, err))
	}

	if err := s.Ticketing.ReleaseInventory(ctx, entry.OrderID); err != nil {
		s.logger.Error("SWEEPER", fmt.Sprintf("Failed to release inventory for %s: %v", entry.OrderID, err))
	}

	if s.Journal != nil {
		if err := s.Journal.UpdateAttemptStatus(ctx, entry.OrderID, store.AttemptExpired); err != nil {
			s.logger.Error("STORE", fmt.Sprintf("Failed to journal expiry for %s: %v", entry.OrderID, err))
		}
	}

	s.remove(ctx, entry)
}

func (s *Sweeper) remove(ctx context.Context, entry PendingEntry) {
	if err := s.Pending.Remove(ctx, entry.OrderID, entry.ConektaOrderID); err != nil {
		s.logger.Error("SWEEPER", fmt.Sprintf("Failed to remove entry for %s: %v", entry.OrderID, err))
	}
}
