package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-payments/internal/conekta"
	"ms-payments/internal/logger"
	"ms-payments/internal/models"
	"ms-payments/internal/store"
)

func expiredEntry() PendingEntry {
	return PendingEntry{
		OrderID:        "ord-1",
		ConektaOrderID: "ord_conekta_1",
		Deadline:       time.Now().Add(-time.Hour),
	}
}

func newTestSweeper(ticketing *mockTicketing, gateway *mockGateway, tracker *mockTracker, journal store.Store) *Sweeper {
	return NewSweeper(ticketing, gateway, tracker, journal, testAppConfig(), logger.NewLogger())
}

func TestSweepExpiresAbandonedOrder(t *testing.T) {
	ticketing := new(mockTicketing)
	gateway := new(mockGateway)
	tracker := new(mockTracker)
	journal := new(mockJournal)

	tracker.On("Due", mock.Anything, mock.Anything, sweepBatchSize).Return([]PendingEntry{expiredEntry()}, nil)
	gateway.On("GetOrder", mock.Anything, "ord_conekta_1").
		Return(&models.PaymentOrder{ID: "ord_conekta_1", PaymentStatus: models.PaymentPending}, nil)
	gateway.On("CancelOrder", mock.Anything, "ord_conekta_1").
		Return(&models.PaymentOrder{ID: "ord_conekta_1", PaymentStatus: models.PaymentExpired}, nil)
	ticketing.On("UpdateOrder", mock.Anything, "ord-1", models.OrderUpdate{Status: models.OrderCancelled}).Return(nil)
	ticketing.On("ReleaseInventory", mock.Anything, "ord-1").Return(nil)
	journal.On("UpdateAttemptStatus", mock.Anything, "ord-1", store.AttemptExpired).Return(nil)
	tracker.On("Remove", mock.Anything, "ord-1", "ord_conekta_1").Return(nil)

	newTestSweeper(ticketing, gateway, tracker, journal).Sweep(context.Background())

	ticketing.AssertExpectations(t)
	gateway.AssertExpectations(t)
	tracker.AssertExpectations(t)
	journal.AssertExpectations(t)
}

func TestSweepSkipsSettledOrder(t *testing.T) {
	ticketing := new(mockTicketing)
	gateway := new(mockGateway)
	tracker := new(mockTracker)

	tracker.On("Due", mock.Anything, mock.Anything, sweepBatchSize).Return([]PendingEntry{expiredEntry()}, nil)
	gateway.On("GetOrder", mock.Anything, "ord_conekta_1").
		Return(&models.PaymentOrder{ID: "ord_conekta_1", PaymentStatus: models.PaymentPaid}, nil)
	tracker.On("Remove", mock.Anything, "ord-1", "ord_conekta_1").Return(nil)

	newTestSweeper(ticketing, gateway, tracker, nil).Sweep(context.Background())

	// A settled order is dropped without cancelling anything.
	gateway.AssertNotCalled(t, "CancelOrder", mock.Anything, mock.Anything)
	ticketing.AssertNotCalled(t, "UpdateOrder", mock.Anything, mock.Anything, mock.Anything)
	ticketing.AssertNotCalled(t, "ReleaseInventory", mock.Anything, mock.Anything)
	tracker.AssertExpectations(t)
}

func TestSweepDropsUnknownProcessorOrder(t *testing.T) {
	ticketing := new(mockTicketing)
	gateway := new(mockGateway)
	tracker := new(mockTracker)

	tracker.On("Due", mock.Anything, mock.Anything, sweepBatchSize).Return([]PendingEntry{expiredEntry()}, nil)
	gateway.On("GetOrder", mock.Anything, "ord_conekta_1").
		Return(nil, &conekta.GatewayError{Status: http.StatusNotFound, Message: "not found"})
	tracker.On("Remove", mock.Anything, "ord-1", "ord_conekta_1").Return(nil)

	newTestSweeper(ticketing, gateway, tracker, nil).Sweep(context.Background())

	gateway.AssertNotCalled(t, "CancelOrder", mock.Anything, mock.Anything)
	tracker.AssertExpectations(t)
}

func TestSweepRetriesOnTransientFetchFailure(t *testing.T) {
	ticketing := new(mockTicketing)
	gateway := new(mockGateway)
	tracker := new(mockTracker)

	tracker.On("Due", mock.Anything, mock.Anything, sweepBatchSize).Return([]PendingEntry{expiredEntry()}, nil)
	gateway.On("GetOrder", mock.Anything, "ord_conekta_1").Return(nil, errors.New("timeout"))

	newTestSweeper(ticketing, gateway, tracker, nil).Sweep(context.Background())

	// The entry stays tracked so the next pass retries it.
	tracker.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything, mock.Anything)
	gateway.AssertNotCalled(t, "CancelOrder", mock.Anything, mock.Anything)
}

func TestSweepKeepsEntryWhenCancelFails(t *testing.T) {
	ticketing := new(mockTicketing)
	gateway := new(mockGateway)
	tracker := new(mockTracker)

	tracker.On("Due", mock.Anything, mock.Anything, sweepBatchSize).Return([]PendingEntry{expiredEntry()}, nil)
	gateway.On("GetOrder", mock.Anything, "ord_conekta_1").
		Return(&models.PaymentOrder{ID: "ord_conekta_1", PaymentStatus: models.PaymentPending}, nil)
	gateway.On("CancelOrder", mock.Anything, "ord_conekta_1").Return(nil, errors.New("processor down"))

	newTestSweeper(ticketing, gateway, tracker, nil).Sweep(context.Background())

	// Local state is untouched until the processor cancel lands.
	ticketing.AssertNotCalled(t, "UpdateOrder", mock.Anything, mock.Anything, mock.Anything)
	ticketing.AssertNotCalled(t, "ReleaseInventory", mock.Anything, mock.Anything)
	tracker.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything, mock.Anything)
}

func TestSweepToleratesListFailure(t *testing.T) {
	gateway := new(mockGateway)
	tracker := new(mockTracker)

	tracker.On("Due", mock.Anything, mock.Anything, sweepBatchSize).Return(nil, errors.New("redis gone"))

	require.NotPanics(t, func() {
		newTestSweeper(new(mockTicketing), gateway, tracker, nil).Sweep(context.Background())
	})
	gateway.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
}
