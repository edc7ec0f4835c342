package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-escrow/app/entity"
	"github.com/vibast-solutions/ms-go-escrow/app/provider"
)

func strPtr(v string) *string {
	return &v
}

func TestRunReconcileBatchJournalsCurrentStatus(t *testing.T) {
	s, processor, events := newLiveService(t)
	processor.payments["pi_1"] = &provider.PaymentView{
		ID:             "pi_1",
		Currency:       "USD",
		State:          provider.StateCaptured,
		Amount:         10000,
		CapturedAmount: 10000,
		RefundedAmount: 2500,
	}
	events.listed = []*entity.EscrowEvent{
		{OrderID: "order-1", PaymentReferenceID: "pi_1", Status: strPtr("CAPTURED")},
		{OrderID: "order-2", PaymentReferenceID: "pi_gone", Status: strPtr("HELD")},
		{OrderID: "order-3", PaymentReferenceID: " "},
	}

	started := time.Now().UTC()
	if err := s.RunReconcileBatch(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if events.lastLimit != 50 {
		t.Fatalf("expected batch size 50, got %d", events.lastLimit)
	}
	if events.lastBefore.After(started.Add(-15 * time.Minute).Add(time.Second)) {
		t.Fatalf("expected stale cutoff 15 minutes back, got %v", events.lastBefore)
	}
	if len(events.events) != 2 {
		t.Fatalf("expected 2 journal rows, got %d", len(events.events))
	}

	first := events.events[0]
	if first.EventType != eventPaymentReconciled || first.PaymentReferenceID != "pi_1" || first.OrderID != "order-1" {
		t.Fatalf("unexpected first row: %+v", first)
	}
	if first.Status == nil || *first.Status != string(entity.StatusPartiallyRefunded) || first.Amount != 7500 {
		t.Fatalf("expected PARTIALLY_REFUNDED with 7500 captured, got %+v", first)
	}

	second := events.events[1]
	if second.Status == nil || *second.Status != string(entity.StatusFailed) {
		t.Fatalf("expected unknown payment to be parked as FAILED, got %+v", second)
	}
	if second.FailureKind == nil || *second.FailureKind != string(entity.FailureNotFound) {
		t.Fatalf("expected NOT_FOUND failure kind, got %+v", second)
	}
}

func TestRunReconcileBatchKeepsFirstTransportError(t *testing.T) {
	s, processor, events := newLiveService(t)
	processor.getErr = fmt.Errorf("%w: dial tcp: i/o timeout", provider.ErrProcessorUnavailable)
	events.listed = []*entity.EscrowEvent{
		{OrderID: "order-1", PaymentReferenceID: "pi_1"},
		{OrderID: "order-2", PaymentReferenceID: "pi_2"},
	}

	err := s.RunReconcileBatch(context.Background())
	if !errors.Is(err, provider.ErrProcessorUnavailable) {
		t.Fatalf("expected ErrProcessorUnavailable, got %v", err)
	}
	if processor.count("GetPayment") != 2 {
		t.Fatalf("expected every payment to be attempted, got %d reads", processor.count("GetPayment"))
	}
	if len(events.events) != 0 {
		t.Fatalf("expected no journal rows, got %d", len(events.events))
	}
}

func TestRunReconcileBatchListError(t *testing.T) {
	s, _, events := newLiveService(t)
	events.listErr = errors.New("db down")

	if err := s.RunReconcileBatch(context.Background()); err == nil {
		t.Fatal("expected list error")
	}
}

func TestRunReconcileBatchWithoutJournal(t *testing.T) {
	s := NewEscrowService(newFakeProcessor(), nil, liveConfig())
	if err := s.RunReconcileBatch(context.Background()); err != nil {
		t.Fatalf("expected no-op without journal, got %v", err)
	}
}

func TestRunReconcileBatchJournalWriteError(t *testing.T) {
	s, processor, events := newLiveService(t)
	processor.payments["pi_1"] = &provider.PaymentView{ID: "pi_1", State: provider.StateAuthorized, Amount: 500}
	events.listed = []*entity.EscrowEvent{{OrderID: "order-1", PaymentReferenceID: "pi_1"}}
	writeErr := errors.New("insert failed")
	events.createFn = func(*entity.EscrowEvent) error { return writeErr }

	if err := s.RunReconcileBatch(context.Background()); !errors.Is(err, writeErr) {
		t.Fatalf("expected journal write error, got %v", err)
	}
}
