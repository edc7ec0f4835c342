package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-escrow/app/entity"
)

const eventPaymentReconciled = "payment_reconciled"

// RunReconcileBatch re-reads journaled payments that can still change state
// and journals what the processor reports now. Every visited payment gets a
// fresh row so the next batch moves on to other payments.
func (s *EscrowService) RunReconcileBatch(ctx context.Context) error {
	if s.eventRepo == nil {
		return nil
	}

	now := time.Now().UTC()
	before := now.Add(-s.escrowCfg.ReconcileStaleAfter)
	items, err := s.eventRepo.ListLatestNonTerminal(ctx, before, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, item := range items {
		if item == nil || strings.TrimSpace(item.PaymentReferenceID) == "" {
			continue
		}

		report, err := s.GetPaymentStatus(ctx, item.PaymentReferenceID)
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}

		entry := s.logger.WithFields(logrus.Fields{
			"payment_reference_id": item.PaymentReferenceID,
			"order_id":             item.OrderID,
		})
		if report.Failure != nil {
			entry.WithField("failure_kind", report.Failure.Kind).Warn("Reconcile could not read payment")
			if report.Failure.Kind != entity.FailureNotFound {
				continue
			}
		}

		event := &entity.EscrowEvent{
			OrderID:            item.OrderID,
			PaymentReferenceID: item.PaymentReferenceID,
			EventType:          eventPaymentReconciled,
			Amount:             report.CapturedAmount,
			CreatedAt:          now,
		}
		if report.Failure != nil {
			// Unknown to the processor: park it as failed so it leaves the batch.
			status := string(entity.StatusFailed)
			kind := string(report.Failure.Kind)
			event.Status = &status
			event.FailureKind = &kind
			event.Message = normalizeOptionalString(report.Failure.Message)
		} else {
			status := string(report.Status)
			event.Status = &status
			if item.Status != nil && *item.Status != status {
				entry.WithFields(logrus.Fields{
					"old_status": *item.Status,
					"new_status": status,
				}).Info("Payment status changed at processor")
			}
		}

		if err := s.eventRepo.Create(ctx, event); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

func keepFirstErr(current error, next error) error {
	if current != nil {
		return current
	}
	return next
}
