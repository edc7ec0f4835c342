package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-escrow/app/entity"
	"github.com/vibast-solutions/ms-go-escrow/app/factory"
	"github.com/vibast-solutions/ms-go-escrow/app/metrics"
	"github.com/vibast-solutions/ms-go-escrow/app/provider"
	"github.com/vibast-solutions/ms-go-escrow/app/repository"
)

const eventSellerAccountUpdated = "seller_account_updated"

type handleProviderCallbackRequest interface {
	GetProvider() string
	GetSignature() string
	GetPayload() string
}

type providerCallbackRepository interface {
	Create(ctx context.Context, callback *entity.ProviderCallback) error
	ExistsProcessed(ctx context.Context, provider, providerEventID string) (bool, error)
}

// CallbackService verifies processor webhooks and journals the ones that
// concern escrow payments or seller accounts.
type CallbackService struct {
	registry     *provider.Registry
	callbackRepo providerCallbackRepository
	eventRepo    escrowEventRepository
	logger       logrus.FieldLogger
}

func NewCallbackService(registry *provider.Registry, callbackRepo providerCallbackRepository, eventRepo escrowEventRepository) *CallbackService {
	return &CallbackService{
		registry:     registry,
		callbackRepo: callbackRepo,
		eventRepo:    eventRepo,
		logger:       factory.NewModuleLogger("callback-service"),
	}
}

func (s *CallbackService) HandleProviderCallback(ctx context.Context, req handleProviderCallbackRequest) (*provider.WebhookEvent, error) {
	providerName := strings.ToLower(strings.TrimSpace(req.GetProvider()))
	processor, err := s.registry.Get(providerName)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, ErrProviderUnsupported
		}
		return nil, err
	}

	payload := []byte(req.GetPayload())
	signature := strings.TrimSpace(req.GetSignature())
	event, err := processor.ParseWebhook(payload, signature)
	if err != nil {
		s.persistRejected(ctx, providerName, req, fmt.Sprintf("provider callback validation failed: %v", err))
		metrics.RecordCallback(providerName, "rejected")
		return nil, ErrCallbackRejected
	}

	exists, err := s.callbackRepo.ExistsProcessed(ctx, providerName, event.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		metrics.RecordCallback(providerName, "duplicate")
		return event, ErrDuplicateCallback
	}

	now := time.Now().UTC()
	s.journal(ctx, event, now)

	eventID := event.ID
	err = s.callbackRepo.Create(ctx, &entity.ProviderCallback{
		Provider:        providerName,
		ProviderEventID: &eventID,
		EventType:       event.Type,
		Signature:       signature,
		PayloadJSON:     string(payload),
		Status:          entity.ProviderCallbackStatusProcessed,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		if errors.Is(err, repository.ErrCallbackAlreadyExists) {
			metrics.RecordCallback(providerName, "duplicate")
			return event, ErrDuplicateCallback
		}
		return nil, err
	}

	metrics.RecordCallback(providerName, "processed")
	return event, nil
}

func (s *CallbackService) journal(ctx context.Context, event *provider.WebhookEvent, now time.Time) {
	entry := s.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	})

	var journalEvent *entity.EscrowEvent
	switch {
	case event.Account != nil:
		status := sellerStatusOf(event.Account)
		entry.WithFields(logrus.Fields{
			"account_id":      status.AccountID,
			"requires_action": status.RequiresAction,
		}).Info("Seller account updated")

		message := fmt.Sprintf("account=%s charges=%t payouts=%t", status.AccountID, status.CanAcceptCharges, status.CanReceivePayouts)
		journalEvent = &entity.EscrowEvent{
			EventType: eventSellerAccountUpdated,
			Message:   &message,
		}
	case event.PaymentID != "":
		entry.WithField("payment_reference_id", event.PaymentID).Info("Payment notification received")
		journalEvent = &entity.EscrowEvent{
			PaymentReferenceID: event.PaymentID,
			EventType:          "provider_" + strings.ReplaceAll(event.Type, ".", "_"),
		}
	default:
		entry.Debug("Ignoring provider notification")
		return
	}

	if s.eventRepo == nil {
		return
	}
	eventID := event.ID
	journalEvent.ProviderEventID = &eventID
	journalEvent.CreatedAt = now
	_ = s.eventRepo.Create(ctx, journalEvent)
}

func (s *CallbackService) persistRejected(ctx context.Context, providerName string, req handleProviderCallbackRequest, reason string) {
	now := time.Now().UTC()
	_ = s.callbackRepo.Create(ctx, &entity.ProviderCallback{
		Provider:    providerName,
		Signature:   strings.TrimSpace(req.GetSignature()),
		PayloadJSON: req.GetPayload(),
		Status:      entity.ProviderCallbackStatusRejected,
		Error:       &reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}
