package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"github.com/vibast-solutions/ms-go-escrow/app/metrics"
)

type BreakerConfig struct {
	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32
	// Interval clears the failure counts while closed; zero never clears.
	Interval time.Duration
	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration
	// FailureThreshold is the number of consecutive transport failures that
	// opens the breaker.
	FailureThreshold uint32
}

// BreakerProcessor fails fast with ErrProcessorUnavailable once the wrapped
// processor keeps failing at the transport level. Processor refusals
// (*Error) and caller cancellations count as successes.
type BreakerProcessor struct {
	next Processor
	cb   *gobreaker.CircuitBreaker[any]
}

func NewBreakerProcessor(next Processor, cfg BreakerConfig, logger logrus.FieldLogger) *BreakerProcessor {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	maxRequests := cfg.MaxRequests
	if maxRequests == 0 {
		maxRequests = 1
	}

	settings := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: maxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if _, ok := AsError(err); ok {
				return true
			}
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetBreakerState(name, int(to))
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"processor": name,
					"from":      from.String(),
					"to":        to.String(),
				}).Warn("processor circuit breaker state changed")
			}
		},
	}

	return &BreakerProcessor{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[any](settings),
	}
}

func (b *BreakerProcessor) Name() string {
	return b.next.Name()
}

func (b *BreakerProcessor) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerProcessor) CreateAuthorization(ctx context.Context, input *AuthorizationInput) (*Authorization, error) {
	return execute(b, func() (*Authorization, error) {
		return b.next.CreateAuthorization(ctx, input)
	})
}

func (b *BreakerProcessor) GetPayment(ctx context.Context, paymentID string) (*PaymentView, error) {
	return execute(b, func() (*PaymentView, error) {
		return b.next.GetPayment(ctx, paymentID)
	})
}

func (b *BreakerProcessor) CapturePayment(ctx context.Context, paymentID string) (*PaymentView, error) {
	return execute(b, func() (*PaymentView, error) {
		return b.next.CapturePayment(ctx, paymentID)
	})
}

func (b *BreakerProcessor) CancelPayment(ctx context.Context, paymentID, reason string) (*PaymentView, error) {
	return execute(b, func() (*PaymentView, error) {
		return b.next.CancelPayment(ctx, paymentID, reason)
	})
}

func (b *BreakerProcessor) CreateTransfer(ctx context.Context, input *TransferInput) (*Transfer, error) {
	return execute(b, func() (*Transfer, error) {
		return b.next.CreateTransfer(ctx, input)
	})
}

func (b *BreakerProcessor) ReverseTransfer(ctx context.Context, transferID string, amount int64, orderID string) (*TransferReversal, error) {
	return execute(b, func() (*TransferReversal, error) {
		return b.next.ReverseTransfer(ctx, transferID, amount, orderID)
	})
}

func (b *BreakerProcessor) CreateRefund(ctx context.Context, input *RefundInput) (*Refund, error) {
	return execute(b, func() (*Refund, error) {
		return b.next.CreateRefund(ctx, input)
	})
}

func (b *BreakerProcessor) CreateAccount(ctx context.Context, input *AccountInput) (*Account, error) {
	return execute(b, func() (*Account, error) {
		return b.next.CreateAccount(ctx, input)
	})
}

func (b *BreakerProcessor) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	return execute(b, func() (*Account, error) {
		return b.next.GetAccount(ctx, accountID)
	})
}

func (b *BreakerProcessor) CreateOnboardingLink(ctx context.Context, accountID string) (string, error) {
	return execute(b, func() (string, error) {
		return b.next.CreateOnboardingLink(ctx, accountID)
	})
}

func (b *BreakerProcessor) GetBalance(ctx context.Context, accountID string) (*Balance, error) {
	return execute(b, func() (*Balance, error) {
		return b.next.GetBalance(ctx, accountID)
	})
}

// ParseWebhook is local signature verification and bypasses the breaker.
func (b *BreakerProcessor) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	return b.next.ParseWebhook(payload, signature)
}

func execute[T any](b *BreakerProcessor, fn func() (T, error)) (T, error) {
	var zero T

	result, err := b.cb.Execute(func() (any, error) {
		value, err := fn()
		return value, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %s", ErrProcessorUnavailable, err)
		}
		return zero, err
	}

	value, ok := result.(T)
	if !ok {
		return zero, nil
	}
	return value, nil
}
