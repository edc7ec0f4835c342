package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode classifies a failure reported by the processor itself, as opposed
// to a transport failure.
type ErrorCode string

const (
	CodeNotFound          ErrorCode = "not_found"
	CodeInvalidState      ErrorCode = "invalid_state"
	CodeInvalidAmount     ErrorCode = "invalid_amount"
	CodeInsufficientFunds ErrorCode = "insufficient_funds"
	CodeInvalidAccount    ErrorCode = "invalid_account"
	CodeRejected          ErrorCode = "rejected"
)

var ErrProcessorUnavailable = errors.New("payment processor unavailable")

// Error is returned by a Processor when the processor answered and refused
// the request. Message is the processor's text, unmodified.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("processor error: code=%s message=%s", e.Code, e.Message)
}

func AsError(err error) (*Error, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}

// PaymentState is the processor-side state of an authorization.
type PaymentState int32

const (
	StateUnknown PaymentState = iota
	// StateAwaitingBuyer means the authorization exists but the buyer has not
	// completed it yet.
	StateAwaitingBuyer
	StateAuthorized
	StateCaptured
	StateCanceled
	StateFailed
)

type AuthorizationInput struct {
	OrderID            string
	Amount             int64
	Currency           string
	PlatformFee        int64
	DestinationAccount string
	Description        string
	Metadata           map[string]string
	IdempotencyKey     string
}

type Authorization struct {
	ID           string
	ClientSecret string
	State        PaymentState
	FailureMsg   string
}

// PaymentView is the processor's current view of an authorization and the
// money that flowed from it.
type PaymentView struct {
	ID       string
	Currency string
	State    PaymentState

	Amount         int64
	CapturedAmount int64
	RefundedAmount int64

	ChargeID    string
	Destination string

	// TransferID is the transfer that moved funds to the seller, created
	// either by destination routing on capture or by a manual release.
	TransferID             string
	TransferAmount         int64
	TransferReversedAmount int64

	// ReleaseTransferID is set once funds were moved by a manual release.
	ReleaseTransferID string

	FailureMsg string
}

type TransferInput struct {
	PaymentID          string
	ChargeID           string
	DestinationAccount string
	Amount             int64
	Currency           string
	OrderID            string
}

type Transfer struct {
	ID     string
	Amount int64
}

type TransferReversal struct {
	ID     string
	Amount int64
}

type RefundInput struct {
	PaymentID string
	Amount    int64
	Reason    string
	OrderID   string
}

type Refund struct {
	ID     string
	Amount int64
	Status string
}

type AccountInput struct {
	UserID       string
	Email        string
	BusinessName string
	Country      string
}

type Account struct {
	ID               string
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
}

type Balance struct {
	Available int64
	Pending   int64
}

type WebhookEvent struct {
	ID        string
	Type      string
	ObjectID  string
	PaymentID string
	AccountID string
	Account   *Account
}

// Processor is the capability set the escrow service needs from a payment
// processor.
type Processor interface {
	Name() string

	CreateAuthorization(ctx context.Context, input *AuthorizationInput) (*Authorization, error)
	GetPayment(ctx context.Context, paymentID string) (*PaymentView, error)
	CapturePayment(ctx context.Context, paymentID string) (*PaymentView, error)
	CancelPayment(ctx context.Context, paymentID, reason string) (*PaymentView, error)

	CreateTransfer(ctx context.Context, input *TransferInput) (*Transfer, error)
	ReverseTransfer(ctx context.Context, transferID string, amount int64, orderID string) (*TransferReversal, error)
	CreateRefund(ctx context.Context, input *RefundInput) (*Refund, error)

	CreateAccount(ctx context.Context, input *AccountInput) (*Account, error)
	GetAccount(ctx context.Context, accountID string) (*Account, error)
	CreateOnboardingLink(ctx context.Context, accountID string) (string, error)
	GetBalance(ctx context.Context, accountID string) (*Balance, error)

	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
