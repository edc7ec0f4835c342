package entity

// PaymentStatus is the escrow lifecycle state of a marketplace payment.
type PaymentStatus string

const (
	StatusHeld              PaymentStatus = "HELD"
	StatusCaptured          PaymentStatus = "CAPTURED"
	StatusSettled           PaymentStatus = "SETTLED"
	StatusCanceled          PaymentStatus = "CANCELED"
	StatusFailed            PaymentStatus = "FAILED"
	StatusRefunded          PaymentStatus = "REFUNDED"
	StatusPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

// IsTerminal reports whether no further escrow operation can move the payment.
// PARTIALLY_REFUNDED is not terminal because refunds accumulate.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case StatusSettled, StatusCanceled, StatusFailed, StatusRefunded:
		return true
	default:
		return false
	}
}

// IsCaptured reports whether funds were captured from the buyer.
func (s PaymentStatus) IsCaptured() bool {
	switch s {
	case StatusCaptured, StatusSettled, StatusRefunded, StatusPartiallyRefunded:
		return true
	default:
		return false
	}
}

func (s PaymentStatus) CanCancel() bool {
	return s == StatusHeld
}

func (s PaymentStatus) CanRefund() bool {
	return s == StatusCaptured || s == StatusSettled || s == StatusPartiallyRefunded
}

func (s PaymentStatus) CanRelease() bool {
	return s == StatusCaptured || s == StatusPartiallyRefunded
}

func ParsePaymentStatus(raw string) (PaymentStatus, bool) {
	status := PaymentStatus(raw)
	switch status {
	case StatusHeld, StatusCaptured, StatusSettled, StatusCanceled, StatusFailed, StatusRefunded, StatusPartiallyRefunded:
		return status, true
	default:
		return "", false
	}
}

// FailureKind classifies an expected failure returned by an escrow operation.
type FailureKind string

const (
	FailureValidation        FailureKind = "VALIDATION_ERROR"
	FailureNotFound          FailureKind = "NOT_FOUND"
	FailureInvalidState      FailureKind = "INVALID_STATE"
	FailureInvalidAmount     FailureKind = "INVALID_AMOUNT"
	FailureInvalidAccount    FailureKind = "INVALID_ACCOUNT"
	FailureInsufficientFunds FailureKind = "INSUFFICIENT_FUNDS"
	FailureProcessor         FailureKind = "PROCESSOR_ERROR"
)

// Failure is the error variant of every escrow outcome.
type Failure struct {
	Kind      FailureKind
	Message   string
	Retryable bool
}

func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	if f.Message == "" {
		return string(f.Kind)
	}
	return string(f.Kind) + ": " + f.Message
}

func NewFailure(kind FailureKind, message string) *Failure {
	return &Failure{Kind: kind, Message: message}
}

type PaymentOutcome struct {
	PaymentReferenceID       string
	ClientAuthorizationToken string
	Status                   PaymentStatus
	PlatformFee              int64
	SellerAmount             int64
	Failure                  *Failure
}

func (o *PaymentOutcome) Succeeded() bool {
	return o != nil && o.Failure == nil
}

type PayoutOutcome struct {
	TransferReferenceID string
	Amount              int64
	Failure             *Failure
}

func (o *PayoutOutcome) Succeeded() bool {
	return o != nil && o.Failure == nil
}

type RefundOutcome struct {
	RefundReferenceID  string
	Amount             int64
	Status             PaymentStatus
	TransferReversalID string
	ReversedAmount     int64
	Failure            *Failure
}

func (o *RefundOutcome) Succeeded() bool {
	return o != nil && o.Failure == nil
}

type SellerAccountOutcome struct {
	AccountID     string
	OnboardingURL string
	Failure       *Failure
}

func (o *SellerAccountOutcome) Succeeded() bool {
	return o != nil && o.Failure == nil
}

type SellerAccountStatus struct {
	AccountID         string
	CanAcceptCharges  bool
	CanReceivePayouts bool
	DetailsSubmitted  bool
	RequiresAction    bool
	OnboardingURL     string
	Failure           *Failure
}

func (o *SellerAccountStatus) Succeeded() bool {
	return o != nil && o.Failure == nil
}

type SellerBalance struct {
	AccountID           string
	AvailableMinorUnits int64
	PendingMinorUnits   int64
	Failure             *Failure
}

func (o *SellerBalance) Succeeded() bool {
	return o != nil && o.Failure == nil
}

type PaymentStatusReport struct {
	PaymentReferenceID string
	Status             PaymentStatus
	Currency           string
	Amount             int64
	CapturedAmount     int64
	RefundedAmount     int64
	Failure            *Failure
}

func (o *PaymentStatusReport) Succeeded() bool {
	return o != nil && o.Failure == nil
}
