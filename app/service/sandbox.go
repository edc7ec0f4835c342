package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-escrow/app/entity"
)

const (
	sandboxPaymentPrefix  = "pi_sandbox_"
	sandboxTransferPrefix = "tr_sandbox_"
	sandboxRefundPrefix   = "re_sandbox_"
	sandboxReversalPrefix = "trr_sandbox_"
	sandboxAccountPrefix  = "acct_sandbox_"

	sandboxOnboardingBaseURL = "https://sandbox.escrow.invalid/onboarding/"
)

// sandboxEngine answers every valid request with fabricated references and
// never reaches a processor. It keeps no state, so reads report defaults.
type sandboxEngine struct {
	namespace uuid.UUID
}

func newSandboxEngine() *sandboxEngine {
	return &sandboxEngine{
		namespace: uuid.NewSHA1(uuid.NameSpaceURL, []byte("escrow-sandbox")),
	}
}

// paymentReferenceForOrder returns the reference a sandbox create issues for
// orderID, so retries of the same order map to the same payment.
func (e *sandboxEngine) paymentReferenceForOrder(orderID string) string {
	return sandboxPaymentPrefix + compactUUID(uuid.NewSHA1(e.namespace, []byte(orderID)))
}

func (e *sandboxEngine) createPayment(_ context.Context, in *paymentInput) (*entity.PaymentOutcome, error) {
	reference := e.paymentReferenceForOrder(in.orderID)
	return &entity.PaymentOutcome{
		PaymentReferenceID:       reference,
		ClientAuthorizationToken: reference + "_secret_" + compactUUID(uuid.New()),
		Status:                   entity.StatusHeld,
		PlatformFee:              in.platformFee,
		SellerAmount:             in.sellerAmount,
	}, nil
}

func (e *sandboxEngine) capturePayment(_ context.Context, reference string) (*entity.PaymentOutcome, error) {
	return &entity.PaymentOutcome{PaymentReferenceID: reference, Status: entity.StatusCaptured}, nil
}

func (e *sandboxEngine) releasePayment(_ context.Context, in *releaseInput) (*entity.PayoutOutcome, error) {
	return &entity.PayoutOutcome{
		TransferReferenceID: sandboxTransferPrefix + compactUUID(uuid.New()),
		Amount:              in.amount,
	}, nil
}

// refundPayment always reports a reversal alongside the refund. A full refund
// carries no amounts since the engine never learns what was captured.
func (e *sandboxEngine) refundPayment(_ context.Context, in *refundInput) (*entity.RefundOutcome, error) {
	outcome := &entity.RefundOutcome{
		RefundReferenceID:  sandboxRefundPrefix + compactUUID(uuid.New()),
		TransferReversalID: sandboxReversalPrefix + compactUUID(uuid.New()),
		Amount:             in.amount,
		ReversedAmount:     in.amount,
		Status:             entity.StatusRefunded,
	}
	if in.amount > 0 {
		outcome.Status = entity.StatusPartiallyRefunded
	}
	return outcome, nil
}

func (e *sandboxEngine) cancelPayment(_ context.Context, reference, _ string) (*entity.PaymentOutcome, error) {
	return &entity.PaymentOutcome{PaymentReferenceID: reference, Status: entity.StatusCanceled}, nil
}

func (e *sandboxEngine) createSellerAccount(_ context.Context, _ *sellerAccountInput) (*entity.SellerAccountOutcome, error) {
	accountID := sandboxAccountPrefix + compactUUID(uuid.New())
	return &entity.SellerAccountOutcome{
		AccountID:     accountID,
		OnboardingURL: sandboxOnboardingBaseURL + accountID,
	}, nil
}

func (e *sandboxEngine) sellerAccountStatus(_ context.Context, accountID string) (*entity.SellerAccountStatus, error) {
	return &entity.SellerAccountStatus{
		AccountID:         accountID,
		CanAcceptCharges:  true,
		CanReceivePayouts: true,
		DetailsSubmitted:  true,
	}, nil
}

func (e *sandboxEngine) sellerBalance(_ context.Context, accountID string) (*entity.SellerBalance, error) {
	return &entity.SellerBalance{AccountID: accountID}, nil
}

func (e *sandboxEngine) paymentStatus(_ context.Context, reference string) (*entity.PaymentStatusReport, error) {
	return &entity.PaymentStatusReport{PaymentReferenceID: reference, Status: entity.StatusHeld}, nil
}

func compactUUID(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")
}
