package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-escrow/app/entity"
	"github.com/vibast-solutions/ms-go-escrow/app/provider"
)

const (
	createIdempotencyPrefix = "escrow-create-"

	metadataBuyerID      = "buyer_id"
	metadataSellerID     = "seller_id"
	metadataListingTitle = "listing_title"
	metadataPlatformFee  = "platform_fee"
)

// processorEngine reads the processor's view of a payment before every
// mutation and rejects illegal transitions without sending the mutation.
type processorEngine struct {
	processor provider.Processor
	logger    logrus.FieldLogger
}

func (e *processorEngine) createPayment(ctx context.Context, in *paymentInput) (*entity.PaymentOutcome, error) {
	metadata := cloneMetadata(in.metadata)
	metadata[metadataBuyerID] = in.buyerID
	metadata[metadataSellerID] = in.sellerID
	metadata[metadataPlatformFee] = fmt.Sprintf("%d", in.platformFee)
	if in.listingTitle != "" {
		metadata[metadataListingTitle] = in.listingTitle
	}

	auth, err := e.processor.CreateAuthorization(ctx, &provider.AuthorizationInput{
		OrderID:            in.orderID,
		Amount:             in.amount,
		Currency:           in.currency,
		PlatformFee:        in.platformFee,
		DestinationAccount: in.payoutAccount,
		Description:        in.listingTitle,
		Metadata:           metadata,
		IdempotencyKey:     createIdempotencyPrefix + in.orderID,
	})
	if err != nil {
		failure, err := processorFailure(err, true)
		if err != nil {
			return nil, err
		}
		return &entity.PaymentOutcome{Failure: failure}, nil
	}

	outcome := &entity.PaymentOutcome{
		PaymentReferenceID:       auth.ID,
		ClientAuthorizationToken: auth.ClientSecret,
		Status:                   entity.StatusHeld,
		PlatformFee:              in.platformFee,
		SellerAmount:             in.sellerAmount,
	}
	if auth.State == provider.StateFailed {
		outcome.Status = entity.StatusFailed
		outcome.Failure = &entity.Failure{Kind: entity.FailureProcessor, Message: auth.FailureMsg, Retryable: true}
	}
	return outcome, nil
}

func (e *processorEngine) capturePayment(ctx context.Context, reference string) (*entity.PaymentOutcome, error) {
	view, failure, err := e.loadPayment(ctx, reference, false)
	if err != nil || failure != nil {
		return &entity.PaymentOutcome{PaymentReferenceID: reference, Failure: failure}, err
	}

	status := paymentStatusOf(view)
	switch {
	case status == entity.StatusCaptured || status == entity.StatusSettled:
		return &entity.PaymentOutcome{PaymentReferenceID: reference, Status: status}, nil
	case view.State == provider.StateAwaitingBuyer:
		return &entity.PaymentOutcome{
			PaymentReferenceID: reference,
			Status:             status,
			Failure:            entity.NewFailure(entity.FailureInvalidState, "payment has not been authorized by the buyer yet"),
		}, nil
	case view.State != provider.StateAuthorized:
		return &entity.PaymentOutcome{PaymentReferenceID: reference, Status: status, Failure: invalidState(status, "capture")}, nil
	}

	captured, err := e.processor.CapturePayment(ctx, reference)
	if err != nil {
		failure, err := processorFailure(err, false)
		if err != nil {
			return nil, err
		}
		if failure.Kind == entity.FailureInvalidState {
			// A concurrent capture may have won; report the resulting state.
			if again, _, rerr := e.loadPayment(ctx, reference, false); rerr == nil && again != nil {
				if s := paymentStatusOf(again); s == entity.StatusCaptured || s == entity.StatusSettled {
					return &entity.PaymentOutcome{PaymentReferenceID: reference, Status: s}, nil
				}
			}
		}
		return &entity.PaymentOutcome{PaymentReferenceID: reference, Status: status, Failure: failure}, nil
	}

	return &entity.PaymentOutcome{PaymentReferenceID: reference, Status: paymentStatusOf(captured)}, nil
}

func (e *processorEngine) releasePayment(ctx context.Context, in *releaseInput) (*entity.PayoutOutcome, error) {
	view, failure, err := e.loadPayment(ctx, in.reference, false)
	if err != nil || failure != nil {
		return &entity.PayoutOutcome{Failure: failure}, err
	}

	status := paymentStatusOf(view)
	switch {
	case view.Destination != "":
		return &entity.PayoutOutcome{Failure: entity.NewFailure(entity.FailureInvalidState,
			fmt.Sprintf("payment was routed to %s at authorization and needs no manual release", view.Destination))}, nil
	case view.ReleaseTransferID != "":
		return &entity.PayoutOutcome{Failure: entity.NewFailure(entity.FailureInvalidState,
			fmt.Sprintf("payment was already released in transfer %s", view.ReleaseTransferID))}, nil
	case !status.CanRelease():
		return &entity.PayoutOutcome{Failure: invalidState(status, "release")}, nil
	}

	account, err := e.processor.GetAccount(ctx, in.payoutAccount)
	if err != nil {
		failure, err := processorFailure(err, false)
		if err != nil {
			return nil, err
		}
		if failure.Kind == entity.FailureNotFound {
			failure.Kind = entity.FailureInvalidAccount
		}
		return &entity.PayoutOutcome{Failure: failure}, nil
	}
	if !account.PayoutsEnabled {
		return &entity.PayoutOutcome{Failure: entity.NewFailure(entity.FailureInvalidAccount,
			fmt.Sprintf("seller account %s cannot receive payouts yet", in.payoutAccount))}, nil
	}

	available := view.CapturedAmount - view.RefundedAmount
	if in.amount > available {
		return &entity.PayoutOutcome{Failure: entity.NewFailure(entity.FailureInsufficientFunds,
			fmt.Sprintf("release amount %d exceeds captured balance %d", in.amount, available))}, nil
	}

	transfer, err := e.processor.CreateTransfer(ctx, &provider.TransferInput{
		PaymentID:          in.reference,
		ChargeID:           view.ChargeID,
		DestinationAccount: in.payoutAccount,
		Amount:             in.amount,
		Currency:           view.Currency,
		OrderID:            in.orderID,
	})
	if err != nil {
		failure, err := processorFailure(err, false)
		if err != nil {
			return nil, err
		}
		return &entity.PayoutOutcome{Failure: failure}, nil
	}

	return &entity.PayoutOutcome{TransferReferenceID: transfer.ID, Amount: transfer.Amount}, nil
}

// refundPayment refunds the buyer and then takes the same amount back from the
// seller transfer, capped at what is left of that transfer.
func (e *processorEngine) refundPayment(ctx context.Context, in *refundInput) (*entity.RefundOutcome, error) {
	view, failure, err := e.loadPayment(ctx, in.reference, false)
	if err != nil || failure != nil {
		return &entity.RefundOutcome{Failure: failure}, err
	}

	status := paymentStatusOf(view)
	if !status.CanRefund() {
		return &entity.RefundOutcome{Status: status, Failure: invalidState(status, "refund")}, nil
	}

	remaining := view.CapturedAmount - view.RefundedAmount
	amount := in.amount
	if amount == 0 {
		amount = remaining
	}
	if amount <= 0 || amount > remaining {
		return &entity.RefundOutcome{Status: status, Failure: entity.NewFailure(entity.FailureInvalidAmount,
			fmt.Sprintf("refund amount %d exceeds remaining captured amount %d", amount, remaining))}, nil
	}

	refund, err := e.processor.CreateRefund(ctx, &provider.RefundInput{
		PaymentID: in.reference,
		Amount:    amount,
		Reason:    in.reason,
		OrderID:   in.orderID,
	})
	if err != nil {
		failure, err := processorFailure(err, false)
		if err != nil {
			return nil, err
		}
		return &entity.RefundOutcome{Status: status, Failure: failure}, nil
	}

	outcome := &entity.RefundOutcome{
		RefundReferenceID: refund.ID,
		Amount:            refund.Amount,
		Status:            entity.StatusPartiallyRefunded,
	}
	if view.RefundedAmount+refund.Amount >= view.CapturedAmount {
		outcome.Status = entity.StatusRefunded
	}

	reversible := view.TransferAmount - view.TransferReversedAmount
	if view.TransferID == "" || reversible <= 0 {
		return outcome, nil
	}

	reverseAmount := min(refund.Amount, reversible)
	reversal, err := e.processor.ReverseTransfer(ctx, view.TransferID, reverseAmount, in.orderID)
	if err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"payment_reference_id": in.reference,
			"refund_reference_id":  refund.ID,
			"transfer_id":          view.TransferID,
			"amount":               reverseAmount,
		}).Error("Transfer reversal failed after refund")

		message := err.Error()
		if perr, ok := provider.AsError(err); ok {
			message = perr.Message
		}
		outcome.Failure = entity.NewFailure(entity.FailureProcessor,
			fmt.Sprintf("refund %s succeeded but reversing transfer %s failed: %s", refund.ID, view.TransferID, message))
		return outcome, nil
	}

	outcome.TransferReversalID = reversal.ID
	outcome.ReversedAmount = reversal.Amount
	return outcome, nil
}

func (e *processorEngine) cancelPayment(ctx context.Context, reference, reason string) (*entity.PaymentOutcome, error) {
	view, failure, err := e.loadPayment(ctx, reference, false)
	if err != nil || failure != nil {
		return &entity.PaymentOutcome{PaymentReferenceID: reference, Failure: failure}, err
	}

	status := paymentStatusOf(view)
	if !status.CanCancel() {
		return &entity.PaymentOutcome{PaymentReferenceID: reference, Status: status, Failure: invalidState(status, "cancel")}, nil
	}

	canceled, err := e.processor.CancelPayment(ctx, reference, reason)
	if err != nil {
		failure, err := processorFailure(err, false)
		if err != nil {
			return nil, err
		}
		return &entity.PaymentOutcome{PaymentReferenceID: reference, Status: status, Failure: failure}, nil
	}

	return &entity.PaymentOutcome{PaymentReferenceID: reference, Status: paymentStatusOf(canceled)}, nil
}

func (e *processorEngine) createSellerAccount(ctx context.Context, in *sellerAccountInput) (*entity.SellerAccountOutcome, error) {
	account, err := e.processor.CreateAccount(ctx, &provider.AccountInput{
		UserID:       in.userID,
		Email:        in.email,
		BusinessName: in.businessName,
		Country:      in.country,
	})
	if err != nil {
		failure, err := processorFailure(err, false)
		if err != nil {
			return nil, err
		}
		return &entity.SellerAccountOutcome{Failure: failure}, nil
	}

	link, err := e.processor.CreateOnboardingLink(ctx, account.ID)
	if err != nil {
		failure, err := processorFailure(err, true)
		if err != nil {
			// The account exists; the caller can fetch a new link from status.
			e.logger.WithError(err).WithField("account_id", account.ID).Warn("Onboarding link creation failed")
			failure = &entity.Failure{Kind: entity.FailureProcessor, Message: err.Error(), Retryable: true}
		}
		return &entity.SellerAccountOutcome{AccountID: account.ID, Failure: failure}, nil
	}

	return &entity.SellerAccountOutcome{AccountID: account.ID, OnboardingURL: link}, nil
}

func (e *processorEngine) sellerAccountStatus(ctx context.Context, accountID string) (*entity.SellerAccountStatus, error) {
	account, err := e.processor.GetAccount(ctx, accountID)
	if err != nil {
		failure, err := processorFailure(err, true)
		if err != nil {
			return nil, err
		}
		return &entity.SellerAccountStatus{AccountID: accountID, Failure: failure}, nil
	}

	status := sellerStatusOf(account)
	if !status.RequiresAction {
		return status, nil
	}

	link, err := e.processor.CreateOnboardingLink(ctx, account.ID)
	if err != nil {
		failure, err := processorFailure(err, true)
		if err != nil {
			return nil, err
		}
		status.Failure = failure
		return status, nil
	}
	status.OnboardingURL = link
	return status, nil
}

func (e *processorEngine) sellerBalance(ctx context.Context, accountID string) (*entity.SellerBalance, error) {
	balance, err := e.processor.GetBalance(ctx, accountID)
	if err != nil {
		failure, err := processorFailure(err, true)
		if err != nil {
			return nil, err
		}
		return &entity.SellerBalance{AccountID: accountID, Failure: failure}, nil
	}

	if balance.Available < 0 || balance.Pending < 0 {
		e.logger.WithFields(logrus.Fields{
			"account_id": accountID,
			"available":  balance.Available,
			"pending":    balance.Pending,
		}).Warn("Seller balance is negative, reporting zero")
	}

	return &entity.SellerBalance{
		AccountID:           accountID,
		AvailableMinorUnits: max(balance.Available, 0),
		PendingMinorUnits:   max(balance.Pending, 0),
	}, nil
}

func (e *processorEngine) paymentStatus(ctx context.Context, reference string) (*entity.PaymentStatusReport, error) {
	view, failure, err := e.loadPayment(ctx, reference, true)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return &entity.PaymentStatusReport{PaymentReferenceID: reference, Failure: failure}, nil
	}

	report := &entity.PaymentStatusReport{
		PaymentReferenceID: reference,
		Status:             paymentStatusOf(view),
		Currency:           view.Currency,
		Amount:             view.Amount,
		CapturedAmount:     view.CapturedAmount - view.RefundedAmount,
		RefundedAmount:     view.RefundedAmount,
	}

	if report.Status.IsCaptured() && report.RefundedAmount != report.Amount-report.CapturedAmount {
		e.logger.WithFields(logrus.Fields{
			"payment_reference_id": reference,
			"amount":               report.Amount,
			"captured_amount":      report.CapturedAmount,
			"refunded_amount":      report.RefundedAmount,
		}).Warn("Payment amounts do not reconcile")
	}

	return report, nil
}

func (e *processorEngine) loadPayment(ctx context.Context, reference string, retryable bool) (*provider.PaymentView, *entity.Failure, error) {
	view, err := e.processor.GetPayment(ctx, reference)
	if err != nil {
		failure, err := processorFailure(err, retryable)
		return nil, failure, err
	}
	return view, nil, nil
}

// paymentStatusOf derives the escrow status from the processor's view.
func paymentStatusOf(view *provider.PaymentView) entity.PaymentStatus {
	switch view.State {
	case provider.StateCanceled:
		return entity.StatusCanceled
	case provider.StateFailed:
		return entity.StatusFailed
	case provider.StateCaptured:
		switch {
		case view.RefundedAmount > 0 && view.RefundedAmount >= view.CapturedAmount:
			return entity.StatusRefunded
		case view.RefundedAmount > 0:
			return entity.StatusPartiallyRefunded
		case view.ReleaseTransferID != "":
			return entity.StatusSettled
		default:
			return entity.StatusCaptured
		}
	default:
		return entity.StatusHeld
	}
}

func sellerStatusOf(account *provider.Account) *entity.SellerAccountStatus {
	return &entity.SellerAccountStatus{
		AccountID:         account.ID,
		CanAcceptCharges:  account.ChargesEnabled,
		CanReceivePayouts: account.PayoutsEnabled,
		DetailsSubmitted:  account.DetailsSubmitted,
		RequiresAction:    !(account.ChargesEnabled && account.PayoutsEnabled),
	}
}
