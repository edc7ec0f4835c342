package mapper

import (
	"github.com/vibast-solutions/ms-go-escrow/app/entity"
	"github.com/vibast-solutions/ms-go-escrow/app/types"
)

func FailureToProto(failure *entity.Failure) *types.Failure {
	if failure == nil {
		return nil
	}

	return &types.Failure{
		Kind:      string(failure.Kind),
		Message:   failure.Message,
		Retryable: failure.Retryable,
	}
}

func PaymentOutcomeToProto(item *entity.PaymentOutcome) *types.PaymentOutcomeResponse {
	if item == nil {
		return nil
	}

	return &types.PaymentOutcomeResponse{
		Success:                  item.Succeeded(),
		PaymentReferenceId:       item.PaymentReferenceID,
		ClientAuthorizationToken: item.ClientAuthorizationToken,
		Status:                   string(item.Status),
		PlatformFee:              item.PlatformFee,
		SellerAmount:             item.SellerAmount,
		Failure:                  FailureToProto(item.Failure),
	}
}

func PayoutOutcomeToProto(item *entity.PayoutOutcome) *types.PayoutOutcomeResponse {
	if item == nil {
		return nil
	}

	return &types.PayoutOutcomeResponse{
		Success:             item.Succeeded(),
		TransferReferenceId: item.TransferReferenceID,
		Amount:              item.Amount,
		Failure:             FailureToProto(item.Failure),
	}
}

func RefundOutcomeToProto(item *entity.RefundOutcome) *types.RefundOutcomeResponse {
	if item == nil {
		return nil
	}

	return &types.RefundOutcomeResponse{
		Success:            item.Succeeded(),
		RefundReferenceId:  item.RefundReferenceID,
		Amount:             item.Amount,
		Status:             string(item.Status),
		TransferReversalId: item.TransferReversalID,
		ReversedAmount:     item.ReversedAmount,
		Failure:            FailureToProto(item.Failure),
	}
}

func SellerAccountOutcomeToProto(item *entity.SellerAccountOutcome) *types.SellerAccountResponse {
	if item == nil {
		return nil
	}

	return &types.SellerAccountResponse{
		Success:       item.Succeeded(),
		AccountId:     item.AccountID,
		OnboardingUrl: item.OnboardingURL,
		Failure:       FailureToProto(item.Failure),
	}
}

func SellerAccountStatusToProto(item *entity.SellerAccountStatus) *types.SellerAccountStatusResponse {
	if item == nil {
		return nil
	}

	return &types.SellerAccountStatusResponse{
		Success:           item.Succeeded(),
		AccountId:         item.AccountID,
		CanAcceptCharges:  item.CanAcceptCharges,
		CanReceivePayouts: item.CanReceivePayouts,
		DetailsSubmitted:  item.DetailsSubmitted,
		RequiresAction:    item.RequiresAction,
		OnboardingUrl:     item.OnboardingURL,
		Failure:           FailureToProto(item.Failure),
	}
}

func SellerBalanceToProto(item *entity.SellerBalance) *types.SellerBalanceResponse {
	if item == nil {
		return nil
	}

	return &types.SellerBalanceResponse{
		Success:             item.Succeeded(),
		AccountId:           item.AccountID,
		AvailableMinorUnits: item.AvailableMinorUnits,
		PendingMinorUnits:   item.PendingMinorUnits,
		Failure:             FailureToProto(item.Failure),
	}
}

func PaymentStatusToProto(item *entity.PaymentStatusReport) *types.PaymentStatusResponse {
	if item == nil {
		return nil
	}

	return &types.PaymentStatusResponse{
		Success:            item.Succeeded(),
		PaymentReferenceId: item.PaymentReferenceID,
		Status:             string(item.Status),
		Currency:           item.Currency,
		Amount:             item.Amount,
		CapturedAmount:     item.CapturedAmount,
		RefundedAmount:     item.RefundedAmount,
		Failure:            FailureToProto(item.Failure),
	}
}
