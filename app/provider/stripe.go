package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

const (
	metadataOrderID         = "order_id"
	metadataPaymentRef      = "payment_reference_id"
	metadataReleaseTransfer = "escrow_release_transfer"
	metadataRefundReason    = "refund_reason"
	metadataUserID          = "user_id"

	onboardingLinkType = "account_onboarding"

	releaseIdempotencyPrefix = "escrow-release-"
)

type StripeConfig struct {
	SecretKey            string
	WebhookSecret        string
	OnboardingRefreshURL string
	OnboardingReturnURL  string
	HTTPTimeout          time.Duration
	// APIBaseURL overrides the Stripe API host; empty uses api.stripe.com.
	APIBaseURL string
}

type StripeProvider struct {
	cfg    StripeConfig
	api    *client.API
	logger logrus.FieldLogger
}

func NewStripeProvider(cfg StripeConfig, logger logrus.FieldLogger) *StripeProvider {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
	}
	if logger != nil {
		backendCfg.LeveledLogger = logger
	} else {
		logger = logrus.WithField("module", "stripe")
	}
	if base := strings.TrimSpace(cfg.APIBaseURL); base != "" {
		backendCfg.URL = stripe.String(base)
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	}

	return &StripeProvider{
		cfg:    cfg,
		api:    client.New(cfg.SecretKey, backends),
		logger: logger,
	}
}

func (p *StripeProvider) Name() string {
	return "stripe"
}

func (p *StripeProvider) CreateAuthorization(ctx context.Context, input *AuthorizationInput) (*Authorization, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(input.Amount),
		Currency:      stripe.String(strings.ToLower(input.Currency)),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		TransferGroup: stripe.String(input.OrderID),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if input.Description != "" {
		params.Description = stripe.String(input.Description)
	}
	if input.DestinationAccount != "" {
		params.TransferData = &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(input.DestinationAccount),
		}
		if input.PlatformFee > 0 {
			params.ApplicationFeeAmount = stripe.Int64(input.PlatformFee)
		}
	}
	if input.IdempotencyKey != "" {
		params.SetIdempotencyKey(input.IdempotencyKey)
	}
	for k, v := range input.Metadata {
		params.AddMetadata(k, v)
	}
	params.AddMetadata(metadataOrderID, input.OrderID)

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}

	result := &Authorization{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		State:        mapIntentState(pi),
	}
	if pi.LastPaymentError != nil {
		result.FailureMsg = pi.LastPaymentError.Msg
	}
	return result, nil
}

func (p *StripeProvider) GetPayment(ctx context.Context, paymentID string) (*PaymentView, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge.transfer")

	pi, err := p.api.PaymentIntents.Get(paymentID, params)
	if err != nil {
		return nil, mapStripeError(err)
	}

	view := viewFromIntent(pi)
	if view.ReleaseTransferID == "" && view.Destination == "" && view.State == StateCaptured && pi.TransferGroup != "" {
		// The release marker on the intent is written after the transfer, so a
		// failed marker write leaves the transfer reachable only by its group.
		releaseID, err := p.findReleaseTransfer(ctx, pi.TransferGroup, pi.ID)
		if err != nil {
			return nil, err
		}
		view.ReleaseTransferID = releaseID
	}
	if view.TransferID == "" && view.ReleaseTransferID != "" {
		trParams := &stripe.TransferParams{}
		trParams.Context = ctx
		tr, err := p.api.Transfers.Get(view.ReleaseTransferID, trParams)
		if err != nil {
			return nil, mapStripeError(err)
		}
		view.TransferID = tr.ID
		view.TransferAmount = tr.Amount
		view.TransferReversedAmount = tr.AmountReversed
	}
	return view, nil
}

func (p *StripeProvider) CapturePayment(ctx context.Context, paymentID string) (*PaymentView, error) {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	params.AddExpand("latest_charge.transfer")

	pi, err := p.api.PaymentIntents.Capture(paymentID, params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return viewFromIntent(pi), nil
}

func (p *StripeProvider) CancelPayment(ctx context.Context, paymentID, reason string) (*PaymentView, error) {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(cancellationReason(reason)),
	}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.Cancel(paymentID, params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return viewFromIntent(pi), nil
}

// CreateTransfer moves captured funds to a connected account and records the
// transfer on the payment intent so later reads report the release.
func (p *StripeProvider) CreateTransfer(ctx context.Context, input *TransferInput) (*Transfer, error) {
	params := &stripe.TransferParams{
		Amount:        stripe.Int64(input.Amount),
		Currency:      stripe.String(strings.ToLower(input.Currency)),
		Destination:   stripe.String(input.DestinationAccount),
		TransferGroup: stripe.String(input.OrderID),
	}
	params.Context = ctx
	params.SetIdempotencyKey(releaseIdempotencyPrefix + input.PaymentID)
	if input.ChargeID != "" {
		params.SourceTransaction = stripe.String(input.ChargeID)
	}
	params.AddMetadata(metadataOrderID, input.OrderID)
	params.AddMetadata(metadataPaymentRef, input.PaymentID)

	tr, err := p.api.Transfers.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}

	// Funds have moved once the transfer exists. GetPayment finds the transfer
	// by its group when the marker below is missing.
	update := &stripe.PaymentIntentParams{}
	update.Context = ctx
	update.AddMetadata(metadataReleaseTransfer, tr.ID)
	if _, err := p.api.PaymentIntents.Update(input.PaymentID, update); err != nil {
		p.logger.WithError(err).WithFields(logrus.Fields{
			"payment_reference_id": input.PaymentID,
			"transfer_id":          tr.ID,
		}).Warn("Failed to record release transfer on payment intent")
	}

	return &Transfer{ID: tr.ID, Amount: tr.Amount}, nil
}

func (p *StripeProvider) findReleaseTransfer(ctx context.Context, group, paymentID string) (string, error) {
	params := &stripe.TransferListParams{TransferGroup: stripe.String(group)}
	params.Context = ctx

	iter := p.api.Transfers.List(params)
	for iter.Next() {
		tr := iter.Transfer()
		if tr.Metadata[metadataPaymentRef] == paymentID {
			return tr.ID, nil
		}
	}
	if err := iter.Err(); err != nil {
		return "", mapStripeError(err)
	}
	return "", nil
}

func (p *StripeProvider) ReverseTransfer(ctx context.Context, transferID string, amount int64, orderID string) (*TransferReversal, error) {
	params := &stripe.TransferReversalParams{
		ID:     stripe.String(transferID),
		Amount: stripe.Int64(amount),
	}
	params.Context = ctx
	params.AddMetadata(metadataOrderID, orderID)

	rev, err := p.api.TransferReversals.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return &TransferReversal{ID: rev.ID, Amount: rev.Amount}, nil
}

func (p *StripeProvider) CreateRefund(ctx context.Context, input *RefundInput) (*Refund, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(input.PaymentID),
		Amount:        stripe.Int64(input.Amount),
	}
	params.Context = ctx
	if reason := refundReason(input.Reason); reason != "" {
		params.Reason = stripe.String(reason)
	}
	params.AddMetadata(metadataOrderID, input.OrderID)
	if input.Reason != "" {
		params.AddMetadata(metadataRefundReason, input.Reason)
	}

	r, err := p.api.Refunds.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return &Refund{ID: r.ID, Amount: r.Amount, Status: string(r.Status)}, nil
}

func (p *StripeProvider) CreateAccount(ctx context.Context, input *AccountInput) (*Account, error) {
	params := &stripe.AccountParams{
		Type:    stripe.String(string(stripe.AccountTypeExpress)),
		Country: stripe.String(strings.ToUpper(input.Country)),
		Email:   stripe.String(input.Email),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	params.Context = ctx
	if input.BusinessName != "" {
		params.BusinessProfile = &stripe.AccountBusinessProfileParams{
			Name: stripe.String(input.BusinessName),
		}
	}
	params.AddMetadata(metadataUserID, input.UserID)

	acct, err := p.api.Accounts.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return accountFromStripe(acct), nil
}

func (p *StripeProvider) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	acct, err := p.api.Accounts.GetByID(accountID, params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return accountFromStripe(acct), nil
}

func (p *StripeProvider) CreateOnboardingLink(ctx context.Context, accountID string) (string, error) {
	if strings.TrimSpace(p.cfg.OnboardingRefreshURL) == "" || strings.TrimSpace(p.cfg.OnboardingReturnURL) == "" {
		return "", errors.New("stripe onboarding urls are not configured")
	}

	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(p.cfg.OnboardingRefreshURL),
		ReturnURL:  stripe.String(p.cfg.OnboardingReturnURL),
		Type:       stripe.String(onboardingLinkType),
	}
	params.Context = ctx

	link, err := p.api.AccountLinks.New(params)
	if err != nil {
		return "", mapStripeError(err)
	}
	return link.URL, nil
}

func (p *StripeProvider) GetBalance(ctx context.Context, accountID string) (*Balance, error) {
	params := &stripe.BalanceParams{}
	params.Context = ctx
	params.SetStripeAccount(accountID)

	b, err := p.api.Balance.Get(params)
	if err != nil {
		return nil, mapStripeError(err)
	}

	result := &Balance{}
	for _, amount := range b.Available {
		result.Available += amount.Value
	}
	for _, amount := range b.Pending {
		result.Pending += amount.Value
	}
	return result, nil
}

func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if strings.TrimSpace(p.cfg.WebhookSecret) == "" {
		return nil, errors.New("stripe webhook secret is not configured")
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, p.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, err
	}

	result := &WebhookEvent{
		ID:        event.ID,
		Type:      string(event.Type),
		AccountID: event.Account,
	}
	if event.Data == nil {
		return result, nil
	}

	switch {
	case event.Type == "account.updated":
		var acct stripe.Account
		if err := json.Unmarshal(event.Data.Raw, &acct); err != nil {
			return nil, err
		}
		result.ObjectID = acct.ID
		result.AccountID = acct.ID
		result.Account = accountFromStripe(&acct)
	case strings.HasPrefix(string(event.Type), "payment_intent."):
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, err
		}
		result.ObjectID = pi.ID
		result.PaymentID = pi.ID
	case strings.HasPrefix(string(event.Type), "charge."):
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, err
		}
		result.ObjectID = ch.ID
		if ch.PaymentIntent != nil {
			result.PaymentID = ch.PaymentIntent.ID
		}
	case strings.HasPrefix(string(event.Type), "transfer."):
		var tr stripe.Transfer
		if err := json.Unmarshal(event.Data.Raw, &tr); err != nil {
			return nil, err
		}
		result.ObjectID = tr.ID
		result.PaymentID = tr.Metadata[metadataPaymentRef]
	}

	return result, nil
}

func viewFromIntent(pi *stripe.PaymentIntent) *PaymentView {
	view := &PaymentView{
		ID:             pi.ID,
		Currency:       strings.ToUpper(string(pi.Currency)),
		State:          mapIntentState(pi),
		Amount:         pi.Amount,
		CapturedAmount: pi.AmountReceived,
	}
	if pi.TransferData != nil && pi.TransferData.Destination != nil {
		view.Destination = pi.TransferData.Destination.ID
	}
	if pi.LatestCharge != nil {
		view.ChargeID = pi.LatestCharge.ID
		view.RefundedAmount = pi.LatestCharge.AmountRefunded
		if pi.LatestCharge.Transfer != nil {
			view.TransferID = pi.LatestCharge.Transfer.ID
			view.TransferAmount = pi.LatestCharge.Transfer.Amount
			view.TransferReversedAmount = pi.LatestCharge.Transfer.AmountReversed
		}
	}
	if pi.Metadata != nil {
		view.ReleaseTransferID = pi.Metadata[metadataReleaseTransfer]
	}
	if pi.LastPaymentError != nil {
		view.FailureMsg = pi.LastPaymentError.Msg
	}
	return view
}

func mapIntentState(pi *stripe.PaymentIntent) PaymentState {
	switch pi.Status {
	case stripe.PaymentIntentStatusRequiresCapture:
		return StateAuthorized
	case stripe.PaymentIntentStatusSucceeded:
		return StateCaptured
	case stripe.PaymentIntentStatusCanceled:
		return StateCanceled
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		if pi.LastPaymentError != nil {
			return StateFailed
		}
		return StateAwaitingBuyer
	case stripe.PaymentIntentStatusRequiresConfirmation,
		stripe.PaymentIntentStatusRequiresAction,
		stripe.PaymentIntentStatusProcessing:
		return StateAwaitingBuyer
	default:
		return StateUnknown
	}
}

func accountFromStripe(acct *stripe.Account) *Account {
	return &Account{
		ID:               acct.ID,
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
	}
}

func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return err
	}

	code := CodeRejected
	switch stripeErr.Code {
	case "resource_missing":
		code = CodeNotFound
		if strings.HasPrefix(stripeErr.Param, "transfer_data") || stripeErr.Param == "destination" {
			code = CodeInvalidAccount
		}
	case "payment_intent_unexpected_state", "charge_already_refunded", "charge_already_captured", "charge_expired_for_capture":
		code = CodeInvalidState
	case "amount_too_large", "amount_too_small", "charge_exceeds_source_limit":
		code = CodeInvalidAmount
	case "balance_insufficient", "insufficient_funds":
		code = CodeInsufficientFunds
	case "account_invalid", "account_country_invalid_address", "country_unsupported", "transfers_not_allowed", "platform_account_required":
		code = CodeInvalidAccount
	}

	message := stripeErr.Msg
	if message == "" {
		message = string(stripeErr.Code)
	}
	return &Error{Code: code, Message: message}
}

func cancellationReason(reason string) string {
	switch strings.ToLower(strings.TrimSpace(reason)) {
	case "duplicate":
		return string(stripe.PaymentIntentCancellationReasonDuplicate)
	case "fraudulent":
		return string(stripe.PaymentIntentCancellationReasonFraudulent)
	case "abandoned":
		return string(stripe.PaymentIntentCancellationReasonAbandoned)
	default:
		return string(stripe.PaymentIntentCancellationReasonRequestedByCustomer)
	}
}

func refundReason(reason string) string {
	switch strings.ToLower(strings.TrimSpace(reason)) {
	case "duplicate":
		return string(stripe.RefundReasonDuplicate)
	case "fraudulent":
		return string(stripe.RefundReasonFraudulent)
	case "":
		return ""
	default:
		return string(stripe.RefundReasonRequestedByCustomer)
	}
}
