package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-escrow/app/entity"
	"github.com/vibast-solutions/ms-go-escrow/app/factory"
	"github.com/vibast-solutions/ms-go-escrow/app/metrics"
	"github.com/vibast-solutions/ms-go-escrow/app/provider"
	"github.com/vibast-solutions/ms-go-escrow/config"
)

const (
	defaultBatchSize          = int32(100)
	defaultPlatformFeePercent = 5

	opCreatePayment       = "create_payment"
	opCapturePayment      = "capture_payment"
	opReleasePayment      = "release_payment"
	opRefundPayment       = "refund_payment"
	opCancelPayment       = "cancel_payment"
	opCreateSellerAccount = "create_seller_account"
	opSellerAccountStatus = "seller_account_status"
	opSellerBalance       = "seller_balance"
	opPaymentStatus       = "payment_status"
)

type createPaymentRequest interface {
	GetAmount() int64
	GetCurrency() string
	GetBuyerId() string
	GetSellerId() string
	GetSellerPayoutAccountId() string
	GetOrderId() string
	GetListingTitle() string
	HasPlatformFeePercent() bool
	GetPlatformFeePercent() float64
	GetMetadata() map[string]string
}

type releasePaymentRequest interface {
	GetPaymentReferenceId() string
	GetSellerPayoutAccountId() string
	GetAmount() int64
	GetOrderId() string
}

type refundPaymentRequest interface {
	GetPaymentReferenceId() string
	HasAmount() bool
	GetAmount() int64
	GetReason() string
	GetOrderId() string
}

type cancelPaymentRequest interface {
	GetPaymentReferenceId() string
	GetReason() string
}

type createSellerAccountRequest interface {
	GetUserId() string
	GetEmail() string
	GetBusinessName() string
	GetCountry() string
}

type escrowEventRepository interface {
	Create(ctx context.Context, event *entity.EscrowEvent) error
	ListLatestNonTerminal(ctx context.Context, before time.Time, limit int32) ([]*entity.EscrowEvent, error)
}

// escrowEngine performs already validated operations. The live engine talks
// to a payment processor; the sandbox engine fabricates results offline.
type escrowEngine interface {
	createPayment(ctx context.Context, in *paymentInput) (*entity.PaymentOutcome, error)
	capturePayment(ctx context.Context, reference string) (*entity.PaymentOutcome, error)
	releasePayment(ctx context.Context, in *releaseInput) (*entity.PayoutOutcome, error)
	refundPayment(ctx context.Context, in *refundInput) (*entity.RefundOutcome, error)
	cancelPayment(ctx context.Context, reference, reason string) (*entity.PaymentOutcome, error)
	createSellerAccount(ctx context.Context, in *sellerAccountInput) (*entity.SellerAccountOutcome, error)
	sellerAccountStatus(ctx context.Context, accountID string) (*entity.SellerAccountStatus, error)
	sellerBalance(ctx context.Context, accountID string) (*entity.SellerBalance, error)
	paymentStatus(ctx context.Context, reference string) (*entity.PaymentStatusReport, error)
}

type paymentInput struct {
	amount        int64
	currency      string
	buyerID       string
	sellerID      string
	payoutAccount string
	orderID       string
	listingTitle  string
	platformFee   int64
	sellerAmount  int64
	metadata      map[string]string
}

type releaseInput struct {
	reference     string
	payoutAccount string
	amount        int64
	orderID       string
}

type refundInput struct {
	reference string
	// amount is zero when the caller asked for a full refund.
	amount  int64
	reason  string
	orderID string
}

type sellerAccountInput struct {
	userID       string
	email        string
	businessName string
	country      string
}

type EscrowService struct {
	engine    escrowEngine
	eventRepo escrowEventRepository
	escrowCfg config.EscrowConfig
	logger    logrus.FieldLogger
}

// NewEscrowService picks the engine once from the configured processor mode.
// In sandbox mode the processor is never called and may be nil. eventRepo is
// optional.
func NewEscrowService(processor provider.Processor, eventRepo escrowEventRepository, escrowCfg config.EscrowConfig) *EscrowService {
	logger := factory.NewModuleLogger("escrow-service")

	var engine escrowEngine
	if escrowCfg.Mode == config.ProcessorModeSandbox {
		engine = newSandboxEngine()
	} else {
		engine = &processorEngine{processor: processor, logger: logger}
	}

	return &EscrowService{
		engine:    engine,
		eventRepo: eventRepo,
		escrowCfg: escrowCfg,
		logger:    logger,
	}
}

func (s *EscrowService) Sandbox() bool {
	_, ok := s.engine.(*sandboxEngine)
	return ok
}

func (s *EscrowService) CreatePayment(ctx context.Context, req createPaymentRequest) (*entity.PaymentOutcome, error) {
	started := time.Now()

	in, failure := s.newPaymentInput(req)
	if failure != nil {
		outcome := &entity.PaymentOutcome{Failure: failure}
		s.finish(ctx, opCreatePayment, started, req.GetOrderId(), "", 0, outcome.Status, outcome.Failure, nil)
		return outcome, nil
	}

	outcome, err := s.engine.createPayment(ctx, in)
	if err != nil {
		s.finish(ctx, opCreatePayment, started, in.orderID, "", in.amount, "", nil, err)
		return nil, err
	}
	s.finish(ctx, opCreatePayment, started, in.orderID, outcome.PaymentReferenceID, in.amount, outcome.Status, outcome.Failure, nil)
	return outcome, nil
}

func (s *EscrowService) CapturePayment(ctx context.Context, paymentReferenceID string) (*entity.PaymentOutcome, error) {
	started := time.Now()

	reference := strings.TrimSpace(paymentReferenceID)
	if reference == "" {
		outcome := &entity.PaymentOutcome{Failure: validationFailure("payment_reference_id is required")}
		s.finish(ctx, opCapturePayment, started, "", "", 0, "", outcome.Failure, nil)
		return outcome, nil
	}

	outcome, err := s.engine.capturePayment(ctx, reference)
	if err != nil {
		s.finish(ctx, opCapturePayment, started, "", reference, 0, "", nil, err)
		return nil, err
	}
	s.finish(ctx, opCapturePayment, started, "", reference, 0, outcome.Status, outcome.Failure, nil)
	return outcome, nil
}

func (s *EscrowService) ReleasePaymentToSeller(ctx context.Context, req releasePaymentRequest) (*entity.PayoutOutcome, error) {
	started := time.Now()

	in := &releaseInput{
		reference:     strings.TrimSpace(req.GetPaymentReferenceId()),
		payoutAccount: strings.TrimSpace(req.GetSellerPayoutAccountId()),
		amount:        req.GetAmount(),
		orderID:       strings.TrimSpace(req.GetOrderId()),
	}

	var failure *entity.Failure
	switch {
	case in.reference == "":
		failure = validationFailure("payment_reference_id is required")
	case in.orderID == "":
		failure = validationFailure("order_id is required")
	case in.amount <= 0:
		failure = validationFailure("amount must be > 0")
	case in.payoutAccount == "":
		failure = entity.NewFailure(entity.FailureInvalidAccount, "seller payout account is required")
	}
	if failure != nil {
		outcome := &entity.PayoutOutcome{Failure: failure}
		s.finish(ctx, opReleasePayment, started, in.orderID, in.reference, in.amount, "", failure, nil)
		return outcome, nil
	}

	outcome, err := s.engine.releasePayment(ctx, in)
	if err != nil {
		s.finish(ctx, opReleasePayment, started, in.orderID, in.reference, in.amount, "", nil, err)
		return nil, err
	}

	status := entity.PaymentStatus("")
	if outcome.Succeeded() {
		status = entity.StatusSettled
	}
	s.finish(ctx, opReleasePayment, started, in.orderID, in.reference, outcome.Amount, status, outcome.Failure, nil)
	return outcome, nil
}

func (s *EscrowService) ProcessRefund(ctx context.Context, req refundPaymentRequest) (*entity.RefundOutcome, error) {
	started := time.Now()

	in := &refundInput{
		reference: strings.TrimSpace(req.GetPaymentReferenceId()),
		reason:    strings.TrimSpace(req.GetReason()),
		orderID:   strings.TrimSpace(req.GetOrderId()),
	}
	if req.HasAmount() {
		in.amount = req.GetAmount()
	}

	var failure *entity.Failure
	switch {
	case in.reference == "":
		failure = validationFailure("payment_reference_id is required")
	case in.orderID == "":
		failure = validationFailure("order_id is required")
	case req.HasAmount() && in.amount <= 0:
		failure = validationFailure("amount must be > 0 when provided")
	}
	if failure != nil {
		outcome := &entity.RefundOutcome{Failure: failure}
		s.finish(ctx, opRefundPayment, started, in.orderID, in.reference, in.amount, "", failure, nil)
		return outcome, nil
	}

	outcome, err := s.engine.refundPayment(ctx, in)
	if err != nil {
		s.finish(ctx, opRefundPayment, started, in.orderID, in.reference, in.amount, "", nil, err)
		return nil, err
	}
	s.finish(ctx, opRefundPayment, started, in.orderID, in.reference, outcome.Amount, outcome.Status, outcome.Failure, nil)
	return outcome, nil
}

func (s *EscrowService) CancelPayment(ctx context.Context, req cancelPaymentRequest) (*entity.PaymentOutcome, error) {
	started := time.Now()

	reference := strings.TrimSpace(req.GetPaymentReferenceId())
	if reference == "" {
		outcome := &entity.PaymentOutcome{Failure: validationFailure("payment_reference_id is required")}
		s.finish(ctx, opCancelPayment, started, "", "", 0, "", outcome.Failure, nil)
		return outcome, nil
	}

	outcome, err := s.engine.cancelPayment(ctx, reference, strings.TrimSpace(req.GetReason()))
	if err != nil {
		s.finish(ctx, opCancelPayment, started, "", reference, 0, "", nil, err)
		return nil, err
	}
	s.finish(ctx, opCancelPayment, started, "", reference, 0, outcome.Status, outcome.Failure, nil)
	return outcome, nil
}

func (s *EscrowService) CreateSellerAccount(ctx context.Context, req createSellerAccountRequest) (*entity.SellerAccountOutcome, error) {
	started := time.Now()

	in := &sellerAccountInput{
		userID:       strings.TrimSpace(req.GetUserId()),
		email:        strings.TrimSpace(req.GetEmail()),
		businessName: strings.TrimSpace(req.GetBusinessName()),
		country:      strings.ToUpper(strings.TrimSpace(req.GetCountry())),
	}

	var failure *entity.Failure
	switch {
	case in.userID == "":
		failure = validationFailure("user_id is required")
	case in.email == "" || !strings.Contains(in.email, "@"):
		failure = validationFailure("email is invalid")
	case len(in.country) != 2:
		failure = validationFailure("country must be a 2 letter code")
	}
	if failure != nil {
		s.observe(opCreateSellerAccount, started, failure, nil)
		return &entity.SellerAccountOutcome{Failure: failure}, nil
	}

	outcome, err := s.engine.createSellerAccount(ctx, in)
	s.observe(opCreateSellerAccount, started, failureOf(outcome), err)
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (s *EscrowService) GetSellerAccountStatus(ctx context.Context, accountID string) (*entity.SellerAccountStatus, error) {
	started := time.Now()

	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		failure := validationFailure("account_id is required")
		s.observe(opSellerAccountStatus, started, failure, nil)
		return &entity.SellerAccountStatus{Failure: failure}, nil
	}

	status, err := s.engine.sellerAccountStatus(ctx, accountID)
	s.observe(opSellerAccountStatus, started, failureOf(status), err)
	if err != nil {
		return nil, err
	}
	return status, nil
}

func (s *EscrowService) GetSellerBalance(ctx context.Context, accountID string) (*entity.SellerBalance, error) {
	started := time.Now()

	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		failure := validationFailure("account_id is required")
		s.observe(opSellerBalance, started, failure, nil)
		return &entity.SellerBalance{Failure: failure}, nil
	}

	balance, err := s.engine.sellerBalance(ctx, accountID)
	s.observe(opSellerBalance, started, failureOf(balance), err)
	if err != nil {
		return nil, err
	}
	return balance, nil
}

func (s *EscrowService) GetPaymentStatus(ctx context.Context, paymentReferenceID string) (*entity.PaymentStatusReport, error) {
	started := time.Now()

	reference := strings.TrimSpace(paymentReferenceID)
	if reference == "" {
		failure := validationFailure("payment_reference_id is required")
		s.observe(opPaymentStatus, started, failure, nil)
		return &entity.PaymentStatusReport{Failure: failure}, nil
	}

	report, err := s.engine.paymentStatus(ctx, reference)
	s.observe(opPaymentStatus, started, failureOf(report), err)
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *EscrowService) newPaymentInput(req createPaymentRequest) (*paymentInput, *entity.Failure) {
	in := &paymentInput{
		amount:        req.GetAmount(),
		currency:      strings.ToUpper(strings.TrimSpace(req.GetCurrency())),
		buyerID:       strings.TrimSpace(req.GetBuyerId()),
		sellerID:      strings.TrimSpace(req.GetSellerId()),
		payoutAccount: strings.TrimSpace(req.GetSellerPayoutAccountId()),
		orderID:       strings.TrimSpace(req.GetOrderId()),
		listingTitle:  strings.TrimSpace(req.GetListingTitle()),
		metadata:      cloneMetadata(req.GetMetadata()),
	}

	switch {
	case in.amount <= 0:
		return nil, validationFailure("amount must be > 0")
	case len(in.currency) != 3:
		return nil, validationFailure("currency must be 3 letters")
	case in.buyerID == "":
		return nil, validationFailure("buyer_id is required")
	case in.sellerID == "":
		return nil, validationFailure("seller_id is required")
	case in.orderID == "":
		return nil, validationFailure("order_id is required")
	}

	percent := decimal.NewFromFloat(s.defaultFeePercent())
	if req.HasPlatformFeePercent() {
		percent = decimal.NewFromFloat(req.GetPlatformFeePercent())
	}

	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return nil, validationFailure("platform_fee_percent must be within [0,100]")
	}

	fee, err := ComputePlatformFee(in.amount, percent)
	if err != nil {
		return nil, validationFailure(err.Error())
	}
	in.platformFee = fee
	in.sellerAmount = in.amount - fee

	return in, nil
}

func (s *EscrowService) defaultFeePercent() float64 {
	if percent := s.escrowCfg.DefaultPlatformFeePercent; percent != nil {
		return *percent
	}
	return defaultPlatformFeePercent
}

func (s *EscrowService) batchSize() int32 {
	if s.escrowCfg.JobBatchSize > 0 {
		return s.escrowCfg.JobBatchSize
	}
	return defaultBatchSize
}

// finish records metrics and appends a journal row for a payment operation.
func (s *EscrowService) finish(
	ctx context.Context,
	op string,
	started time.Time,
	orderID string,
	reference string,
	amount int64,
	status entity.PaymentStatus,
	failure *entity.Failure,
	err error,
) {
	s.observe(op, started, failure, err)

	if s.eventRepo == nil || err != nil {
		return
	}

	event := &entity.EscrowEvent{
		OrderID:            orderID,
		PaymentReferenceID: reference,
		EventType:          op,
		Amount:             amount,
		CreatedAt:          time.Now().UTC(),
	}
	if status != "" {
		value := string(status)
		event.Status = &value
	}
	if failure != nil {
		kind := string(failure.Kind)
		event.FailureKind = &kind
		event.Message = normalizeOptionalString(failure.Message)
	}

	_ = s.eventRepo.Create(ctx, event)
}

func (s *EscrowService) observe(op string, started time.Time, failure *entity.Failure, err error) {
	result := "ok"
	switch {
	case err != nil:
		result = "error"
		entry := s.logger.WithError(err).WithField("operation", op)
		if errors.Is(err, provider.ErrProcessorUnavailable) {
			entry.Warn("Escrow operation short-circuited")
		} else {
			entry.Error("Escrow operation failed")
		}
	case failure != nil:
		result = string(failure.Kind)
	}
	metrics.ObserveOperation(op, result, started)
}

type failureCarrier interface {
	*entity.SellerAccountOutcome | *entity.SellerAccountStatus | *entity.SellerBalance | *entity.PaymentStatusReport
}

func failureOf[T failureCarrier](outcome T) *entity.Failure {
	switch v := any(outcome).(type) {
	case *entity.SellerAccountOutcome:
		if v != nil {
			return v.Failure
		}
	case *entity.SellerAccountStatus:
		if v != nil {
			return v.Failure
		}
	case *entity.SellerBalance:
		if v != nil {
			return v.Failure
		}
	case *entity.PaymentStatusReport:
		if v != nil {
			return v.Failure
		}
	}
	return nil
}

func validationFailure(message string) *entity.Failure {
	return entity.NewFailure(entity.FailureValidation, message)
}

// processorFailure converts a processor refusal into an outcome failure.
// Anything else is a transport or context error and is returned unchanged.
func processorFailure(err error, retryable bool) (*entity.Failure, error) {
	perr, ok := provider.AsError(err)
	if !ok {
		return nil, err
	}

	failure := &entity.Failure{Message: perr.Message}
	switch perr.Code {
	case provider.CodeNotFound:
		failure.Kind = entity.FailureNotFound
	case provider.CodeInvalidState:
		failure.Kind = entity.FailureInvalidState
	case provider.CodeInvalidAmount:
		failure.Kind = entity.FailureInvalidAmount
	case provider.CodeInsufficientFunds:
		failure.Kind = entity.FailureInsufficientFunds
	case provider.CodeInvalidAccount:
		failure.Kind = entity.FailureInvalidAccount
	default:
		failure.Kind = entity.FailureProcessor
		failure.Retryable = retryable
	}
	return failure, nil
}

func invalidState(status entity.PaymentStatus, action string) *entity.Failure {
	return entity.NewFailure(entity.FailureInvalidState, fmt.Sprintf("cannot %s a %s payment", action, status))
}

func normalizeOptionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func cloneMetadata(src map[string]string) map[string]string {
	if len(src) == 0 {
		return map[string]string{}
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
