package types

// Messages shared by the HTTP and gRPC transports. Getters are nil-safe so
// handlers can read optional fields without checks.

type CreateEscrowPaymentRequest struct {
	Amount                int64             `json:"amount"`
	Currency              string            `json:"currency"`
	BuyerId               string            `json:"buyer_id"`
	SellerId              string            `json:"seller_id"`
	SellerPayoutAccountId string            `json:"seller_payout_account_id,omitempty"`
	OrderId               string            `json:"order_id"`
	ListingTitle          string            `json:"listing_title,omitempty"`
	PlatformFeePercent    *float64          `json:"platform_fee_percent,omitempty"`
	Metadata              map[string]string `json:"metadata,omitempty"`
}

func (x *CreateEscrowPaymentRequest) GetAmount() int64 {
	if x == nil {
		return 0
	}
	return x.Amount
}

func (x *CreateEscrowPaymentRequest) GetCurrency() string {
	if x == nil {
		return ""
	}
	return x.Currency
}

func (x *CreateEscrowPaymentRequest) GetBuyerId() string {
	if x == nil {
		return ""
	}
	return x.BuyerId
}

func (x *CreateEscrowPaymentRequest) GetSellerId() string {
	if x == nil {
		return ""
	}
	return x.SellerId
}

func (x *CreateEscrowPaymentRequest) GetSellerPayoutAccountId() string {
	if x == nil {
		return ""
	}
	return x.SellerPayoutAccountId
}

func (x *CreateEscrowPaymentRequest) GetOrderId() string {
	if x == nil {
		return ""
	}
	return x.OrderId
}

func (x *CreateEscrowPaymentRequest) GetListingTitle() string {
	if x == nil {
		return ""
	}
	return x.ListingTitle
}

func (x *CreateEscrowPaymentRequest) HasPlatformFeePercent() bool {
	return x != nil && x.PlatformFeePercent != nil
}

func (x *CreateEscrowPaymentRequest) GetPlatformFeePercent() float64 {
	if x == nil || x.PlatformFeePercent == nil {
		return 0
	}
	return *x.PlatformFeePercent
}

func (x *CreateEscrowPaymentRequest) GetMetadata() map[string]string {
	if x == nil {
		return nil
	}
	return x.Metadata
}

type PaymentReferenceRequest struct {
	PaymentReferenceId string `json:"payment_reference_id"`
}

func (x *PaymentReferenceRequest) GetPaymentReferenceId() string {
	if x == nil {
		return ""
	}
	return x.PaymentReferenceId
}

type CancelEscrowPaymentRequest struct {
	PaymentReferenceId string `json:"payment_reference_id"`
	Reason             string `json:"reason,omitempty"`
}

func (x *CancelEscrowPaymentRequest) GetPaymentReferenceId() string {
	if x == nil {
		return ""
	}
	return x.PaymentReferenceId
}

func (x *CancelEscrowPaymentRequest) GetReason() string {
	if x == nil {
		return ""
	}
	return x.Reason
}

type ReleaseEscrowPaymentRequest struct {
	PaymentReferenceId    string `json:"payment_reference_id"`
	SellerPayoutAccountId string `json:"seller_payout_account_id"`
	Amount                int64  `json:"amount"`
	OrderId               string `json:"order_id"`
}

func (x *ReleaseEscrowPaymentRequest) GetPaymentReferenceId() string {
	if x == nil {
		return ""
	}
	return x.PaymentReferenceId
}

func (x *ReleaseEscrowPaymentRequest) GetSellerPayoutAccountId() string {
	if x == nil {
		return ""
	}
	return x.SellerPayoutAccountId
}

func (x *ReleaseEscrowPaymentRequest) GetAmount() int64 {
	if x == nil {
		return 0
	}
	return x.Amount
}

func (x *ReleaseEscrowPaymentRequest) GetOrderId() string {
	if x == nil {
		return ""
	}
	return x.OrderId
}

type RefundEscrowPaymentRequest struct {
	PaymentReferenceId string `json:"payment_reference_id"`
	// Amount is omitted for a full refund.
	Amount  *int64 `json:"amount,omitempty"`
	Reason  string `json:"reason,omitempty"`
	OrderId string `json:"order_id"`
}

func (x *RefundEscrowPaymentRequest) GetPaymentReferenceId() string {
	if x == nil {
		return ""
	}
	return x.PaymentReferenceId
}

func (x *RefundEscrowPaymentRequest) HasAmount() bool {
	return x != nil && x.Amount != nil
}

func (x *RefundEscrowPaymentRequest) GetAmount() int64 {
	if x == nil || x.Amount == nil {
		return 0
	}
	return *x.Amount
}

func (x *RefundEscrowPaymentRequest) GetReason() string {
	if x == nil {
		return ""
	}
	return x.Reason
}

func (x *RefundEscrowPaymentRequest) GetOrderId() string {
	if x == nil {
		return ""
	}
	return x.OrderId
}

type CreateSellerAccountRequest struct {
	UserId       string `json:"user_id"`
	Email        string `json:"email"`
	BusinessName string `json:"business_name,omitempty"`
	Country      string `json:"country"`
}

func (x *CreateSellerAccountRequest) GetUserId() string {
	if x == nil {
		return ""
	}
	return x.UserId
}

func (x *CreateSellerAccountRequest) GetEmail() string {
	if x == nil {
		return ""
	}
	return x.Email
}

func (x *CreateSellerAccountRequest) GetBusinessName() string {
	if x == nil {
		return ""
	}
	return x.BusinessName
}

func (x *CreateSellerAccountRequest) GetCountry() string {
	if x == nil {
		return ""
	}
	return x.Country
}

type SellerAccountRequest struct {
	AccountId string `json:"account_id"`
}

func (x *SellerAccountRequest) GetAccountId() string {
	if x == nil {
		return ""
	}
	return x.AccountId
}

type HandleProviderCallbackRequest struct {
	RequestId string `json:"request_id"`
	Provider  string `json:"provider"`
	Signature string `json:"signature"`
	Payload   string `json:"payload"`
}

func (x *HandleProviderCallbackRequest) GetRequestId() string {
	if x == nil {
		return ""
	}
	return x.RequestId
}

func (x *HandleProviderCallbackRequest) GetProvider() string {
	if x == nil {
		return ""
	}
	return x.Provider
}

func (x *HandleProviderCallbackRequest) GetSignature() string {
	if x == nil {
		return ""
	}
	return x.Signature
}

func (x *HandleProviderCallbackRequest) GetPayload() string {
	if x == nil {
		return ""
	}
	return x.Payload
}

type Failure struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (x *Failure) GetKind() string {
	if x == nil {
		return ""
	}
	return x.Kind
}

func (x *Failure) GetMessage() string {
	if x == nil {
		return ""
	}
	return x.Message
}

func (x *Failure) GetRetryable() bool {
	if x == nil {
		return false
	}
	return x.Retryable
}

type PaymentOutcomeResponse struct {
	Success                  bool     `json:"success"`
	PaymentReferenceId       string   `json:"payment_reference_id,omitempty"`
	ClientAuthorizationToken string   `json:"client_authorization_token,omitempty"`
	Status                   string   `json:"status,omitempty"`
	PlatformFee              int64    `json:"platform_fee,omitempty"`
	SellerAmount             int64    `json:"seller_amount,omitempty"`
	Failure                  *Failure `json:"failure,omitempty"`
}

func (x *PaymentOutcomeResponse) GetSuccess() bool {
	if x == nil {
		return false
	}
	return x.Success
}

func (x *PaymentOutcomeResponse) GetPaymentReferenceId() string {
	if x == nil {
		return ""
	}
	return x.PaymentReferenceId
}

func (x *PaymentOutcomeResponse) GetClientAuthorizationToken() string {
	if x == nil {
		return ""
	}
	return x.ClientAuthorizationToken
}

func (x *PaymentOutcomeResponse) GetStatus() string {
	if x == nil {
		return ""
	}
	return x.Status
}

func (x *PaymentOutcomeResponse) GetPlatformFee() int64 {
	if x == nil {
		return 0
	}
	return x.PlatformFee
}

func (x *PaymentOutcomeResponse) GetSellerAmount() int64 {
	if x == nil {
		return 0
	}
	return x.SellerAmount
}

func (x *PaymentOutcomeResponse) GetFailure() *Failure {
	if x == nil {
		return nil
	}
	return x.Failure
}

type PayoutOutcomeResponse struct {
	Success             bool     `json:"success"`
	TransferReferenceId string   `json:"transfer_reference_id,omitempty"`
	Amount              int64    `json:"amount"`
	Failure             *Failure `json:"failure,omitempty"`
}

func (x *PayoutOutcomeResponse) GetSuccess() bool {
	if x == nil {
		return false
	}
	return x.Success
}

func (x *PayoutOutcomeResponse) GetTransferReferenceId() string {
	if x == nil {
		return ""
	}
	return x.TransferReferenceId
}

func (x *PayoutOutcomeResponse) GetAmount() int64 {
	if x == nil {
		return 0
	}
	return x.Amount
}

func (x *PayoutOutcomeResponse) GetFailure() *Failure {
	if x == nil {
		return nil
	}
	return x.Failure
}

type RefundOutcomeResponse struct {
	Success            bool     `json:"success"`
	RefundReferenceId  string   `json:"refund_reference_id,omitempty"`
	Amount             int64    `json:"amount"`
	Status             string   `json:"status,omitempty"`
	TransferReversalId string   `json:"transfer_reversal_id,omitempty"`
	ReversedAmount     int64    `json:"reversed_amount,omitempty"`
	Failure            *Failure `json:"failure,omitempty"`
}

func (x *RefundOutcomeResponse) GetSuccess() bool {
	if x == nil {
		return false
	}
	return x.Success
}

func (x *RefundOutcomeResponse) GetRefundReferenceId() string {
	if x == nil {
		return ""
	}
	return x.RefundReferenceId
}

func (x *RefundOutcomeResponse) GetAmount() int64 {
	if x == nil {
		return 0
	}
	return x.Amount
}

func (x *RefundOutcomeResponse) GetStatus() string {
	if x == nil {
		return ""
	}
	return x.Status
}

func (x *RefundOutcomeResponse) GetReversedAmount() int64 {
	if x == nil {
		return 0
	}
	return x.ReversedAmount
}

func (x *RefundOutcomeResponse) GetFailure() *Failure {
	if x == nil {
		return nil
	}
	return x.Failure
}

type SellerAccountResponse struct {
	Success       bool     `json:"success"`
	AccountId     string   `json:"account_id,omitempty"`
	OnboardingUrl string   `json:"onboarding_url,omitempty"`
	Failure       *Failure `json:"failure,omitempty"`
}

func (x *SellerAccountResponse) GetSuccess() bool {
	if x == nil {
		return false
	}
	return x.Success
}

func (x *SellerAccountResponse) GetAccountId() string {
	if x == nil {
		return ""
	}
	return x.AccountId
}

func (x *SellerAccountResponse) GetOnboardingUrl() string {
	if x == nil {
		return ""
	}
	return x.OnboardingUrl
}

func (x *SellerAccountResponse) GetFailure() *Failure {
	if x == nil {
		return nil
	}
	return x.Failure
}

type SellerAccountStatusResponse struct {
	Success           bool     `json:"success"`
	AccountId         string   `json:"account_id"`
	CanAcceptCharges  bool     `json:"can_accept_charges"`
	CanReceivePayouts bool     `json:"can_receive_payouts"`
	DetailsSubmitted  bool     `json:"details_submitted"`
	RequiresAction    bool     `json:"requires_action"`
	OnboardingUrl     string   `json:"onboarding_url,omitempty"`
	Failure           *Failure `json:"failure,omitempty"`
}

func (x *SellerAccountStatusResponse) GetSuccess() bool {
	if x == nil {
		return false
	}
	return x.Success
}

func (x *SellerAccountStatusResponse) GetRequiresAction() bool {
	if x == nil {
		return false
	}
	return x.RequiresAction
}

func (x *SellerAccountStatusResponse) GetFailure() *Failure {
	if x == nil {
		return nil
	}
	return x.Failure
}

type SellerBalanceResponse struct {
	Success             bool     `json:"success"`
	AccountId           string   `json:"account_id"`
	AvailableMinorUnits int64    `json:"available_minor_units"`
	PendingMinorUnits   int64    `json:"pending_minor_units"`
	Failure             *Failure `json:"failure,omitempty"`
}

func (x *SellerBalanceResponse) GetSuccess() bool {
	if x == nil {
		return false
	}
	return x.Success
}

func (x *SellerBalanceResponse) GetAvailableMinorUnits() int64 {
	if x == nil {
		return 0
	}
	return x.AvailableMinorUnits
}

func (x *SellerBalanceResponse) GetPendingMinorUnits() int64 {
	if x == nil {
		return 0
	}
	return x.PendingMinorUnits
}

func (x *SellerBalanceResponse) GetFailure() *Failure {
	if x == nil {
		return nil
	}
	return x.Failure
}

type PaymentStatusResponse struct {
	Success            bool     `json:"success"`
	PaymentReferenceId string   `json:"payment_reference_id"`
	Status             string   `json:"status,omitempty"`
	Currency           string   `json:"currency,omitempty"`
	Amount             int64    `json:"amount"`
	CapturedAmount     int64    `json:"captured_amount"`
	RefundedAmount     int64    `json:"refunded_amount"`
	Failure            *Failure `json:"failure,omitempty"`
}

func (x *PaymentStatusResponse) GetSuccess() bool {
	if x == nil {
		return false
	}
	return x.Success
}

func (x *PaymentStatusResponse) GetStatus() string {
	if x == nil {
		return ""
	}
	return x.Status
}

func (x *PaymentStatusResponse) GetCapturedAmount() int64 {
	if x == nil {
		return 0
	}
	return x.CapturedAmount
}

func (x *PaymentStatusResponse) GetRefundedAmount() int64 {
	if x == nil {
		return 0
	}
	return x.RefundedAmount
}

func (x *PaymentStatusResponse) GetFailure() *Failure {
	if x == nil {
		return nil
	}
	return x.Failure
}

type HealthResponse struct {
	Status string `json:"status"`
}

func (x *HealthResponse) GetStatus() string {
	if x == nil {
		return ""
	}
	return x.Status
}

type MessageResponse struct {
	Message string `json:"message"`
}

func (x *MessageResponse) GetMessage() string {
	if x == nil {
		return ""
	}
	return x.Message
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthRequest struct{}
