package types

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
)

func NewCreateEscrowPaymentRequestFromContext(ctx echo.Context) (*CreateEscrowPaymentRequest, error) {
	var body CreateEscrowPaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.BuyerId = strings.TrimSpace(body.BuyerId)
	body.SellerId = strings.TrimSpace(body.SellerId)
	body.SellerPayoutAccountId = strings.TrimSpace(body.SellerPayoutAccountId)
	body.OrderId = strings.TrimSpace(body.OrderId)
	body.ListingTitle = strings.TrimSpace(body.ListingTitle)

	return &body, nil
}

// Validate only checks what the transport must carry. Business rules are
// reported by the service as VALIDATION_ERROR outcomes.
func (r *CreateEscrowPaymentRequest) Validate() error {
	if strings.TrimSpace(r.GetOrderId()) == "" {
		return errors.New("order_id is required")
	}
	return nil
}

func NewGetEscrowPaymentRequestFromContext(ctx echo.Context) (*PaymentReferenceRequest, error) {
	return &PaymentReferenceRequest{PaymentReferenceId: strings.TrimSpace(ctx.Param("reference"))}, nil
}

func (r *PaymentReferenceRequest) Validate() error {
	if strings.TrimSpace(r.GetPaymentReferenceId()) == "" {
		return errors.New("payment reference is required")
	}
	return nil
}

func NewCancelEscrowPaymentRequestFromContext(ctx echo.Context) (*CancelEscrowPaymentRequest, error) {
	var body CancelEscrowPaymentRequest
	if err := ctx.Bind(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	body.PaymentReferenceId = strings.TrimSpace(ctx.Param("reference"))
	body.Reason = strings.TrimSpace(body.Reason)

	return &body, nil
}

func (r *CancelEscrowPaymentRequest) Validate() error {
	if strings.TrimSpace(r.GetPaymentReferenceId()) == "" {
		return errors.New("payment reference is required")
	}
	return nil
}

func NewReleaseEscrowPaymentRequestFromContext(ctx echo.Context) (*ReleaseEscrowPaymentRequest, error) {
	var body ReleaseEscrowPaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.PaymentReferenceId = strings.TrimSpace(ctx.Param("reference"))
	body.SellerPayoutAccountId = strings.TrimSpace(body.SellerPayoutAccountId)
	body.OrderId = strings.TrimSpace(body.OrderId)

	return &body, nil
}

func (r *ReleaseEscrowPaymentRequest) Validate() error {
	if strings.TrimSpace(r.GetPaymentReferenceId()) == "" {
		return errors.New("payment reference is required")
	}
	return nil
}

func NewRefundEscrowPaymentRequestFromContext(ctx echo.Context) (*RefundEscrowPaymentRequest, error) {
	var body RefundEscrowPaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.PaymentReferenceId = strings.TrimSpace(ctx.Param("reference"))
	body.Reason = strings.TrimSpace(body.Reason)
	body.OrderId = strings.TrimSpace(body.OrderId)

	return &body, nil
}

func (r *RefundEscrowPaymentRequest) Validate() error {
	if strings.TrimSpace(r.GetPaymentReferenceId()) == "" {
		return errors.New("payment reference is required")
	}
	return nil
}

func NewCreateSellerAccountRequestFromContext(ctx echo.Context) (*CreateSellerAccountRequest, error) {
	var body CreateSellerAccountRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.UserId = strings.TrimSpace(body.UserId)
	body.Email = strings.TrimSpace(body.Email)
	body.BusinessName = strings.TrimSpace(body.BusinessName)
	body.Country = strings.ToUpper(strings.TrimSpace(body.Country))

	return &body, nil
}

func (r *CreateSellerAccountRequest) Validate() error {
	if strings.TrimSpace(r.GetUserId()) == "" {
		return errors.New("user_id is required")
	}
	return nil
}

func NewSellerAccountRequestFromContext(ctx echo.Context) (*SellerAccountRequest, error) {
	return &SellerAccountRequest{AccountId: strings.TrimSpace(ctx.Param("account"))}, nil
}

func (r *SellerAccountRequest) Validate() error {
	if strings.TrimSpace(r.GetAccountId()) == "" {
		return errors.New("account id is required")
	}
	return nil
}

// NewHandleProviderCallbackRequestFromContext keeps the raw body untouched
// because webhook signatures are computed over the exact bytes received.
// Relayed deliveries may wrap the payload as {"payload":..,"signature":..}.
func NewHandleProviderCallbackRequestFromContext(ctx echo.Context) (*HandleProviderCallbackRequest, error) {
	provider := strings.TrimSpace(strings.ToLower(ctx.Param("provider")))
	requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
	signature := strings.TrimSpace(ctx.Request().Header.Get("Stripe-Signature"))
	if signature == "" {
		signature = strings.TrimSpace(ctx.Request().Header.Get("X-Provider-Signature"))
	}

	rawBody, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}

	req := &HandleProviderCallbackRequest{
		RequestId: requestID,
		Provider:  provider,
		Signature: signature,
		Payload:   string(rawBody),
	}

	var body struct {
		Payload   string `json:"payload"`
		Signature string `json:"signature"`
	}
	if len(rawBody) > 0 && json.Unmarshal(rawBody, &body) == nil {
		if strings.TrimSpace(body.Payload) != "" {
			req.Payload = body.Payload
		}
		if strings.TrimSpace(body.Signature) != "" {
			req.Signature = strings.TrimSpace(body.Signature)
		}
	}

	return req, nil
}

func (r *HandleProviderCallbackRequest) Validate() error {
	if strings.TrimSpace(r.GetProvider()) == "" {
		return errors.New("provider is required")
	}
	if strings.TrimSpace(r.GetSignature()) == "" {
		return errors.New("provider signature is required")
	}
	if strings.TrimSpace(r.GetPayload()) == "" {
		return errors.New("payload is required")
	}
	return nil
}
