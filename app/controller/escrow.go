package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-escrow/app/entity"
	"github.com/vibast-solutions/ms-go-escrow/app/factory"
	"github.com/vibast-solutions/ms-go-escrow/app/mapper"
	"github.com/vibast-solutions/ms-go-escrow/app/provider"
	"github.com/vibast-solutions/ms-go-escrow/app/service"
	"github.com/vibast-solutions/ms-go-escrow/app/types"
)

type EscrowController struct {
	escrowService   *service.EscrowService
	callbackService *service.CallbackService
	logger          logrus.FieldLogger
}

func NewEscrowController(escrowService *service.EscrowService, callbackService *service.CallbackService) *EscrowController {
	return &EscrowController{
		escrowService:   escrowService,
		callbackService: callbackService,
		logger:          factory.NewModuleLogger("escrow-controller"),
	}
}

func (c *EscrowController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *EscrowController) CreatePayment(ctx echo.Context) error {
	req, err := types.NewCreateEscrowPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	outcome, err := c.escrowService.CreatePayment(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Create payment failed")
	}

	return ctx.JSON(statusFor(outcome.Failure, http.StatusCreated), mapper.PaymentOutcomeToProto(outcome))
}

func (c *EscrowController) GetPaymentStatus(ctx echo.Context) error {
	req, err := types.NewGetEscrowPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	report, err := c.escrowService.GetPaymentStatus(ctx.Request().Context(), req.GetPaymentReferenceId())
	if err != nil {
		return c.writeServiceError(ctx, err, "Get payment status failed")
	}

	return ctx.JSON(statusFor(report.Failure, http.StatusOK), mapper.PaymentStatusToProto(report))
}

func (c *EscrowController) CapturePayment(ctx echo.Context) error {
	req, err := types.NewGetEscrowPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	outcome, err := c.escrowService.CapturePayment(ctx.Request().Context(), req.GetPaymentReferenceId())
	if err != nil {
		return c.writeServiceError(ctx, err, "Capture payment failed")
	}

	return ctx.JSON(statusFor(outcome.Failure, http.StatusOK), mapper.PaymentOutcomeToProto(outcome))
}

func (c *EscrowController) CancelPayment(ctx echo.Context) error {
	req, err := types.NewCancelEscrowPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	outcome, err := c.escrowService.CancelPayment(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Cancel payment failed")
	}

	return ctx.JSON(statusFor(outcome.Failure, http.StatusOK), mapper.PaymentOutcomeToProto(outcome))
}

func (c *EscrowController) ReleasePayment(ctx echo.Context) error {
	req, err := types.NewReleaseEscrowPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	outcome, err := c.escrowService.ReleasePaymentToSeller(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Release payment failed")
	}

	return ctx.JSON(statusFor(outcome.Failure, http.StatusOK), mapper.PayoutOutcomeToProto(outcome))
}

func (c *EscrowController) RefundPayment(ctx echo.Context) error {
	req, err := types.NewRefundEscrowPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	outcome, err := c.escrowService.ProcessRefund(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Refund payment failed")
	}

	return ctx.JSON(statusFor(outcome.Failure, http.StatusOK), mapper.RefundOutcomeToProto(outcome))
}

func (c *EscrowController) CreateSellerAccount(ctx echo.Context) error {
	req, err := types.NewCreateSellerAccountRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	outcome, err := c.escrowService.CreateSellerAccount(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, err, "Create seller account failed")
	}

	return ctx.JSON(statusFor(outcome.Failure, http.StatusCreated), mapper.SellerAccountOutcomeToProto(outcome))
}

func (c *EscrowController) GetSellerAccountStatus(ctx echo.Context) error {
	req, err := types.NewSellerAccountRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	status, err := c.escrowService.GetSellerAccountStatus(ctx.Request().Context(), req.GetAccountId())
	if err != nil {
		return c.writeServiceError(ctx, err, "Get seller account status failed")
	}

	return ctx.JSON(statusFor(status.Failure, http.StatusOK), mapper.SellerAccountStatusToProto(status))
}

func (c *EscrowController) GetSellerBalance(ctx echo.Context) error {
	req, err := types.NewSellerAccountRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	balance, err := c.escrowService.GetSellerBalance(ctx.Request().Context(), req.GetAccountId())
	if err != nil {
		return c.writeServiceError(ctx, err, "Get seller balance failed")
	}

	return ctx.JSON(statusFor(balance.Failure, http.StatusOK), mapper.SellerBalanceToProto(balance))
}

func (c *EscrowController) HandleProviderCallback(ctx echo.Context) error {
	req, err := types.NewHandleProviderCallbackRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	_, err = c.callbackService.HandleProviderCallback(ctx.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateCallback):
			return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Provider callback already processed"})
		case errors.Is(err, service.ErrProviderUnsupported), errors.Is(err, service.ErrCallbackRejected):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Handle provider callback failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Provider callback processed"})
}

// statusFor maps an outcome failure to the HTTP status of the response that
// carries it.
func statusFor(failure *entity.Failure, okStatus int) int {
	if failure == nil {
		return okStatus
	}

	switch failure.Kind {
	case entity.FailureValidation:
		return http.StatusBadRequest
	case entity.FailureNotFound:
		return http.StatusNotFound
	case entity.FailureInvalidState:
		return http.StatusConflict
	case entity.FailureInvalidAmount, entity.FailureInvalidAccount, entity.FailureInsufficientFunds:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func (c *EscrowController) writeServiceError(ctx echo.Context, err error, message string) error {
	l := factory.LoggerWithContext(c.logger, ctx)
	if errors.Is(err, provider.ErrProcessorUnavailable) {
		l.WithError(err).Warn(message)
		return c.writeError(ctx, http.StatusServiceUnavailable, "payment processor unavailable")
	}

	l.WithError(err).Error(message)
	return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
}

func (c *EscrowController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
