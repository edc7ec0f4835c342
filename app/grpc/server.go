package grpc

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-escrow/app/mapper"
	"github.com/vibast-solutions/ms-go-escrow/app/provider"
	"github.com/vibast-solutions/ms-go-escrow/app/service"
	"github.com/vibast-solutions/ms-go-escrow/app/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Server answers escrow operations over gRPC. Business failures travel in the
// response body with success=false; only transport problems become status
// errors.
type Server struct {
	types.UnimplementedEscrowServiceServer
	escrowService   *service.EscrowService
	callbackService *service.CallbackService
}

func NewServer(escrowService *service.EscrowService, callbackService *service.CallbackService) *Server {
	return &Server{escrowService: escrowService, callbackService: callbackService}
}

func (s *Server) Health(_ context.Context, _ *types.HealthRequest) (*types.HealthResponse, error) {
	return &types.HealthResponse{Status: "ok"}, nil
}

func (s *Server) CreatePayment(ctx context.Context, req *types.CreateEscrowPaymentRequest) (*types.PaymentOutcomeResponse, error) {
	l := loggerWithContext(ctx)
	if err := req.Validate(); err != nil {
		l.WithError(err).Debug("Create payment validation failed")
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	outcome, err := s.escrowService.CreatePayment(ctx, req)
	if err != nil {
		return nil, statusFromError(ctx, err, "Create payment failed")
	}

	return mapper.PaymentOutcomeToProto(outcome), nil
}

func (s *Server) GetPaymentStatus(ctx context.Context, req *types.PaymentReferenceRequest) (*types.PaymentStatusResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	report, err := s.escrowService.GetPaymentStatus(ctx, req.GetPaymentReferenceId())
	if err != nil {
		return nil, statusFromError(ctx, err, "Get payment status failed")
	}

	return mapper.PaymentStatusToProto(report), nil
}

func (s *Server) CapturePayment(ctx context.Context, req *types.PaymentReferenceRequest) (*types.PaymentOutcomeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	outcome, err := s.escrowService.CapturePayment(ctx, req.GetPaymentReferenceId())
	if err != nil {
		return nil, statusFromError(ctx, err, "Capture payment failed")
	}

	return mapper.PaymentOutcomeToProto(outcome), nil
}

func (s *Server) CancelPayment(ctx context.Context, req *types.CancelEscrowPaymentRequest) (*types.PaymentOutcomeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	outcome, err := s.escrowService.CancelPayment(ctx, req)
	if err != nil {
		return nil, statusFromError(ctx, err, "Cancel payment failed")
	}

	return mapper.PaymentOutcomeToProto(outcome), nil
}

func (s *Server) ReleasePayment(ctx context.Context, req *types.ReleaseEscrowPaymentRequest) (*types.PayoutOutcomeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	outcome, err := s.escrowService.ReleasePaymentToSeller(ctx, req)
	if err != nil {
		return nil, statusFromError(ctx, err, "Release payment failed")
	}

	return mapper.PayoutOutcomeToProto(outcome), nil
}

func (s *Server) RefundPayment(ctx context.Context, req *types.RefundEscrowPaymentRequest) (*types.RefundOutcomeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	outcome, err := s.escrowService.ProcessRefund(ctx, req)
	if err != nil {
		return nil, statusFromError(ctx, err, "Refund payment failed")
	}

	return mapper.RefundOutcomeToProto(outcome), nil
}

func (s *Server) CreateSellerAccount(ctx context.Context, req *types.CreateSellerAccountRequest) (*types.SellerAccountResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	outcome, err := s.escrowService.CreateSellerAccount(ctx, req)
	if err != nil {
		return nil, statusFromError(ctx, err, "Create seller account failed")
	}

	return mapper.SellerAccountOutcomeToProto(outcome), nil
}

func (s *Server) GetSellerAccountStatus(ctx context.Context, req *types.SellerAccountRequest) (*types.SellerAccountStatusResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	accountStatus, err := s.escrowService.GetSellerAccountStatus(ctx, req.GetAccountId())
	if err != nil {
		return nil, statusFromError(ctx, err, "Get seller account status failed")
	}

	return mapper.SellerAccountStatusToProto(accountStatus), nil
}

func (s *Server) GetSellerBalance(ctx context.Context, req *types.SellerAccountRequest) (*types.SellerBalanceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	balance, err := s.escrowService.GetSellerBalance(ctx, req.GetAccountId())
	if err != nil {
		return nil, statusFromError(ctx, err, "Get seller balance failed")
	}

	return mapper.SellerBalanceToProto(balance), nil
}

func (s *Server) HandleProviderCallback(ctx context.Context, req *types.HandleProviderCallbackRequest) (*types.MessageResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	_, err := s.callbackService.HandleProviderCallback(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateCallback):
			return &types.MessageResponse{Message: "Provider callback already processed"}, nil
		case errors.Is(err, service.ErrProviderUnsupported), errors.Is(err, service.ErrCallbackRejected):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		default:
			loggerWithContext(ctx).WithError(err).Error("Handle provider callback failed")
			return nil, status.Error(codes.Internal, "internal server error")
		}
	}

	return &types.MessageResponse{Message: "Provider callback processed"}, nil
}

func statusFromError(ctx context.Context, err error, message string) error {
	l := loggerWithContext(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, provider.ErrProcessorUnavailable):
		l.WithError(err).Warn(message)
		return status.Error(codes.Unavailable, "payment processor unavailable")
	default:
		l.WithError(err).Error(message)
		return status.Error(codes.Internal, "internal server error")
	}
}
