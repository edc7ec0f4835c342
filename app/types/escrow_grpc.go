package types

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

// CodecName is the gRPC content-subtype the escrow messages travel as.
const CodecName = "json"

const (
	EscrowService_Health_FullMethodName                 = "/escrow.EscrowService/Health"
	EscrowService_CreatePayment_FullMethodName          = "/escrow.EscrowService/CreatePayment"
	EscrowService_GetPaymentStatus_FullMethodName       = "/escrow.EscrowService/GetPaymentStatus"
	EscrowService_CapturePayment_FullMethodName         = "/escrow.EscrowService/CapturePayment"
	EscrowService_CancelPayment_FullMethodName          = "/escrow.EscrowService/CancelPayment"
	EscrowService_ReleasePayment_FullMethodName         = "/escrow.EscrowService/ReleasePayment"
	EscrowService_RefundPayment_FullMethodName          = "/escrow.EscrowService/RefundPayment"
	EscrowService_CreateSellerAccount_FullMethodName    = "/escrow.EscrowService/CreateSellerAccount"
	EscrowService_GetSellerAccountStatus_FullMethodName = "/escrow.EscrowService/GetSellerAccountStatus"
	EscrowService_GetSellerBalance_FullMethodName       = "/escrow.EscrowService/GetSellerBalance"
	EscrowService_HandleProviderCallback_FullMethodName = "/escrow.EscrowService/HandleProviderCallback"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

type EscrowServiceServer interface {
	Health(context.Context, *HealthRequest) (*HealthResponse, error)
	CreatePayment(context.Context, *CreateEscrowPaymentRequest) (*PaymentOutcomeResponse, error)
	GetPaymentStatus(context.Context, *PaymentReferenceRequest) (*PaymentStatusResponse, error)
	CapturePayment(context.Context, *PaymentReferenceRequest) (*PaymentOutcomeResponse, error)
	CancelPayment(context.Context, *CancelEscrowPaymentRequest) (*PaymentOutcomeResponse, error)
	ReleasePayment(context.Context, *ReleaseEscrowPaymentRequest) (*PayoutOutcomeResponse, error)
	RefundPayment(context.Context, *RefundEscrowPaymentRequest) (*RefundOutcomeResponse, error)
	CreateSellerAccount(context.Context, *CreateSellerAccountRequest) (*SellerAccountResponse, error)
	GetSellerAccountStatus(context.Context, *SellerAccountRequest) (*SellerAccountStatusResponse, error)
	GetSellerBalance(context.Context, *SellerAccountRequest) (*SellerBalanceResponse, error)
	HandleProviderCallback(context.Context, *HandleProviderCallbackRequest) (*MessageResponse, error)
}

// UnimplementedEscrowServiceServer can be embedded to stay forward compatible.
type UnimplementedEscrowServiceServer struct{}

func (UnimplementedEscrowServiceServer) Health(context.Context, *HealthRequest) (*HealthResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Health not implemented")
}

func (UnimplementedEscrowServiceServer) CreatePayment(context.Context, *CreateEscrowPaymentRequest) (*PaymentOutcomeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreatePayment not implemented")
}

func (UnimplementedEscrowServiceServer) GetPaymentStatus(context.Context, *PaymentReferenceRequest) (*PaymentStatusResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetPaymentStatus not implemented")
}

func (UnimplementedEscrowServiceServer) CapturePayment(context.Context, *PaymentReferenceRequest) (*PaymentOutcomeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CapturePayment not implemented")
}

func (UnimplementedEscrowServiceServer) CancelPayment(context.Context, *CancelEscrowPaymentRequest) (*PaymentOutcomeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CancelPayment not implemented")
}

func (UnimplementedEscrowServiceServer) ReleasePayment(context.Context, *ReleaseEscrowPaymentRequest) (*PayoutOutcomeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ReleasePayment not implemented")
}

func (UnimplementedEscrowServiceServer) RefundPayment(context.Context, *RefundEscrowPaymentRequest) (*RefundOutcomeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RefundPayment not implemented")
}

func (UnimplementedEscrowServiceServer) CreateSellerAccount(context.Context, *CreateSellerAccountRequest) (*SellerAccountResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateSellerAccount not implemented")
}

func (UnimplementedEscrowServiceServer) GetSellerAccountStatus(context.Context, *SellerAccountRequest) (*SellerAccountStatusResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSellerAccountStatus not implemented")
}

func (UnimplementedEscrowServiceServer) GetSellerBalance(context.Context, *SellerAccountRequest) (*SellerBalanceResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSellerBalance not implemented")
}

func (UnimplementedEscrowServiceServer) HandleProviderCallback(context.Context, *HandleProviderCallbackRequest) (*MessageResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method HandleProviderCallback not implemented")
}

func RegisterEscrowServiceServer(s grpc.ServiceRegistrar, srv EscrowServiceServer) {
	s.RegisterService(&EscrowService_ServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](fullMethod string, call func(EscrowServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(EscrowServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(EscrowServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var EscrowService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "escrow.EscrowService",
	HandlerType: (*EscrowServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Health", Handler: unaryHandler(EscrowService_Health_FullMethodName, EscrowServiceServer.Health)},
		{MethodName: "CreatePayment", Handler: unaryHandler(EscrowService_CreatePayment_FullMethodName, EscrowServiceServer.CreatePayment)},
		{MethodName: "GetPaymentStatus", Handler: unaryHandler(EscrowService_GetPaymentStatus_FullMethodName, EscrowServiceServer.GetPaymentStatus)},
		{MethodName: "CapturePayment", Handler: unaryHandler(EscrowService_CapturePayment_FullMethodName, EscrowServiceServer.CapturePayment)},
		{MethodName: "CancelPayment", Handler: unaryHandler(EscrowService_CancelPayment_FullMethodName, EscrowServiceServer.CancelPayment)},
		{MethodName: "ReleasePayment", Handler: unaryHandler(EscrowService_ReleasePayment_FullMethodName, EscrowServiceServer.ReleasePayment)},
		{MethodName: "RefundPayment", Handler: unaryHandler(EscrowService_RefundPayment_FullMethodName, EscrowServiceServer.RefundPayment)},
		{MethodName: "CreateSellerAccount", Handler: unaryHandler(EscrowService_CreateSellerAccount_FullMethodName, EscrowServiceServer.CreateSellerAccount)},
		{MethodName: "GetSellerAccountStatus", Handler: unaryHandler(EscrowService_GetSellerAccountStatus_FullMethodName, EscrowServiceServer.GetSellerAccountStatus)},
		{MethodName: "GetSellerBalance", Handler: unaryHandler(EscrowService_GetSellerBalance_FullMethodName, EscrowServiceServer.GetSellerBalance)},
		{MethodName: "HandleProviderCallback", Handler: unaryHandler(EscrowService_HandleProviderCallback_FullMethodName, EscrowServiceServer.HandleProviderCallback)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "escrow.proto",
}

// EscrowServiceClient is the caller side of escrow.EscrowService. Every call
// is sent with the JSON content-subtype.
type EscrowServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewEscrowServiceClient(cc grpc.ClientConnInterface) *EscrowServiceClient {
	return &EscrowServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *EscrowServiceClient, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *EscrowServiceClient) Health(ctx context.Context, in *HealthRequest, opts ...grpc.CallOption) (*HealthResponse, error) {
	return invoke[HealthResponse](ctx, c, EscrowService_Health_FullMethodName, in, opts)
}

func (c *EscrowServiceClient) CreatePayment(ctx context.Context, in *CreateEscrowPaymentRequest, opts ...grpc.CallOption) (*PaymentOutcomeResponse, error) {
	return invoke[PaymentOutcomeResponse](ctx, c, EscrowService_CreatePayment_FullMethodName, in, opts)
}

func (c *EscrowServiceClient) GetPaymentStatus(ctx context.Context, in *PaymentReferenceRequest, opts ...grpc.CallOption) (*PaymentStatusResponse, error) {
	return invoke[PaymentStatusResponse](ctx, c, EscrowService_GetPaymentStatus_FullMethodName, in, opts)
}

func (c *EscrowServiceClient) CapturePayment(ctx context.Context, in *PaymentReferenceRequest, opts ...grpc.CallOption) (*PaymentOutcomeResponse, error) {
	return invoke[PaymentOutcomeResponse](ctx, c, EscrowService_CapturePayment_FullMethodName, in, opts)
}

func (c *EscrowServiceClient) CancelPayment(ctx context.Context, in *CancelEscrowPaymentRequest, opts ...grpc.CallOption) (*PaymentOutcomeResponse, error) {
	return invoke[PaymentOutcomeResponse](ctx, c, EscrowService_CancelPayment_FullMethodName, in, opts)
}

func (c *EscrowServiceClient) ReleasePayment(ctx context.Context, in *ReleaseEscrowPaymentRequest, opts ...grpc.CallOption) (*PayoutOutcomeResponse, error) {
	return invoke[PayoutOutcomeResponse](ctx, c, EscrowService_ReleasePayment_FullMethodName, in, opts)
}

func (c *EscrowServiceClient) RefundPayment(ctx context.Context, in *RefundEscrowPaymentRequest, opts ...grpc.CallOption) (*RefundOutcomeResponse, error) {
	return invoke[RefundOutcomeResponse](ctx, c, EscrowService_RefundPayment_FullMethodName, in, opts)
}

func (c *EscrowServiceClient) CreateSellerAccount(ctx context.Context, in *CreateSellerAccountRequest, opts ...grpc.CallOption) (*SellerAccountResponse, error) {
	return invoke[SellerAccountResponse](ctx, c, EscrowService_CreateSellerAccount_FullMethodName, in, opts)
}

func (c *EscrowServiceClient) GetSellerAccountStatus(ctx context.Context, in *SellerAccountRequest, opts ...grpc.CallOption) (*SellerAccountStatusResponse, error) {
	return invoke[SellerAccountStatusResponse](ctx, c, EscrowService_GetSellerAccountStatus_FullMethodName, in, opts)
}

func (c *EscrowServiceClient) GetSellerBalance(ctx context.Context, in *SellerAccountRequest, opts ...grpc.CallOption) (*SellerBalanceResponse, error) {
	return invoke[SellerBalanceResponse](ctx, c, EscrowService_GetSellerBalance_FullMethodName, in, opts)
}

func (c *EscrowServiceClient) HandleProviderCallback(ctx context.Context, in *HandleProviderCallbackRequest, opts ...grpc.CallOption) (*MessageResponse, error) {
	return invoke[MessageResponse](ctx, c, EscrowService_HandleProviderCallback_FullMethodName, in, opts)
}
