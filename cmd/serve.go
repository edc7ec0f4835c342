package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-escrow/app/controller"
	escrowgrpc "github.com/vibast-solutions/ms-go-escrow/app/grpc"
	"github.com/vibast-solutions/ms-go-escrow/app/metrics"
	"github.com/vibast-solutions/ms-go-escrow/app/provider"
	"github.com/vibast-solutions/ms-go-escrow/app/repository"
	"github.com/vibast-solutions/ms-go-escrow/app/service"
	"github.com/vibast-solutions/ms-go-escrow/app/types"
	"github.com/vibast-solutions/ms-go-escrow/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

// Paths that are called by the processor or by scrapers rather than by
// internal services.
var publicPathPrefixes = []string{"/webhooks/", "/metrics"}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start both HTTP (Echo) and gRPC servers for the escrow service.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	deps, cleanup := mustCreateEscrowService()
	defer cleanup()
	cfg := deps.cfg

	escrowController := controller.NewEscrowController(deps.escrowService, deps.callbackService)
	grpcEscrowServer := escrowgrpc.NewServer(deps.escrowService, deps.callbackService)

	authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), cfg.InternalEndpoints.AuthGRPCAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
	}
	defer authGRPCClient.Close()

	internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
	echoInternalAuthMiddleware := authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService)
	grpcInternalAuthMiddleware := authmiddleware.NewGRPCInternalAuthMiddleware(internalAuthService)

	e := setupHTTPServer(escrowController, echoInternalAuthMiddleware, cfg.App.ServiceName)
	grpcSrv, lis := setupGRPCServer(cfg, grpcEscrowServer, grpcInternalAuthMiddleware, cfg.App.ServiceName)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithFields(logrus.Fields{
			"addr": httpAddr,
			"mode": cfg.Escrow.Mode,
		}).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	go func() {
		logrus.WithField("addr", lis.Addr().String()).Info("Starting gRPC server")
		if err := grpcSrv.Serve(lis); err != nil {
			logrus.WithError(err).Fatal("gRPC server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}
	grpcSrv.GracefulStop()

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	escrowController *controller.EscrowController,
	internalAuthMiddleware *authmiddleware.EchoInternalAuthMiddleware,
	appServiceName string,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			if v.RequestID != "" {
				fields["request_id"] = v.RequestID
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(metrics.Middleware())
	e.Use(skipPublicPaths(requireRequestID()))
	e.Use(skipPublicPaths(internalAuthMiddleware.RequireInternalAccess(appServiceName)))

	e.GET("/health", escrowController.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	payments := e.Group("/escrow/payments")
	payments.POST("", escrowController.CreatePayment)
	payments.GET("/:reference", escrowController.GetPaymentStatus)
	payments.POST("/:reference/capture", escrowController.CapturePayment)
	payments.POST("/:reference/cancel", escrowController.CancelPayment)
	payments.POST("/:reference/release", escrowController.ReleasePayment)
	payments.POST("/:reference/refunds", escrowController.RefundPayment)

	sellers := e.Group("/escrow/sellers")
	sellers.POST("", escrowController.CreateSellerAccount)
	sellers.GET("/:account", escrowController.GetSellerAccountStatus)
	sellers.GET("/:account/balance", escrowController.GetSellerBalance)

	webhooks := e.Group("/webhooks/providers")
	webhooks.POST("/:provider", escrowController.HandleProviderCallback)

	return e
}

func requireRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "x-request-id header is required"})
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

func skipPublicPaths(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		guarded := mw(next)
		return func(ctx echo.Context) error {
			path := ctx.Request().URL.Path
			for _, prefix := range publicPathPrefixes {
				if strings.HasPrefix(path, prefix) {
					return next(ctx)
				}
			}
			return guarded(ctx)
		}
	}
}

func setupGRPCServer(
	cfg *config.Config,
	escrowServer *escrowgrpc.Server,
	internalAuthMiddleware *authmiddleware.GRPCInternalAuthMiddleware,
	appServiceName string,
) (*grpc.Server, net.Listener) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			escrowgrpc.RecoveryInterceptor(),
			escrowgrpc.RequestIDInterceptor(),
			escrowgrpc.LoggingInterceptor(),
			internalAuthMiddleware.UnaryRequireInternalAccess(appServiceName),
		),
	)
	types.RegisterEscrowServiceServer(grpcSrv, escrowServer)

	return grpcSrv, lis
}

type escrowDeps struct {
	cfg             *config.Config
	escrowService   *service.EscrowService
	callbackService *service.CallbackService
}

func mustCreateEscrowService() (*escrowDeps, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	eventRepo := repository.NewEscrowEventRepository(db)
	callbackRepo := repository.NewProviderCallbackRepository(db)

	processorLogger := logrus.WithField("module", "stripe-processor")
	stripeProvider := provider.NewStripeProvider(provider.StripeConfig{
		SecretKey:            cfg.Stripe.SecretKey,
		WebhookSecret:        cfg.Stripe.WebhookSecret,
		OnboardingRefreshURL: cfg.Stripe.OnboardingRefreshURL,
		OnboardingReturnURL:  cfg.Stripe.OnboardingReturnURL,
		HTTPTimeout:          cfg.Stripe.HTTPTimeout,
		APIBaseURL:           cfg.Stripe.APIBaseURL,
	}, processorLogger)
	processor := provider.NewBreakerProcessor(stripeProvider, provider.BreakerConfig{
		Interval:         cfg.Stripe.BreakerInterval,
		Timeout:          cfg.Stripe.BreakerOpenTimeout,
		FailureThreshold: cfg.Stripe.BreakerFailureThreshold,
	}, processorLogger)

	escrowService := service.NewEscrowService(processor, eventRepo, cfg.Escrow)
	callbackService := service.NewCallbackService(provider.NewRegistry(processor), callbackRepo, eventRepo)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return &escrowDeps{
		cfg:             cfg,
		escrowService:   escrowService,
		callbackService: callbackService,
	}, cleanup
}
