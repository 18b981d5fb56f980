package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/soukly/api/internal/di"
	"github.com/soukly/api/internal/handlers"
	"github.com/soukly/api/internal/payments"
	"github.com/soukly/api/internal/platform/auth"
	"github.com/soukly/api/internal/platform/config"
	"github.com/soukly/api/internal/platform/events"
	pfirestore "github.com/soukly/api/internal/platform/firestore"
	"github.com/soukly/api/internal/platform/observability"
	"github.com/soukly/api/internal/platform/secrets"
	pstorage "github.com/soukly/api/internal/platform/storage"
	firestoreRepo "github.com/soukly/api/internal/repositories/firestore"
	"github.com/soukly/api/internal/services"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	fetcher, err := secrets.NewFetcher(ctx,
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithEnvironment(cfg.Environment),
		secrets.WithDefaultProject(cfg.Secrets.ProjectID),
		secrets.WithFallbackFile(cfg.Secrets.FallbackPath),
	)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg.PSP.StripeAPIKey, err = resolveSecret(ctx, fetcher, cfg.PSP.StripeAPIKey)
	if err != nil {
		logger.Fatal("failed to resolve stripe api key", zap.Error(err))
	}
	cfg.PSP.StripeWebhookSecret, err = resolveSecret(ctx, fetcher, cfg.PSP.StripeWebhookSecret)
	if err != nil {
		logger.Fatal("failed to resolve stripe webhook secret", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	registry, err := firestoreRepo.NewRegistry(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	gateway, verifier := buildPaymentStack(logger, cfg)
	publisher, stopPublisher, err := buildPublisher(ctx, logger, cfg)
	if err != nil {
		logger.Fatal("failed to initialise event publisher", zap.Error(err))
	}
	defer stopPublisher()

	uploadSigner := buildUploadSigner(logger, cfg)

	container, err := di.NewContainer(ctx, cfg, registry, di.Deps{
		Gateway:   gateway,
		Publisher: publisher,
		Storage:   uploadSigner,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("failed to assemble services", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("container close error", zap.Error(err))
		}
	}()

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseVerifier)

	svc := container.Services
	productHandlers := handlers.NewProductHandlers(svc.Products)
	cartHandlers := handlers.NewCartHandlers(authenticator, svc.Carts)
	couponHandlers := handlers.NewCouponHandlers(authenticator, svc.Coupons)
	orderHandlers := handlers.NewOrderHandlers(authenticator, svc.Orders)
	adminHandlers := handlers.NewAdminHandlers(authenticator, svc.Products, svc.Coupons, svc.Orders, svc.Inventory)

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfoFromEnv(cfg, startedAt)),
		handlers.WithReadinessCheck("firestore", func(ctx context.Context) error {
			_, err := firestoreProvider.Client(ctx)
			return err
		}),
	)

	projectID := traceProjectID(cfg)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
	}

	opts := []handlers.Option{
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithProductRoutes(productHandlers.Routes),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithCouponRoutes(couponHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithAdminRoutes(adminHandlers.Routes),
	}
	if verifier != nil {
		webhookHandlers := handlers.NewWebhookHandlers(verifier, svc.Orders)
		opts = append(opts, handlers.WithWebhookRoutes(webhookHandlers.Routes))
	}

	router := handlers.NewRouter(opts...)
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("soukly api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// buildPaymentStack assembles the Stripe provider, checkout gateway, and
// webhook verifier. Card checkout and webhooks degrade when the relevant
// configuration is absent; CASH orders keep working either way.
func buildPaymentStack(logger *zap.Logger, cfg config.Config) (services.PaymentGateway, payments.WebhookVerifier) {
	var gateway services.PaymentGateway
	var verifier payments.WebhookVerifier

	if strings.TrimSpace(cfg.PSP.StripeAPIKey) == "" {
		logger.Warn("stripe api key missing; card checkout disabled")
	} else {
		paymentsLogger := logger.Named("payments")
		provider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
			APIKey: cfg.PSP.StripeAPIKey,
			Logger: func(ctx context.Context, event string, fields map[string]any) {
				zFields := make([]zap.Field, 0, len(fields)+1)
				zFields = append(zFields, zap.String("event", event))
				for k, v := range fields {
					zFields = append(zFields, zap.Any(k, v))
				}
				paymentsLogger.Debug("stripe log", zFields...)
			},
			Clock: time.Now,
		})
		if err != nil {
			logger.Fatal("failed to initialise stripe provider", zap.Error(err))
		}
		manager, err := payments.NewManager(map[string]payments.Provider{
			"stripe": provider,
		})
		if err != nil {
			logger.Fatal("failed to initialise payment manager", zap.Error(err))
		}
		if strings.TrimSpace(cfg.PSP.SuccessURL) == "" || strings.TrimSpace(cfg.PSP.CancelURL) == "" {
			logger.Warn("checkout redirect urls missing; card checkout disabled")
		} else {
			gw, err := payments.NewGateway(manager, payments.GatewayConfig{
				SuccessURL: cfg.PSP.SuccessURL,
				CancelURL:  cfg.PSP.CancelURL,
			})
			if err != nil {
				logger.Fatal("failed to initialise payment gateway", zap.Error(err))
			}
			gateway = gw
		}
	}

	if strings.TrimSpace(cfg.PSP.StripeWebhookSecret) == "" {
		logger.Warn("stripe webhook secret missing; webhook endpoint disabled")
	} else {
		v, err := payments.NewStripeWebhookVerifier(cfg.PSP.StripeWebhookSecret)
		if err != nil {
			logger.Fatal("failed to initialise webhook verifier", zap.Error(err))
		}
		verifier = v
	}

	return gateway, verifier
}

// buildPublisher connects the Pub/Sub topic used for order lifecycle events.
// The returned stop function flushes outstanding messages and closes the client.
func buildPublisher(ctx context.Context, logger *zap.Logger, cfg config.Config) (services.OrderEventPublisher, func(), error) {
	noop := func() {}
	if cfg.Events.Disabled {
		logger.Info("order event publishing disabled")
		return nil, noop, nil
	}
	if strings.TrimSpace(cfg.Events.ProjectID) == "" {
		logger.Warn("events project id missing; order event publishing disabled")
		return nil, noop, nil
	}

	client, err := pubsub.NewClient(ctx, cfg.Events.ProjectID)
	if err != nil {
		return nil, noop, fmt.Errorf("pubsub client: %w", err)
	}
	topic := client.Topic(cfg.Events.Topic)
	publisher, err := events.NewPubSubPublisher(topic)
	if err != nil {
		_ = client.Close()
		return nil, noop, err
	}

	stop := func() {
		topic.Stop()
		if err := client.Close(); err != nil {
			logger.Warn("pubsub close error", zap.Error(err))
		}
	}
	return publisher, stop, nil
}

// buildUploadSigner constructs the signed upload URL client when a signing
// identity is configured. Admin image uploads report unavailable without it.
func buildUploadSigner(logger *zap.Logger, cfg config.Config) services.AssetURLSigner {
	if strings.TrimSpace(cfg.Storage.ServiceAccountFile) == "" {
		logger.Warn("storage service account missing; image uploads disabled")
		return nil
	}
	signer, err := pstorage.NewServiceAccountSignerFromFile(cfg.Storage.ServiceAccountFile)
	if err != nil {
		logger.Fatal("failed to parse storage signer key", zap.Error(err))
	}
	client, err := pstorage.NewClient(signer)
	if err != nil {
		logger.Fatal("failed to initialise signed url client", zap.Error(err))
	}
	return client
}

// resolveSecret passes plain values through and resolves secret:// references
// via the fetcher.
func resolveSecret(ctx context.Context, fetcher *secrets.Fetcher, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "secret://") {
		return value, nil
	}
	return fetcher.Resolve(ctx, trimmed)
}

func buildInfoFromEnv(cfg config.Config, started time.Time) handlers.BuildInfo {
	version := strings.TrimSpace(os.Getenv("API_BUILD_VERSION"))
	if version == "" {
		version = "dev"
	}
	return handlers.BuildInfo{
		Version:     version,
		CommitSHA:   strings.TrimSpace(os.Getenv("API_BUILD_COMMIT")),
		Environment: cfg.Environment,
		StartedAt:   started,
	}
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firestore.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(os.Getenv("GOOGLE_CLOUD_PROJECT"))
}
