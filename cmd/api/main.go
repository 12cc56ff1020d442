package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/go-chi/chi/v5"
	"github.com/googleapis/gax-go/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/di"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/handlers"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/auth"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/config"
	pfirestore "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/firestore"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/idempotency"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/jobs"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/observability"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/requestctx"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/secrets"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/repositories"
	firestoreRepo "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/repositories/firestore"
	redisRepo "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/repositories/redis"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/services"
)

const meterName = "github.com/vinkcol/novacore-ecommerce-template-sub000/cmd/api"

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
	ctx = requestctx.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(fetcher),
		config.WithRequiredSecrets(requiredSecretNames(envValues)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(envValues, cfg, startedAt)
	eventLogger := observability.NewEventLogger(logger.Named("services"))

	var clientOpts []option.ClientOption
	if credentialsFile := strings.TrimSpace(cfg.Firebase.CredentialsFile); credentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(credentialsFile))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore, pfirestore.WithClientOptions(clientOpts...))
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}

	healthChecks := []repositories.DependencyCheck{{Name: "firestore", Check: firestoreProvider.Ping}}
	registryOpts := []firestoreRepo.RegistryOption{firestoreRepo.WithSessionTTL(cfg.Session.TTL)}

	var redisClient goredis.UniversalClient
	if cfg.Session.Store == config.SessionStoreRedis {
		redisClient, err = newRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatal("failed to initialise redis client", zap.Error(err))
		}
		sessions, err := redisRepo.NewSessionRepository(redisClient, cfg.Redis.KeyPrefix, cfg.Session.TTL)
		if err != nil {
			logger.Fatal("failed to initialise redis session repository", zap.Error(err))
		}
		registryOpts = append(registryOpts, firestoreRepo.WithSessionStore(sessions.Carts(), sessions.Drafts(), sessions.Close))
		healthChecks = append(healthChecks, repositories.DependencyCheck{Name: "redis", Check: sessions.Ping})
	}

	registry, err := firestoreRepo.NewRegistry(firestoreProvider, registryOpts...)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	containerOpts := []di.Option{
		di.WithLogger(eventLogger),
		di.WithMeter(otel.GetMeterProvider().Meter(meterName)),
	}

	var orderTopic *pubsub.Topic
	var pubsubClient *pubsub.Client
	if topicID := strings.TrimSpace(cfg.PubSub.OrderEventsTopic); topicID != "" && cfg.PubSub.ProjectID != "" {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.PubSub.ProjectID, clientOpts...)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		orderTopic = pubsubClient.Topic(topicID)
		publisher, err := jobs.NewPubSubOrderEventPublisher(orderTopic)
		if err != nil {
			logger.Fatal("failed to initialise order event publisher", zap.Error(err))
		}
		containerOpts = append(containerOpts, di.WithOrderEvents(publisher))
		healthChecks = append(healthChecks, repositories.DependencyCheck{Name: "pubsub", Check: func(ctx context.Context) error {
			exists, err := orderTopic.Exists(ctx)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("topic %s not found", topicID)
			}
			return nil
		}})
	}

	container, err := di.NewContainer(ctx, cfg, registry, containerOpts...)
	if err != nil {
		logger.Fatal("failed to initialise services", zap.Error(err))
	}
	svc := container.Services

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	backgroundCtx = requestctx.WithLogger(backgroundCtx, logger.Named("background"))
	var backgroundWG sync.WaitGroup

	backgroundWG.Add(1)
	go func() {
		defer backgroundWG.Done()
		watchCommerceConfig(backgroundCtx, svc.Commerce, logger.Named("commerce"))
	}()

	var idempotencyStore idempotency.Store
	if redisClient != nil {
		idempotencyStore = idempotency.NewRedisStore(redisClient, cfg.Redis.KeyPrefix)
	} else {
		idempotencyStore = idempotency.NewFirestoreStore(firestoreClient, "")
	}
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewEventLogger(logger.Named("idempotency"))),
	)

	backgroundWG.Add(1)
	go func() {
		defer backgroundWG.Done()
		runIdempotencyCleanup(backgroundCtx, idempotencyStore, cfg.Idempotency, logger.Named("idempotency"))
	}()

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseVerifier)

	healthRepo, err := repositories.NewDependencyHealthRepository(healthChecks, time.Now)
	if err != nil {
		logger.Fatal("failed to initialise health checks", zap.Error(err))
	}
	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithHealthChecks(healthRepo),
	)

	publicHandlers := handlers.NewPublicHandlers(svc.Shipping, svc.Commerce)
	cartHandlers := handlers.NewCartHandlers(svc.Cart)
	checkoutHandlers := handlers.NewCheckoutHandlers(svc.Forms, svc.Checkout,
		handlers.WithSubmitRateLimit(cfg.Checkout.SubmitPerMinute),
		handlers.WithSubmitIdempotency(idempotencyMiddleware),
	)
	adminOrderHandlers := handlers.NewAdminOrderHandlers(svc.Orders)
	adminSettingsHandlers := handlers.NewAdminSettingsHandlers(svc.Shipping, svc.Commerce)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware(traceProjectID(cfg)),
		observability.InjectLoggerMiddleware(logger.Named("http")),
		handlers.SessionMiddleware(cfg.Session.Header),
		observability.RequestLoggerMiddleware(),
		observability.RecoveryMiddleware(logger.Named("http")),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithPublicRoutes(publicHandlers.Routes),
		handlers.WithCartRoutes(cartHandlers.Routes),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes),
		handlers.WithAdminRoutes(func(r chi.Router) {
			adminOrderHandlers.Routes(r)
			adminSettingsHandlers.Routes(r)
		}),
		handlers.WithAdminMiddlewares(authenticator.RequireRoles(auth.RoleAdmin, auth.RoleStaff)),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("novacore api listening",
			zap.String("sessionStore", cfg.Session.Store),
			zap.String("environment", buildInfo.Environment),
		)
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

	backgroundCancel()
	backgroundWG.Wait()

	if orderTopic != nil {
		orderTopic.Stop()
	}
	if pubsubClient != nil {
		if err := pubsubClient.Close(); err != nil {
			logger.Warn("pubsub close error", zap.Error(err))
		}
	}
	if err := container.Close(shutdownCtx); err != nil {
		logger.Warn("repository close error", zap.Error(err))
	}
}

// watchCommerceConfig keeps the commerce configuration subscription alive,
// reconnecting with backoff whenever the listener drops.
func watchCommerceConfig(ctx context.Context, commerce services.CommerceConfigService, logger *zap.Logger) {
	backoff := gax.Backoff{Initial: time.Second, Max: time.Minute, Multiplier: 2}
	for {
		err := commerce.Start(ctx)
		if ctx.Err() != nil {
			return
		}
		pause := backoff.Pause()
		if err != nil {
			logger.Warn("commerce config watch stopped; reconnecting", zap.Error(err), zap.Duration("retryIn", pause))
		}
		if err := gax.Sleep(ctx, pause); err != nil {
			return
		}
	}
}

func runIdempotencyCleanup(ctx context.Context, store idempotency.Store, cfg config.IdempotencyConfig, logger *zap.Logger) {
	if cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, time.Minute)
			removed, err := store.CleanupExpired(runCtx, time.Now().UTC(), cfg.CleanupBatchSize)
			cancel()
			if err != nil {
				logger.Error("idempotency cleanup error", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("idempotency cleanup removed records", zap.Int("count", removed))
			}
		case <-ctx.Done():
			return
		}
	}
}

func newRedisClient(cfg config.RedisConfig) (goredis.UniversalClient, error) {
	opts, err := goredis.ParseURL(strings.TrimSpace(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if password := strings.TrimSpace(cfg.Password); password != "" {
		opts.Password = password
	}
	return goredis.NewClient(opts), nil
}

func buildInfoFromEnv(env map[string]string, cfg config.Config, started time.Time) handlers.BuildInfo {
	version := strings.TrimSpace(env["API_BUILD_VERSION"])
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(env["API_BUILD_COMMIT_SHA"])
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Security.Environment)
	if environment == "" {
		environment = "local"
	}
	return handlers.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		if env == nil {
			return ""
		}
		return strings.TrimSpace(env[key])
	}

	project := lookup("API_SECRET_DEFAULT_PROJECT_ID")
	if project == "" {
		project = lookup("API_FIREBASE_PROJECT_ID")
	}
	fallbackPath := lookup("API_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if project != "" {
		opts = append(opts, secrets.WithProject(project))
	}
	if credentialsFile := lookup("API_FIREBASE_CREDENTIALS_FILE"); credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}
	return secrets.NewFetcher(ctx, opts...)
}

// requiredSecretNames lists secrets that must resolve to a non-empty value.
// Redis credentials are only required when Redis backs the session store.
func requiredSecretNames(env map[string]string) []string {
	if env == nil {
		return nil
	}
	if strings.EqualFold(strings.TrimSpace(env["API_SESSION_STORE"]), config.SessionStoreRedis) {
		return []string{"Redis.URL"}
	}
	return nil
}
