package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"

	"github.com/lojapijamas/storefront/internal/auth"
	"github.com/lojapijamas/storefront/internal/background"
	"github.com/lojapijamas/storefront/internal/config"
	"github.com/lojapijamas/storefront/internal/database"
	"github.com/lojapijamas/storefront/internal/events"
	"github.com/lojapijamas/storefront/internal/handlers"
	"github.com/lojapijamas/storefront/internal/metrics"
	middlewareCustom "github.com/lojapijamas/storefront/internal/middleware"
	"github.com/lojapijamas/storefront/internal/payments"
	"github.com/lojapijamas/storefront/internal/repositories"
	"github.com/lojapijamas/storefront/internal/routes"
	"github.com/lojapijamas/storefront/internal/services"
	"github.com/lojapijamas/storefront/internal/shipping"
	"github.com/lojapijamas/storefront/internal/storage"
	"github.com/lojapijamas/storefront/internal/throttle"
	pkghttp "github.com/lojapijamas/storefront/pkg/http"
	pkglogger "github.com/lojapijamas/storefront/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	if err := db.Migrate(migrateCtx); err != nil {
		cancel()
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	cancel()

	userRepo := repositories.NewUserRepository(db)
	productRepo := repositories.NewProductRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	newsletterRepo := repositories.NewNewsletterRepository(db)
	verificationRepo := repositories.NewEmailVerificationRepository(db)

	loginStore, limiterStore := throttleStores(cfg.Redis, logger)
	loginThrottle := throttle.New(loginStore, throttle.Config{
		MaxAttempts:  cfg.Auth.LoginMaxAttempts,
		Window:       cfg.Auth.LoginWindow,
		LockDuration: cfg.Auth.LoginLock,
	}, logger)
	emailLimiter := throttle.NewRequestLimiter(limiterStore, cfg.Auth.EmailRequestMax, cfg.Auth.EmailRequestWindow, logger)

	publisher := orderPublisher(cfg.Kafka, logger)
	defer publisher.Close()

	mailer := services.NewSESMailer(sesClient(cfg.Email, logger), services.MailerConfig{
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		StoreEmail:  cfg.Email.StoreEmail,
	}, logger)

	images, err := storage.NewLocalStore(cfg.Storage.UploadDir, cfg.Storage.MaxUploadSize)
	if err != nil {
		logger.Error("failed to prepare upload directory", slog.Any("error", err))
		os.Exit(1)
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionExpiry)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:   250 * time.Millisecond,
		RandomDelay: 100 * time.Millisecond,
	})
	auditLogger := pkglogger.NewAuditLogger(logger)

	verificationService := services.NewEmailVerificationService(verificationRepo, mailer, cfg.Server.FrontendURL, cfg.Auth.VerificationExpiry, logger)
	authService := services.NewAuthService(
		userRepo,
		verificationService,
		mailer,
		tokenManager,
		loginThrottle,
		emailLimiter,
		timingDelay,
		services.AuthConfig{
			AdminEmail:    cfg.Auth.AdminEmail,
			AdminPassword: cfg.Auth.AdminPassword,
			FrontendURL:   cfg.Server.FrontendURL,
			NameMaxLen:    cfg.Auth.NameMaxLen,
			ResetExpiry:   cfg.Auth.ResetExpiry,
		},
		logger,
		auditLogger,
	)
	userService := services.NewUserService(userRepo, logger, auditLogger)
	productService := services.NewProductService(productRepo, images, logger)
	orderService := services.NewOrderService(orderRepo, userRepo, publisher, logger)
	newsletterService := services.NewNewsletterService(newsletterRepo, mailer, logger)
	contactService := services.NewContactService(mailer, logger)

	mpClient := payments.NewClient(cfg.Payment.APIBaseURL, cfg.Payment.AccessToken, cfg.Payment.LookupTimeout)
	checkout := payments.NewCheckout(mpClient, payments.CheckoutConfig{
		FrontendURL:         cfg.Server.FrontendURL,
		WebhookURL:          cfg.Payment.WebhookURL,
		StatementDescriptor: cfg.Payment.StatementDescriptor,
		Production:          cfg.Server.Env == "production",
	}, logger)
	reconciler := payments.NewReconciler(cfg.Payment.WebhookSecret, mpClient, orderRepo, publisher, logger)
	if cfg.Payment.WebhookSecret == "" {
		logger.Warn("MP_WEBHOOK_SECRET not set, webhook signature verification is disabled")
	}

	shippingService := shipping.NewService(productRepo, shipping.Config{
		Token:            cfg.Shipping.Token,
		CalculatorURL:    cfg.Shipping.CalculatorURL,
		OriginPostalCode: cfg.Shipping.OriginPostalCode,
		UserAgent:        cfg.Shipping.UserAgent,
		Timeout:          cfg.Shipping.Timeout,
	}, logger)

	ipConfig := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	h := routes.Handlers{
		Auth:       handlers.NewAuthHandler(authService, verificationService, auth.CookieConfigFor(cfg.Server.Env), ipConfig),
		Users:      handlers.NewUserHandler(userService),
		Products:   handlers.NewProductHandler(productService, cfg.Storage.MaxUploadSize),
		Orders:     handlers.NewOrderHandler(orderService),
		Payments:   handlers.NewPaymentHandler(checkout, reconciler, logger),
		Shipping:   handlers.NewShippingHandler(shippingService, logger),
		Newsletter: handlers.NewNewsletterHandler(newsletterService, contactService),
		Health:     handlers.NewHealthHandler(db, logger),
		Uploads:    images.Handler(),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(metrics.Middleware)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.NewCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, h, tokenManager, ipConfig)

	cleanupManager := background.NewCleanupManager(logger, cfg.Auth.CleanupInterval)
	cleanupManager.AddSweeper("login_throttle", loginThrottle)
	cleanupManager.AddSweeper("email_request_limiter", emailLimiter)
	cleanupManager.AddCleaner("verification_tokens", verificationService)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// throttleStores shares attempt counters through Redis when REDIS_ADDR is set
// and falls back to process memory otherwise.
func throttleStores(cfg config.RedisConfig, logger *slog.Logger) (throttle.Store, throttle.Store) {
	if cfg.Addr == "" {
		logger.Info("using in-memory throttle store")
		return throttle.NewMemoryStore(), throttle.NewMemoryStore()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, using in-memory throttle store", slog.Any("error", err))
		_ = rdb.Close()
		return throttle.NewMemoryStore(), throttle.NewMemoryStore()
	}

	logger.Info("using redis throttle store", slog.String("addr", cfg.Addr))
	return throttle.NewRedisStore(rdb, "login:"), throttle.NewRedisStore(rdb, "emailreq:")
}

func orderPublisher(cfg config.KafkaConfig, logger *slog.Logger) events.Publisher {
	if len(cfg.Brokers) == 0 {
		return events.NopPublisher{}
	}
	logger.Info("publishing order events to kafka", slog.String("topic", cfg.OrderTopic))
	return events.NewKafkaPublisher(cfg.Brokers, cfg.OrderTopic, logger)
}

// sesClient returns nil when email is not configured so the mailer reports
// the service as unavailable instead of failing at send time.
func sesClient(cfg config.EmailConfig, logger *slog.Logger) services.SESClient {
	if cfg.FromAddress == "" {
		logger.Warn("EMAIL_FROM not set, outbound email disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := services.NewSESClient(ctx, cfg.AWSRegion)
	if err != nil {
		logger.Error("failed to initialize SES client, outbound email disabled", slog.Any("error", err))
		return nil
	}
	return client
}
