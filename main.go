package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/milosamec/engravape/auth"
	"github.com/milosamec/engravape/cache"
	"github.com/milosamec/engravape/circuitbreaker"
	"github.com/milosamec/engravape/config"
	"github.com/milosamec/engravape/database"
	"github.com/milosamec/engravape/grpcserver"
	"github.com/milosamec/engravape/handlers"
	"github.com/milosamec/engravape/kafka"
	"github.com/milosamec/engravape/middleware"
	"github.com/milosamec/engravape/models"
	"github.com/milosamec/engravape/paypal"
	"github.com/milosamec/engravape/pricing"
	"github.com/milosamec/engravape/repository"
	"github.com/milosamec/engravape/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry
	shutdownTracing, err := middleware.InitTracing(cfg.App.Name, cfg.Tracing.JaegerEndpoint, cfg.Tracing.Enabled, logger)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// Initialize database
	db, err := database.InitDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db, logger); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	orderRepo := repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)
	userRepo := repository.NewUserRepository(db)

	// stays a nil interface when Redis is off
	var productCache services.ProductCache
	if cfg.Redis.Enabled {
		rdb, err := cache.InitRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		defer rdb.Close()
		productCache = cache.NewProductCache(rdb, cfg.Redis.TTL)
	}

	var events services.EventPublisher = kafka.NoopPublisher{}
	var publisher *kafka.Publisher
	if cfg.Kafka.Enabled {
		producer, err := kafka.InitProducer(cfg.Kafka.Brokers, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Kafka producer", zap.Error(err))
		}
		publisher = kafka.NewPublisher(producer, cfg.Kafka.OrderTopic, logger)
		events = publisher
	}

	var verifier services.PaymentVerifier = paypal.PassThrough{}
	if cfg.PayPal.Verify {
		client := paypal.NewClient(cfg.PayPal.BaseURL, cfg.PayPal.ClientID, cfg.PayPal.ClientSecret, cfg.PayPal.Timeout, logger)
		breaker := circuitbreaker.NewCircuitBreaker("paypal", 5, 30*time.Second,
			circuitbreaker.WithFailureFilter(func(err error) bool { return !paypal.IsRejection(err) }),
		)
		verifier = paypal.NewVerifier(client, cfg.PayPal.Currency, breaker, logger)
	} else {
		logger.Warn("PayPal verification is disabled, payment receipts are trusted as reported")
	}

	policy := pricing.NewPolicy(cfg.Pricing.FreeShippingThreshold, cfg.Pricing.FlatShipping, cfg.Pricing.TaxRate)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	productBreaker := circuitbreaker.NewCircuitBreaker("product-store", 5, 30*time.Second,
		circuitbreaker.WithFailureFilter(func(err error) bool { return !errors.Is(err, models.ErrNotFound) }),
	)

	orderService := services.NewOrderService(orderRepo, productRepo, verifier, events, policy, logger)
	userService := services.NewUserService(userRepo, tokens, logger)
	productService := services.NewProductService(productRepo, productCache, productBreaker, cfg.Catalog.PageSize, logger)

	if cfg.Auth.AdminEmail != "" && cfg.Auth.AdminPassword != "" {
		if err := userService.EnsureAdmin(ctx, cfg.Auth.AdminName, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			logger.Fatal("Failed to bootstrap admin account", zap.Error(err))
		}
	}

	// Consume relayed payment confirmations in background
	consumerDone := make(chan struct{})
	if cfg.Kafka.Enabled {
		consumer, err := kafka.InitConsumer(cfg.Kafka.Brokers, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Kafka consumer", zap.Error(err))
		}
		paymentConsumer := kafka.NewPaymentConsumer(consumer, cfg.Kafka.PaymentTopic, orderService, cfg.Kafka.MaxRetries, logger)
		go func() {
			defer close(consumerDone)
			defer consumer.Close()
			if err := paymentConsumer.Run(ctx); err != nil {
				logger.Error("Kafka consumer error", zap.Error(err))
			}
		}()
	} else {
		close(consumerDone)
	}

	// Setup REST API with Gin
	router := handlers.NewRouter(
		handlers.RouterConfig{
			ServiceName:    cfg.App.Name,
			UploadDir:      cfg.Upload.Dir,
			PayPalClientID: cfg.PayPal.ClientID,
		},
		handlers.Handlers{
			Orders:   handlers.NewOrderHandler(orderService, logger),
			Users:    handlers.NewUserHandler(userService, logger),
			Products: handlers.NewProductHandler(productService, logger),
			Uploads:  handlers.NewUploadHandler(cfg.Upload.Dir, cfg.Upload.MaxBytes, logger),
		},
		middleware.Auth(tokens, userRepo, logger),
		logger,
	)

	restSrv := &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := restSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start REST server", zap.Error(err))
		}
	}()

	logger.Info("REST API started", zap.String("addr", cfg.Server.HTTPAddr), zap.String("env", cfg.App.Env))

	// Start gRPC health server
	grpcListener, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Fatal("Failed to listen on gRPC port", zap.Error(err))
	}

	grpcServer := grpcserver.New(cfg.App.Name, db, 10*time.Second, logger)
	go grpcServer.Watch(ctx)
	go func() {
		if err := grpcServer.Serve(grpcListener); err != nil {
			logger.Fatal("Failed to start gRPC server", zap.Error(err))
		}
	}()

	logger.Info("gRPC health server started", zap.String("addr", cfg.Server.GRPCAddr))

	// Wait for interrupt signal
	<-ctx.Done()
	logger.Info("Shutting down servers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := restSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("REST server forced to shutdown", zap.Error(err))
	}

	grpcServer.GracefulStop()
	<-consumerDone

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close Kafka producer", zap.Error(err))
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Failed to flush traces", zap.Error(err))
	}

	logger.Info("Servers exited")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	if !cfg.App.IsProduction() {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build(zap.Fields(zap.String("service", cfg.App.Name)))
}
