package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/example/contacts-backend/internal/api"
	"github.com/example/contacts-backend/internal/auth"
	"github.com/example/contacts-backend/internal/config"
	"github.com/example/contacts-backend/internal/core"
	"github.com/example/contacts-backend/internal/db"
	"github.com/example/contacts-backend/internal/db/sqlstore"
	"github.com/example/contacts-backend/internal/events"
	"github.com/example/contacts-backend/internal/geocoding"
	"github.com/example/contacts-backend/internal/middleware"
	"github.com/example/contacts-backend/internal/payment"
	"github.com/example/contacts-backend/internal/storage"
	"github.com/example/contacts-backend/pkg/cache"
	"github.com/example/contacts-backend/pkg/mailer"
	"github.com/example/contacts-backend/pkg/messagequeue"
)

func main() {
	// --- 1. Environment and logger ---
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	appConfig, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to load application configuration: %v", err)
	}

	zapLogger, err := newLogger(appConfig)
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)
	zapLogger.Info("Application configuration loaded",
		zap.String("store", appConfig.StoreDriver),
		zap.String("auth", appConfig.AuthProvider),
		zap.String("blobs", appConfig.BlobDriver))

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelInit()

	// --- 2. Firebase, only when a driver needs it ---
	var fbApp *firebase.App
	if appConfig.StoreDriver == config.StoreFirestore || appConfig.AuthProvider == config.AuthFirebase || appConfig.BlobDriver == config.BlobFirebase {
		fbApp, err = db.InitFirebaseApp(initCtx, appConfig, zapLogger)
		if err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firebase Admin SDK", zap.Error(err))
		}
	}

	// --- 3. Store ---
	store, err := openStore(initCtx, appConfig, fbApp, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to open store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			zapLogger.Warn("Failed to close store", zap.Error(err))
		}
	}()

	// --- 4. Identity provider ---
	var authProvider auth.Provider
	switch appConfig.AuthProvider {
	case config.AuthFirebase:
		authClient, err := fbApp.Auth(initCtx)
		if err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to get Firebase Auth client", zap.Error(err))
		}
		authProvider, err = auth.NewFirebaseProvider(initCtx, authClient, appConfig.FirebaseWebAPIKey, appConfig.CollaboratorTimeout)
		if err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firebase sign-in", zap.Error(err))
		}
	default:
		zapLogger.Warn("Using local identity provider; accounts are kept in memory")
		authProvider = auth.NewLocalProvider(appConfig.JWTSecret, appConfig.JWTTTL)
	}

	// --- 5. Document storage ---
	var blobs core.BlobStore
	var localBlobs *storage.LocalBlobStore
	switch appConfig.BlobDriver {
	case config.BlobFirebase:
		blobs, err = storage.NewFirebaseBlobStore(initCtx, fbApp, appConfig.FirebaseStorageBucket)
	default:
		localBlobs, err = storage.NewLocalBlobStore(appConfig.UploadDir, appConfig.PublicBaseURL)
		blobs = localBlobs
	}
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize document storage", zap.Error(err))
	}

	// --- 6. Cache and message queue ---
	var placesCache cache.Cache = cache.NewMemoryCache()
	if appConfig.RedisAddr != "" {
		rc, err := cache.NewRedisCache(initCtx, cache.NewRedisCacheConfig{
			Address:  appConfig.RedisAddr,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
		})
		if err != nil {
			zapLogger.Warn("Redis unavailable, falling back to in-memory cache", zap.Error(err))
		} else {
			defer rc.Close()
			placesCache = rc
		}
	}

	var mq messagequeue.MessageQueue
	if appConfig.RabbitMQURL != "" {
		rmq, err := messagequeue.NewRabbitMQService(messagequeue.NewRabbitMQServiceConfig{URL: appConfig.RabbitMQURL}, zapLogger)
		if err != nil {
			zapLogger.Warn("RabbitMQ unavailable, falling back to in-process queue", zap.Error(err))
		} else {
			mq = rmq
		}
	}
	if mq == nil {
		mq = messagequeue.NewInProcessQueue(256)
	}
	defer mq.Close()

	var receipts events.Sender
	if appConfig.SMTPEnabled() {
		m, err := mailer.New(mailer.Config{
			Host:     appConfig.SMTPHost,
			Port:     appConfig.SMTPPort,
			Username: appConfig.SMTPUser,
			Password: appConfig.SMTPPass,
			From:     appConfig.MailFrom,
		})
		if err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Invalid SMTP configuration", zap.Error(err))
		}
		receipts = m
	} else {
		zapLogger.Info("SMTP not configured, purchase receipts disabled")
	}

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	consumer := events.NewConsumer(mq, appConfig.EventsQueue, receipts, zapLogger)
	go func() {
		if err := consumer.Run(consumerCtx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("Event consumer stopped", zap.Error(err))
		}
	}()
	publisher := events.NewQueuePublisher(mq, appConfig.EventsQueue, zapLogger)

	// --- 7. External providers ---
	stripeProvider := payment.NewStripeProvider(appConfig.StripeSecretKey, appConfig.StripeWebhookSecret, zapLogger)
	placesProvider, err := geocoding.NewGoogleProvider(appConfig.GoogleMapsAPIKey, appConfig.PlacesLanguage)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Google Maps client", zap.Error(err))
	}

	// --- 8. Services ---
	timeout := appConfig.CollaboratorTimeout
	auditService := core.NewAuditService(store.Audit)
	creditService := core.NewCreditService(store.Credits, timeout)
	userService := core.NewUserService(store.Users, creditService, timeout)
	paymentService := core.NewPaymentService(stripeProvider, store.Payments, creditService, auditService, publisher, core.PaymentConfig{
		UnitPrice:  appConfig.UnitPrice,
		Currency:   appConfig.CreditCurrency,
		Packages:   appConfig.CreditPackages,
		MaxCredits: appConfig.MaxCreditsPerPurchase,
		Timeout:    timeout,
	}, zapLogger)
	documentService := core.NewDocumentService(blobs, appConfig.MaxUploadBytes, timeout)
	addressService := core.NewAddressService(placesProvider, placesCache, appConfig.PlacesCacheTTL, timeout, zapLogger)
	contactService := core.NewContactService(store.Contacts, documentService, auditService, timeout, zapLogger)
	workflow := core.NewContactWorkflow(core.WorkflowDeps{
		Contacts:  store.Contacts,
		Credits:   creditService,
		Payments:  paymentService,
		Documents: documentService,
		Addresses: addressService,
		Audit:     auditService,
		Events:    publisher,
		Timeout:   timeout,
		Logger:    zapLogger,
	})
	zapLogger.Info("Core services initialized")

	// --- 9. HTTP engine ---
	if strings.ToLower(appConfig.GinMode) == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.MaxMultipartMemory = appConfig.MaxUploadBytes + (1 << 20)
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware(appConfig))

	if localBlobs != nil {
		router.Static(staticPrefix(appConfig.PublicBaseURL), localBlobs.Root())
	}

	api.SetupRoutes(router, appConfig, zapLogger, api.Services{
		Auth:      authProvider,
		Users:     userService,
		Credits:   creditService,
		Payments:  paymentService,
		Contacts:  contactService,
		Submitter: workflow,
		Addresses: addressService,
	})

	// --- 10. Serve ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	zapLogger.Info("Starting HTTP server", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- 11. Graceful shutdown ---
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), appConfig.ShutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	stopConsumer()
	zapLogger.Info("Server exiting gracefully.")
}

func newLogger(appConfig *config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(appConfig.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewDevelopmentConfig()
	if strings.ToLower(appConfig.GinMode) == "release" {
		zc = zap.NewProductionConfig()
	}
	zc.Level = level
	return zc.Build()
}

func openStore(ctx context.Context, appConfig *config.Config, fbApp *firebase.App, logger *zap.Logger) (*db.Store, error) {
	switch appConfig.StoreDriver {
	case config.StoreFirestore:
		client, err := fbApp.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get Firestore client: %w", err)
		}
		return db.NewFirestoreStore(client), nil
	case config.StoreMySQL, config.StoreSQLite:
		s, err := sqlstore.Open(ctx, appConfig.StoreDriver, appConfig.DatabaseDSN, logger)
		if err != nil {
			return nil, err
		}
		return s.Store(), nil
	default:
		logger.Warn("Using in-memory store; data is lost on restart")
		return db.NewMemoryStore(), nil
	}
}

// staticPrefix is the path local uploads are served under, taken from
// PUBLIC_BASE_URL.
func staticPrefix(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "/files"
	}
	return strings.TrimSuffix(u.Path, "/")
}
