package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"atendebot/internal/infrastructure"
	"atendebot/internal/interfaces"
	httpiface "atendebot/internal/interfaces/http"
	"atendebot/internal/repository"
	"atendebot/internal/usecases"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func main() {
	// Load .env file; absent in containerized deploys
	_ = godotenv.Load()

	log, err := infrastructure.NewLogger(envOr("APP_ENV", "dev"))
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}
	defer log.Sync()

	lockTTL := envDuration("FLOW_LOCK_TTL", 30*time.Second)
	awaitGrace := envDuration("FLOW_AWAIT_GRACE", 30*time.Minute)
	pingGrace := envDuration("FLOW_PING_GRACE", 15*time.Minute)
	sweepInterval := envDuration("WATCHDOG_INTERVAL", time.Minute)
	threshold := envFloat("FALLBACK_THRESHOLD", usecases.DefaultFallbackThreshold)

	// Storage: Postgres when configured, in-memory demo mode otherwise.
	var (
		sessionStore interfaces.SessionStore
		messageStore interfaces.MessageStore
		configStore  interfaces.ConfigStore
		messageRepo  *repository.MessageRepository
		sessionRepo  *repository.SessionRepository
		configRepo   *repository.ConfigRepository
		auth         *usecases.AuthUsecase
	)
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		pgClient, err := infrastructure.NewPostgresClient(dsn)
		if err != nil {
			log.Fatal("failed to connect to database", "error", err)
		}
		defer pgClient.Close()

		sessionRepo = repository.NewSessionRepository(pgClient.Pool)
		messageRepo = repository.NewMessageRepository(pgClient.Pool)
		configRepo = repository.NewConfigRepository(pgClient.Pool)
		userRepo := repository.NewUserRepository(pgClient.Pool)
		tenantManager := repository.NewTenantManager(pgClient.Pool)

		sessionStore = sessionRepo
		messageStore = messageRepo
		configStore = configRepo

		auth = usecases.NewAuthUsecase(userRepo, tenantManager, os.Getenv("JWT_SECRET"))
		if err := auth.EnsureAdmin(context.Background(), envOr("ADMIN_USER", "root"), envOr("ADMIN_PASSWORD", "root")); err != nil {
			log.Warn("failed to ensure admin user", "error", err)
		}
	} else {
		log.Warn("DATABASE_URL not set, running with in-memory stores (demo mode)")
		sessionStore = infrastructure.NewMemorySessionStore()
		messageStore = infrastructure.NewMemoryMessageStore()
		configStore = infrastructure.NewMemoryConfigStore()
	}

	// Flow lock: redis in production, in-process in demo mode.
	var locks interfaces.LockManager
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb, err := infrastructure.NewRedisClient(addr, os.Getenv("REDIS_PASSWORD"), 0)
		if err != nil {
			log.Fatal("failed to connect to redis", "error", err)
		}
		defer rdb.Close()
		locks = infrastructure.NewRedisLockManager(rdb)
	} else {
		log.Warn("REDIS_ADDR not set, flow locks are process-local")
		locks = infrastructure.NewMemoryLockManager()
	}

	var fallback interfaces.FallbackClassifier
	if url := os.Getenv("FALLBACK_CLASSIFIER_URL"); url != "" {
		fallback = infrastructure.NewHTTPFallbackClassifier(url)
	}

	var action interfaces.DomainAction
	if url := os.Getenv("ACTION_SERVICE_URL"); url != "" {
		action = infrastructure.NewHTTPDomainAction(url)
	} else {
		log.Warn("ACTION_SERVICE_URL not set, using stub domain actions")
		action = infrastructure.NewStubDomainAction()
	}

	var messenger interfaces.ReplyMessenger
	if token, phoneID := os.Getenv("WHATSAPP_ACCESS_TOKEN"), os.Getenv("WHATSAPP_PHONE_NUMBER_ID"); token != "" && phoneID != "" {
		messenger = infrastructure.NewWhatsAppBusinessMessenger(token, phoneID)
	} else {
		messenger = infrastructure.NewLogMessenger(log)
	}

	classifier := usecases.NewClassifier(usecases.NewRuleTable(), fallback, threshold, log)
	replies := usecases.NewReplyCatalog(configStore)
	orchestrator := usecases.NewOrchestrator(locks, sessionStore, messageStore, classifier, action, replies, log, lockTTL, awaitGrace)
	watchdog := usecases.NewWatchdog(sessionStore, messageStore, locks, replies, messenger, log, sweepInterval, lockTTL, pingGrace)
	limiter := infrastructure.NewMessageRateLimiter(1, 5)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go watchdog.Start(ctx)

	if envOr("APP_ENV", "dev") == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	handler := httpiface.NewHandler(orchestrator, messageRepo, sessionRepo, configRepo, limiter, log)
	httpiface.SetupRoutes(r, handler, auth, httpiface.NewMiddleware(os.Getenv("JWT_SECRET")))

	srv := &http.Server{
		Addr:    "0.0.0.0:" + envOr("PORT", "8080"),
		Handler: r,
	}
	go func() {
		log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
