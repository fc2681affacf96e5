package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"teleshop-backend/internal/archive"
	"teleshop-backend/internal/auth"
	"teleshop-backend/internal/cache"
	"teleshop-backend/internal/config"
	"teleshop-backend/internal/database"
	"teleshop-backend/internal/db"
	"teleshop-backend/internal/handlers"
	"teleshop-backend/internal/health"
	h "teleshop-backend/internal/http"
	"teleshop-backend/internal/lock"
	"teleshop-backend/internal/middleware"
	"teleshop-backend/internal/monitoring"
	"teleshop-backend/internal/notify"
	"teleshop-backend/internal/reconcile"
	"teleshop-backend/internal/repositories"
	"teleshop-backend/internal/services"
)

func main() {
	port := flag.Int("port", 0, "Server port (overrides config)")
	monitorPort := flag.Int("monitor-port", 9090, "Monitoring sidecar port")
	flag.Parse()

	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}

	pool := db.Connect(cfg)
	defer pool.Close()

	// Redis is optional. Without it the cache becomes a no-op and batch
	// locking falls back to in-process locks, which is fine for a single
	// replica.
	var locker lock.KeyLocker = lock.NewLocalLocker()
	if cfg.Redis.Enabled {
		if err := cache.Init(cfg.Redis.Addr, cfg.Redis.DB); err != nil {
			log.Printf("[Redis] Cache unavailable: %v (using in-process locks)", err)
		} else {
			log.Println("[Redis] Connected successfully")
			locker = lock.NewRedisLocker(cache.GetClient(), cfg.LockTTL())
		}
	}

	migrator := database.NewMigrator(pool)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrator.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	healthChecker := health.NewHealthChecker(pool)
	jwtManager := auth.NewJWTManager(cfg)
	archiver := archive.New(cfg)

	// Repositories
	staffRepo := repositories.NewStaffRepository(pool)
	saleRepo := repositories.NewSaleRepository(pool)
	journalRepo := repositories.NewJournalRepository(pool)
	inventoryRepo := repositories.NewInventoryRepository(pool)
	simRepo := repositories.NewSimBatchRepository(pool)
	dailyRepo := repositories.NewDailyRepository(pool)
	reconcileRepo := repositories.NewReconcileRepository(pool)
	borrowRepo := repositories.NewBorrowRepository(pool)

	engine := reconcile.NewEngine(reconcileRepo, locker, cfg.LockWait())

	// Services
	authService := services.NewAuthService(staffRepo, jwtManager)
	uploadService := services.NewUploadService(engine, staffRepo, dailyRepo, simRepo, archiver, cfg.Upload.MaxRows)
	stockService := services.NewStockService(engine, inventoryRepo, staffRepo, journalRepo)
	reportService := services.NewReportService(saleRepo, dailyRepo)
	simBatchService := services.NewSimBatchService(simRepo)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	uploadHandler := handlers.NewUploadHandler(uploadService, authService)
	stockHandler := handlers.NewStockHandler(stockService, authService)
	reportHandler := handlers.NewReportHandler(reportService, stockService)
	simBatchHandler := handlers.NewSimBatchHandler(simBatchService)
	staffHandler := handlers.NewStaffHandler(staffRepo)
	borrowHandler := handlers.NewBorrowHandler(borrowRepo)
	healthHandler := handlers.NewHealthHandler(healthChecker)

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, staffRepo)
	corsMiddleware := middleware.NewCORS(cfg)

	// Alerts go to admin Telegram chats when a bot token is configured
	var notifier notify.Notifier
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		notifier = notify.NewTelegramService(token)
	} else {
		log.Println("[Notify] TELEGRAM_BOT_TOKEN not set, alerts will only be logged")
		notifier = notify.NewMockService()
	}

	// Ops sidecar on its own port
	go monitoring.NewMonitoringServer(pool, inventoryRepo, staffRepo, notifier, *monitorPort).Start()

	router := h.NewRouter(
		authHandler,
		uploadHandler,
		stockHandler,
		reportHandler,
		simBatchHandler,
		staffHandler,
		borrowHandler,
		healthHandler,
		authMiddleware,
	)

	handler := middleware.PanicRecovery(middleware.MetricsMiddleware(corsMiddleware(router)))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server running on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
