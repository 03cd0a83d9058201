package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"deal-chain.backend/internal/config"
	"deal-chain.backend/internal/infrastructure/blockchain"
	"deal-chain.backend/internal/infrastructure/bridge"
	"deal-chain.backend/internal/infrastructure/datasources/postgres"
	"deal-chain.backend/internal/infrastructure/jobs"
	"deal-chain.backend/internal/infrastructure/monitoring"
	"deal-chain.backend/internal/infrastructure/repositories"
	"deal-chain.backend/internal/interfaces/http/handlers"
	"deal-chain.backend/internal/interfaces/http/middleware"
	"deal-chain.backend/internal/usecases"
	"deal-chain.backend/pkg/jwt"
	"deal-chain.backend/pkg/logger"
	"deal-chain.backend/pkg/redis"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openDB     = postgres.NewConnection
	migrateDB  = postgres.Migrate
	newInvoker = func(rpcURL, privateKeyHex string) (blockchain.ChainInvoker, error) {
		invoker, err := blockchain.NewEscrowInvoker(rpcURL, privateKeyHex)
		if err != nil {
			return nil, err
		}
		return invoker, nil
	}
	runServer = func(r *gin.Engine, port string) error { return r.Run(":" + port) }
	getStdDB  = func(db *gorm.DB) (*sql.DB, error) { return db.DB() }
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

func runMainProcess() error {
	// Load .env file
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := loadCfg()

	// Initialize Logger
	initLog(cfg.Server.Env)
	logger.Info(context.Background(), "Logger initialized", zap.String("env", cfg.Server.Env))

	// Initialize Redis
	if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
		logger.Error(context.Background(), "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	logger.Info(context.Background(), "Redis initialized")

	// Set Gin mode
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database using GORM
	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := getStdDB(db)
	if err != nil {
		return fmt.Errorf("failed to get generic database object: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Printf("⚠️ Database not available: %v (endpoints will return errors)", err)
	} else {
		log.Println("✅ Connected to PostgreSQL via GORM")
		if err := migrateDB(db); err != nil {
			log.Printf("⚠️ Auto-migration failed: %v", err)
		}
	}

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry)

	// Initialize repositories
	dealRepo := repositories.NewDealRepository(db)
	userRepo := repositories.NewUserRepository(db)
	txRepo := repositories.NewCrossChainTxRepository(db)
	uow := repositories.NewUnitOfWork(db)

	// Initialize metrics
	metrics := monitoring.New()

	// Initialize blockchain collaborators. Without a backend wallet the API
	// still serves; on-chain calls and the deadline scheduler are disabled.
	clientFactory := blockchain.NewClientFactory()

	var invoker blockchain.ChainInvoker
	schedulerReady := false
	if cfg.Blockchain.BackendWalletPrivateKey == "" || cfg.Blockchain.RPCURL == "" {
		log.Println("⚠️ RPC_URL or BACKEND_WALLET_PRIVATE_KEY not set, on-chain calls and the deadline scheduler are disabled")
	} else if inv, err := newInvoker(cfg.Blockchain.RPCURL, cfg.Blockchain.BackendWalletPrivateKey); err != nil {
		log.Printf("⚠️ Backend wallet unusable: %v (on-chain calls and the deadline scheduler are disabled)", err)
	} else {
		invoker = inv
		schedulerReady = true
	}

	var deployer blockchain.ContractDeployer
	if cfg.Blockchain.DeployerPrivateKey == "" {
		log.Println("⚠️ DEPLOYER_PRIVATE_KEY not set, escrow contract deployment is disabled")
	} else {
		deployer = blockchain.NewEscrowDeployer(clientFactory, cfg.Blockchain.DeployerPrivateKey)
	}

	// Initialize bridge router and quote cache
	router := bridge.NewAggregatorRouter(cfg.Bridge.APIURL, cfg.Bridge.APIKey)
	quoteCache := redis.NewQuoteCache(cfg.Bridge.QuoteTTL)

	// Initialize usecases
	crossChainUsecase := usecases.NewCrossChainUsecase(dealRepo, txRepo, uow, router, quoteCache, metrics)
	dealUsecase := usecases.NewDealUsecase(dealRepo, userRepo, uow, crossChainUsecase, deployer, invoker, cfg.Blockchain, metrics)

	// Initialize handlers
	dealHandler := handlers.NewDealHandler(dealUsecase)
	crossChainHandler := handlers.NewCrossChainHandler(crossChainUsecase)

	// Start the deadline scheduler
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := jobs.NewDeadlineScheduler(dealUsecase, crossChainUsecase, dealRepo, txRepo, metrics, cfg.Scheduler)
	if schedulerReady {
		go scheduler.Start(ctx)
	}

	// Initialize router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware())

	applyCORSMiddleware(r)
	registerHealthRoute(r)
	registerMetricsRoute(r, metrics.Handler())
	registerAPIRoutes(r, routeDeps{
		dealHandler:       dealHandler,
		crossChainHandler: crossChainHandler,
		authMiddleware:    middleware.AuthMiddleware(jwtService),
	})

	// Print all registered routes for debugging
	log.Println("📋 Registered Routes:")
	for _, route := range r.Routes() {
		log.Printf("   %s %s", route.Method, route.Path)
	}

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("🛑 Shutting down server...")
		scheduler.Stop()
		cancel()
		clientFactory.CloseAll()
		if err := redis.Close(); err != nil {
			log.Printf("⚠️ Redis close: %v", err)
		}
		logger.Sync()
	}()

	// Start server
	log.Printf("🚀 Deal-Chain Backend starting on port %s", cfg.Server.Port)
	log.Printf("📚 API: http://localhost:%s/api/transactions", cfg.Server.Port)
	log.Printf("❤️ Health: http://localhost:%s/health", cfg.Server.Port)

	if err := runServer(r, cfg.Server.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
