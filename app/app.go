// Package app wires configuration, storage, adapters and the HTTP
// surface together and owns the process lifecycle.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"business-analyst/api"
	"business-analyst/cache"
	"business-analyst/chat"
	"business-analyst/config"
	"business-analyst/database"
	"business-analyst/llm"
	"business-analyst/notifications"
	"business-analyst/pipeline"
	"business-analyst/realtime"
	"business-analyst/tools"
)

// App represents the main application
type App struct {
	config    *config.Config
	db        *database.Database
	repo      *database.Repository
	redis     *cache.RedisClient
	broker    *realtime.Broker
	llmClient *llm.Client
	pipeline  *pipeline.Pipeline
	chat      *chat.Router
	apiServer *api.Server
	retention *RetentionSweeper
}

// New creates a new application instance
func New(cfg *config.Config) *App {
	return &App{config: cfg}
}

// Start starts the application and blocks until shutdown
func (a *App) Start() error {
	// 1. Database
	fmt.Println("🗄️  Connecting to database...")
	db, err := database.Connect(a.config.DatabasePath)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	a.db = db

	a.repo = database.NewRepository(db)
	if err := a.repo.InitSchema(); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	// 2. Redis (optional report cache)
	fmt.Println("🧠 Connecting to Redis...")
	redisClient := cache.NewRedisClient(a.config.Cache.Host, a.config.Cache.Port, a.config.Cache.Password)
	if redisClient == nil {
		fmt.Println("⚠️  Redis connection failed. Report caching disabled.")
	} else {
		a.redis = redisClient
	}
	reportCache := cache.NewReportCache(a.redis, time.Duration(a.config.Cache.TTLMinutes)*time.Minute)

	// 3. Realtime progress broker
	a.broker = realtime.NewBroker()
	go a.broker.Run()

	// 4. LLM client. Startup proceeds when the endpoint is down;
	// analyses fail per request until it comes back.
	a.llmClient = llm.NewClient(a.config.LLM.BaseURL, a.config.LLM.APIKey, a.config.LLM.Model)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := a.llmClient.Ping(pingCtx); err != nil {
		log.Printf("⚠️  LLM endpoint %s unreachable: %v", a.config.LLM.BaseURL, err)
	} else {
		log.Printf("✅ LLM ready (Model: %s)", a.llmClient.Model())
	}
	cancelPing()

	// 5. Data adapters
	market := tools.NewMarketData()
	search := tools.NewWebSearch(a.config.SerperAPIKey, a.config.Analysis.MaxCompetitors, a.config.Analysis.MaxNewsItems)
	scraper := tools.NewScraper()
	extractor := tools.NewPDFExtractor()
	notifier := notifications.NewNotifier(a.config.WebhookURLs)

	// 6. Analysis pipeline
	a.pipeline = pipeline.New(pipeline.Deps{
		LLM:      a.llmClient,
		Market:   market,
		Search:   search,
		Repo:     a.repo,
		Events:   a.broker,
		Cache:    reportCache,
		Notifier: notifier,
		Config:   a.config.Analysis,
	})

	// 7. Chat router
	a.chat = chat.NewRouter(a.pipeline, a.llmClient, scraper, a.repo)

	// 8. Retention sweeper
	a.retention = NewRetentionSweeper(a.repo, a.config.Analysis.RetentionDays)
	go a.retention.Start()

	// 9. API server
	a.apiServer = api.NewServer(a.repo, a.pipeline, a.broker, a.chat, extractor, a.llmClient, a.redis != nil)
	go func() {
		if err := a.apiServer.Start(a.config.ServerPort); err != nil && err != http.ErrServerClosed {
			log.Printf("⚠️  API Server failed: %v", err)
		}
	}()

	log.Printf("📊 Business analyst ready on port %d", a.config.ServerPort)

	return a.gracefulShutdown()
}

// gracefulShutdown blocks until an interrupt, then stops components
// with a timeout.
func (a *App) gracefulShutdown() error {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	<-interrupt
	fmt.Println("\n🛑 Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownComplete := make(chan struct{})
	go func() {
		if a.retention != nil {
			fmt.Println("🧹 Stopping retention sweeper...")
			a.retention.Stop()
		}

		if a.apiServer != nil {
			fmt.Println("📡 Stopping API server...")
			if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("Error stopping API server: %v", err)
			} else {
				fmt.Println("✅ API server stopped")
			}
		}

		if a.db != nil {
			if err := a.db.Close(); err != nil {
				log.Printf("Error closing database: %v", err)
			} else {
				fmt.Println("✅ Database connection closed")
			}
		}

		if a.redis != nil {
			if err := a.redis.Close(); err != nil {
				log.Printf("Error closing redis: %v", err)
			} else {
				fmt.Println("✅ Redis connection closed")
			}
		}

		close(shutdownComplete)
	}()

	select {
	case <-shutdownComplete:
		fmt.Println("✅ Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		fmt.Println("⚠️  Shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout")
	}
}
