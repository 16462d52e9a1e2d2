package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/newswise/backend/internal/api/handlers"
	"github.com/newswise/backend/internal/catalog"
	"github.com/newswise/backend/internal/chat"
	"github.com/newswise/backend/internal/ingestion"
	"github.com/newswise/backend/internal/metrics"
	"github.com/newswise/backend/internal/middleware/security"
	"github.com/newswise/backend/internal/scraper"
	"github.com/newswise/backend/internal/sentiment"
	"github.com/newswise/backend/internal/session"
	"github.com/newswise/backend/internal/storage/sqlite"
	"github.com/newswise/backend/pkg/config"
	appLogger "github.com/newswise/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting NewsWise Financial API Server")

	metrics.Init()

	store, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer store.Close()

	if err := store.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}
	if err := store.SeedSampleData(); err != nil {
		appLogger.Warn("Failed to seed sample data", zap.Error(err))
	}

	sessions := buildSessionStore(cfg)
	analyzer := buildAnalyzer(cfg)

	var (
		external  chat.NewsProvider
		processor *ingestion.Processor
	)
	if cfg.Scraper.Enabled {
		scraperClient := scraper.NewClient(
			cfg.Scraper.NewsAPIKey,
			cfg.Scraper.MaxResults,
			time.Duration(cfg.Scraper.TimeoutSec)*time.Second,
		)
		external = scraperClient
		processor = ingestion.NewProcessor(scraperClient, store, analyzer)
	}

	cat := catalog.New(store)

	engine := chat.NewEngine(cat, sessions, store, external, store, chat.Config{
		MinEntityNews:  cfg.Scraper.MinEntityNews,
		MinHandlerNews: cfg.Scraper.MinHandlerNews,
	})

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Logging.Level == "debug",
	}))

	chatHandler := handlers.NewChatHandler(engine, store)
	newsHandler := handlers.NewNewsHandler(store, processor, external)
	marketHandler := handlers.NewMarketHandler(store)
	wsHandler := handlers.NewWebSocketHandler(engine)

	app.Get("/metrics", metrics.MetricsHandler())

	api := app.Group("/api/v1")

	api.Post("/chat/query", chatHandler.HandleQuery)
	api.Get("/chat/history", chatHandler.GetHistory)

	api.Get("/news/recent", newsHandler.GetRecent)
	api.Get("/news/entity/:name", newsHandler.GetByEntity)
	api.Post("/news/search", newsHandler.Search)
	api.Post("/news/refresh", newsHandler.Refresh)

	api.Get("/stocks/:symbol", marketHandler.GetStock)
	api.Get("/funds/:name/holdings", marketHandler.GetFundHoldings)
	api.Get("/funds/:name", marketHandler.GetFund)
	api.Get("/etfs/:symbol", marketHandler.GetETF)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws/chat", websocket.New(wsHandler.HandleConnection))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}

// buildSessionStore selects the session backend. A Redis connection
// failure falls back to the in-memory store so the server still comes
// up.
func buildSessionStore(cfg *config.Config) session.Store {
	if cfg.Session.Backend != "redis" {
		return session.NewMemoryStore()
	}

	ttl := time.Duration(cfg.Session.TTLHours) * time.Hour
	store, err := session.NewRedisStore(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, ttl)
	if err != nil {
		appLogger.Warn("Redis unavailable, using in-memory sessions", zap.Error(err))
		return session.NewMemoryStore()
	}
	return store
}

func buildAnalyzer(cfg *config.Config) sentiment.Analyzer {
	lexicon := sentiment.NewLexiconAnalyzer()

	if cfg.Sentiment.Provider == "openai" && cfg.Sentiment.APIKey != "" {
		return sentiment.NewOpenAIAnalyzer(
			cfg.Sentiment.APIKey,
			cfg.Sentiment.Model,
			time.Duration(cfg.Sentiment.TimeoutSec)*time.Second,
			lexicon,
		)
	}
	return lexicon
}
