package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"fieldops.app/incidentbot/common/id"
	"fieldops.app/incidentbot/common/llm"
	"fieldops.app/incidentbot/common/logger"
	"fieldops.app/incidentbot/common/otel"
	"fieldops.app/incidentbot/core/config"
	"fieldops.app/incidentbot/core/db"
	"fieldops.app/incidentbot/internal/catalog"
	"fieldops.app/incidentbot/internal/checkpoint"
	"fieldops.app/incidentbot/internal/convo"
	"fieldops.app/incidentbot/internal/http/handler"
	"fieldops.app/incidentbot/internal/http/handler/webhook"
	"fieldops.app/incidentbot/internal/http/middleware"
	httprouter "fieldops.app/incidentbot/internal/http/router"
	"fieldops.app/incidentbot/internal/media"
	"fieldops.app/incidentbot/internal/nlu"
	"fieldops.app/incidentbot/internal/queue"
	"fieldops.app/incidentbot/internal/service"
	"fieldops.app/incidentbot/internal/store"
	"fieldops.app/incidentbot/internal/transport/whatsapp"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "incidentbot starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	incidentCatalog, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load incident catalog", "error", err, "path", cfg.Catalog.Path)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "incident catalog loaded", "entries", len(incidentCatalog.Entries()))

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Redis.TicketStream)

	llmClient, err := llm.New(llm.Config{
		APIKey:          cfg.OpenAI.APIKey,
		BaseURL:         cfg.OpenAI.BaseURL,
		Model:           cfg.OpenAI.Model,
		VisionModel:     cfg.OpenAI.VisionModel,
		TranscribeModel: cfg.OpenAI.TranscribeModel,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize llm client", "error", err)
		os.Exit(1)
	}

	stores := store.NewStores(database)

	checkpoints := checkpoint.NewRedisStore(redisClient, time.Duration(cfg.Redis.CheckpointTTLHours)*time.Hour)

	engine := convo.NewEngine(convo.Capabilities{
		Classifier:  nlu.NewClassifier(llmClient),
		Extractor:   nlu.NewExtractor(llmClient),
		Interpreter: nlu.NewInterpreter(llmClient),
		Catalog:     incidentCatalog,
		Profiles:    stores.Profiles(),
		Tickets:     stores.Tickets(),
	}, checkpoints)

	eventProducer := queue.NewRedisProducer(redisClient, cfg.Redis.TicketStream, nil)

	waClient := whatsapp.NewClient(cfg.WhatsApp.BaseURL, cfg.WhatsApp.AccessToken, cfg.WhatsApp.PhoneNumberID)

	conversations := service.NewConversationService(
		engine,
		checkpoints,
		stores.Profiles(),
		stores.ConversationLogs(),
		eventProducer,
		waClient,
		media.NewProcessor(llmClient),
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, conversations, stores.Tickets(), waClient)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if err := eventProducer.Close(); err != nil {
		slog.ErrorContext(shutdownCtx, "redis shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, conversations *service.ConversationService, tickets store.TicketStore, waClient *whatsapp.Client) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	whatsappHandler := webhook.NewWhatsAppHandler(conversations, waClient, cfg.WhatsApp.VerifyToken)
	adminHandler := handler.NewAdminHandler(conversations, tickets)

	httprouter.SetupRoutes(router, whatsappHandler, adminHandler, httprouter.RouterConfig{
		VerifyToken: cfg.WhatsApp.VerifyToken,
		AdminAPIKey: cfg.AdminAPIKey,
	})

	return router
}

const banner = `
██╗███╗   ██╗ ██████╗██╗██████╗ ███████╗███╗   ██╗████████╗██████╗  ██████╗ ████████╗
██║████╗  ██║██╔════╝██║██╔══██╗██╔════╝████╗  ██║╚══██╔══╝██╔══██╗██╔═══██╗╚══██╔══╝
██║██╔██╗ ██║██║     ██║██║  ██║█████╗  ██╔██╗ ██║   ██║   ██████╔╝██║   ██║   ██║
██║██║╚██╗██║██║     ██║██║  ██║██╔══╝  ██║╚██╗██║   ██║   ██╔══██╗██║   ██║   ██║
██║██║ ╚████║╚██████╗██║██████╔╝███████╗██║ ╚████║   ██║   ██████╔╝╚██████╔╝   ██║
╚═╝╚═╝  ╚═══╝ ╚═════╝╚═╝╚═════╝ ╚══════╝╚═╝  ╚═══╝   ╚═╝   ╚═════╝  ╚═════╝    ╚═╝
`
