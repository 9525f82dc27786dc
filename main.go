package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"coursewizard/config"
	"coursewizard/db"
	"coursewizard/generation"
	"coursewizard/handlers"
	"coursewizard/logger"
	"coursewizard/mention"
	"coursewizard/middleware"
	"coursewizard/session"
	"coursewizard/wizard"
)

func main() {
	envErr := godotenv.Load()

	log, err := logger.New(config.GetLogMode())
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	if envErr != nil {
		log.Warn(".env file not found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := mention.New(mention.DefaultTriggers()...)
	if err != nil {
		log.Fatal("Invalid mention triggers", "error", err)
	}

	timeout := config.GetGenerationTimeout()
	gen, err := generation.NewFromConfig(ctx, generation.Config{
		Provider:     config.GetGenerationProvider(),
		URL:          config.GetGenerationURL(),
		APIKey:       config.GetGenerationAPIKey(),
		Model:        config.GetGenerationModel(),
		Timeout:      timeout,
		MaxRetries:   config.GetGenerationMaxRetries(),
		GeminiAPIKey: config.GetGeminiAPIKey(),
		GeminiModel:  config.GetGeminiModel(),
	}, log)
	if err != nil {
		log.Fatal("Failed to create generator", "error", err)
	}

	resolver := wizard.NewResolver(wizard.Config{
		Generator:    gen,
		Context:      generation.NewHTTPContextSource(config.GetContextSourceURL(), config.GetSourceAPIKey(), 15*time.Second),
		Instructions: generation.NewHTTPInstructionSource(config.GetInstructionSourceURL(), config.GetSourceAPIKey(), 15*time.Second),
		Logger:       log,
		Timeout:      timeout,
		CacheTTL:     config.GetInstructionCacheTTL(),
	})

	h := &handlers.Handler{
		Mentions: engine,
		Resolver: resolver,
		Sessions: session.NewRegistry(),
		Log:      log,
	}

	if uri := config.GetMongoDBURI(); uri != "" {
		store, err := db.Connect(ctx, uri, config.GetMongoDBDatabase())
		if err != nil {
			log.Fatal("Failed to connect to MongoDB", "error", err)
		}
		defer store.Close(context.Background())
		if err := store.CreateIndexes(ctx); err != nil {
			log.Warn("Failed to create indexes", "error", err)
		}
		h.Store = store
		log.Info("Connected to MongoDB", "database", config.GetMongoDBDatabase())
	} else {
		log.Info("MONGODB_URI not set, running without persistence")
	}

	mux := http.NewServeMux()
	h.Routes(mux)

	srv := &http.Server{
		Addr:              ":" + config.GetPort(),
		Handler:           middleware.Chain(mux, middleware.Recover(log), middleware.AccessLog(log), middleware.CORS(config.GetAllowedOrigins())),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("Server running", "addr", srv.Addr, "provider", config.GetGenerationProvider())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Server stopped", "error", err)
	}
}
