package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/CrowderSoup/kanban/database"
	"github.com/CrowderSoup/kanban/handlers"
	"github.com/CrowderSoup/kanban/services"
)

func setupLogger(cfg *Config) {
	zerolog.SetGlobalLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func newHandler(cfg *Config, authService *services.AuthService, dataService *database.DataService, hub *services.Hub) http.Handler {
	r := handlers.NewRouter(handlers.RouterConfig{
		AuthService:    authService,
		DataService:    dataService,
		Hub:            hub,
		PublicKey:      cfg.PublicKey,
		AllowedOrigins: cfg.CORSOrigins,
	})

	// Setup CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "apikey"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

func main() {
	// Load environment variables from .env file
	if err := LoadEnv(".env"); err != nil {
		log.Fatal().Err(err).Msg("failed to load environment")
	}

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogger(cfg)
	if cfg.DevSecret() {
		log.Warn().Msg("JWT_SECRET is not set, using the development secret")
	}

	// Initialize database
	db, err := database.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	// Initialize services
	dataService := database.NewDataService(db)
	authService := services.NewAuthService(dataService, cfg.JWTSecret, cfg.SessionTTL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize WebSocket hub
	hub := services.NewHub()
	go hub.Run(ctx)

	// Start server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newHandler(cfg, authService, dataService, hub),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
