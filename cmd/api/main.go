package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/rs/cors"

	"github.com/buckminster/backend/internal/config"
	"github.com/buckminster/backend/internal/database"
	"github.com/buckminster/backend/internal/handlers"
	"github.com/buckminster/backend/internal/repository"
	"github.com/buckminster/backend/internal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	settings, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx, settings.DatabaseURL)
	if err != nil {
		slog.Error("Cannot reach PostgreSQL (connection refused or invalid). Ensure Postgres is running", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	slog.Info("Connected to PostgreSQL database successfully!")

	if err := database.Migrate(ctx, pool); err != nil {
		slog.Error("Schema migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Schema migrations applied")

	accountRepo := repository.NewAccountRepo(pool)
	configRepo := repository.NewConfigRepo(pool)

	analyzer := services.NewAnalyzer(services.NewLLMClient(), accountRepo, logger)

	clientHandler := handlers.NewClientHandler(accountRepo, analyzer, logger)
	adminHandler := handlers.NewAdminHandler(accountRepo, configRepo, logger)

	mux := http.NewServeMux()
	RegisterRoutes(mux, clientHandler, adminHandler, accountRepo, configRepo, settings.AdminAPIKey, logger)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Admin-API-Key"},
		AllowCredentials: true,
	}).Handler(mux)

	serverAddr := "0.0.0.0:" + settings.Port
	slog.Info("Starting HTTP server", "addr", serverAddr)
	if err := http.ListenAndServe(serverAddr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
