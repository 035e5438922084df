package main

import (
	"log/slog"
	"net/http"

	"github.com/buckminster/backend/internal/handlers"
	"github.com/buckminster/backend/internal/middleware"
	"github.com/buckminster/backend/internal/repository"
)

// RegisterRoutes wires every endpoint onto the mux.
// Client chain: Availability -> (ClientAuth on /analyze) -> handler.
// Admin chain: AdminAuth -> handler.
// /auth/activate and /auth/validate stay outside the availability gate so a
// client can refresh its credentials during a lockdown.
func RegisterRoutes(
	mux *http.ServeMux,
	clientHandler *handlers.ClientHandler,
	adminHandler *handlers.AdminHandler,
	accountRepo *repository.AccountRepo,
	configRepo *repository.ConfigRepo,
	adminKey string,
	logger *slog.Logger,
) {
	gate := middleware.Availability(configRepo, logger)
	clientAuth := middleware.ClientAuth(accountRepo)
	admin := middleware.AdminAuth(adminKey)

	mux.HandleFunc("GET /", rootHandler)

	mux.HandleFunc("POST /auth/activate", clientHandler.Activate)
	mux.HandleFunc("POST /auth/validate", clientHandler.ValidateKey)

	mux.Handle("POST /analyze", gate(clientAuth(http.HandlerFunc(clientHandler.Analyze))))
	mux.Handle("POST /client/check-notifications", gate(http.HandlerFunc(clientHandler.CheckNotifications)))
	mux.Handle("POST /client/check-status", gate(http.HandlerFunc(clientHandler.CheckStatus)))

	mux.Handle("GET /admin/users", admin(http.HandlerFunc(adminHandler.ListUsers)))
	mux.Handle("POST /admin/users", admin(http.HandlerFunc(adminHandler.CreateUser)))
	mux.Handle("PUT /admin/users/{id}", admin(http.HandlerFunc(adminHandler.UpdateUser)))
	mux.Handle("DELETE /admin/users/{id}", admin(http.HandlerFunc(adminHandler.DeleteUser)))
	mux.Handle("POST /admin/users/{id}/notify", admin(http.HandlerFunc(adminHandler.NotifyUser)))
	mux.Handle("POST /admin/users/{id}/uninstall", admin(http.HandlerFunc(adminHandler.UninstallUser)))
	mux.Handle("GET /admin/system-config", admin(http.HandlerFunc(adminHandler.GetSystemConfig)))
	mux.Handle("PUT /admin/system-config", admin(http.HandlerFunc(adminHandler.UpdateSystemConfig)))
}

// rootHandler is a bare liveness probe.
func rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"message":"Buckminster backend is online and operational."}`))
}
