package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/buckminster/backend/internal/middleware"
	"github.com/buckminster/backend/internal/models"
	"github.com/buckminster/backend/internal/services"
)

// upstreamUnavailableMsg is the only text a client ever sees for an external
// completion failure. The real cause stays in the server log.
const upstreamUnavailableMsg = "The external AI service may be down. Please try again in a moment."

// ClientAccountRepo is the account store subset used by client endpoints.
type ClientAccountRepo interface {
	FindByAccessKey(ctx context.Context, accessKey string) (*models.Account, error)
	FindByKeyAndDevice(ctx context.Context, accessKey, deviceKey string) (*models.Account, error)
	SetDeviceKey(ctx context.Context, id uuid.UUID, deviceKey string) error
	TakePendingNotification(ctx context.Context, accessKey, deviceKey string) (*string, error)
}

// ScreenAnalyzer runs the two-stage inference pipeline.
type ScreenAnalyzer interface {
	Analyze(ctx context.Context, account *models.Account, imageBase64 string) (string, error)
}

// ClientHandler serves the device-facing endpoints.
type ClientHandler struct {
	Accounts ClientAccountRepo
	Analyzer ScreenAnalyzer
	Logger   *slog.Logger
}

func NewClientHandler(accounts ClientAccountRepo, analyzer ScreenAnalyzer, logger *slog.Logger) *ClientHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClientHandler{Accounts: accounts, Analyzer: analyzer, Logger: logger}
}

type activateRequest struct {
	AccessKey string `json:"access_key"`
}

type secureRequest struct {
	AccessKey string `json:"access_key"`
	DeviceKey string `json:"device_key"`
}

// Activate handles POST /auth/activate. A second activation silently evicts
// the previously bound device. Reachable even during a lockdown.
func (h *ClientHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	acc, err := h.Accounts.FindByAccessKey(r.Context(), req.AccessKey)
	if err != nil {
		h.Logger.Error("activate lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if acc == nil || !acc.IsActive {
		writeError(w, http.StatusForbidden, "invalid or inactive access key")
		return
	}

	deviceKey := services.GenerateDeviceKey()
	if err := h.Accounts.SetDeviceKey(r.Context(), acc.ID, deviceKey); err != nil {
		h.Logger.Error("activate bind device", "account_id", acc.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.Logger.Info("issued new device key", "username", acc.Username)
	writeJSON(w, http.StatusOK, map[string]string{"device_key": deviceKey})
}

type analyzeRequest struct {
	ImageData string `json:"image_data"`
}

// Analyze handles POST /analyze. Credential check happens upstream in
// ClientAuth; this handler enforces expiry and quota before the pipeline runs
// so unusable accounts never consume an external call.
func (h *ClientHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusForbidden, services.ErrUnauthorized.Error())
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := services.CheckUsable(acc, time.Now()); err != nil {
		switch {
		case errors.Is(err, services.ErrKeyExpired):
			writeError(w, http.StatusForbidden, "your access key has expired")
		case errors.Is(err, services.ErrQuotaExceeded):
			writeError(w, http.StatusTooManyRequests, "api call limit reached for this key")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	result, err := h.Analyzer.Analyze(r.Context(), acc, req.ImageData)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUpstream):
			writeError(w, http.StatusServiceUnavailable, upstreamUnavailableMsg)
		case errors.Is(err, services.ErrModelConfigIncomplete):
			h.Logger.Error("analysis misconfigured", "account_id", acc.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "model configuration is incomplete")
		default:
			h.Logger.Error("analysis failed", "account_id", acc.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "an unexpected internal server error occurred")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": result})
}

// ValidateKey handles POST /auth/validate. It never fails on an unknown or
// inactive key; the answer is simply is_valid=false.
func (h *ClientHandler) ValidateKey(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.AccessKey == "" {
		writeJSON(w, http.StatusOK, map[string]bool{"is_valid": false})
		return
	}
	acc, err := h.Accounts.FindByAccessKey(r.Context(), req.AccessKey)
	if err != nil {
		h.Logger.Error("validate lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_valid": acc != nil && acc.IsActive})
}

// CheckNotifications handles POST /client/check-notifications. The queued
// message is delivered exactly once: the read clears it atomically, so
// repeated polling with nothing queued keeps returning null.
func (h *ClientHandler) CheckNotifications(w http.ResponseWriter, r *http.Request) {
	var req secureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	message, err := h.Accounts.TakePendingNotification(r.Context(), req.AccessKey, req.DeviceKey)
	if err != nil {
		h.Logger.Error("take notification", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]*string{"message": message})
}

// CheckStatus handles POST /client/check-status. An unknown pair answers
// "ok" on purpose: a deleted account must not strand a client in a block
// loop. Uninstall takes precedence over block.
func (h *ClientHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	var req secureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	acc, err := h.Accounts.FindByKeyAndDevice(r.Context(), req.AccessKey, req.DeviceKey)
	if err != nil {
		h.Logger.Error("status lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	action := "ok"
	switch {
	case acc == nil:
		action = "ok"
	case acc.UninstallPending:
		action = "uninstall"
	case !acc.IsActive:
		action = "block"
	}
	writeJSON(w, http.StatusOK, map[string]string{"action": action})
}
