package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/buckminster/backend/internal/models"
	"github.com/buckminster/backend/internal/services"
)

// AdminAccountRepo is the account store subset used by administrator routes.
type AdminAccountRepo interface {
	List(ctx context.Context) ([]*models.Account, error)
	Create(ctx context.Context, a *models.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	Update(ctx context.Context, a *models.Account) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	SetPendingNotification(ctx context.Context, id uuid.UUID, message string) (bool, error)
	SetUninstallPending(ctx context.Context, id uuid.UUID, pending bool) (bool, error)
}

// AdminConfigRepo reads and upserts the singleton system configuration.
type AdminConfigRepo interface {
	Get(ctx context.Context) (*models.SystemConfig, error)
	Upsert(ctx context.Context, c *models.SystemConfig) error
}

// AdminHandler serves the operator panel routes. The AdminAuth middleware
// has already verified the shared secret by the time these run.
type AdminHandler struct {
	Accounts AdminAccountRepo
	Config   AdminConfigRepo
	Logger   *slog.Logger
}

func NewAdminHandler(accounts AdminAccountRepo, cfg AdminConfigRepo, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{Accounts: accounts, Config: cfg, Logger: logger}
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Accounts.List(r.Context())
	if err != nil {
		h.Logger.Error("list accounts", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

type createUserRequest struct {
	Username     string              `json:"username"`
	IsActive     *bool               `json:"is_active,omitempty"`
	APICallLimit *int                `json:"api_call_limit,omitempty"`
	ExpiresOn    *time.Time          `json:"expires_on,omitempty"`
	VisionConfig *models.ModelConfig `json:"vision_config,omitempty"`
	TextConfig   *models.ModelConfig `json:"text_config,omitempty"`
}

// CreateUser handles POST /admin/users. The access key is always generated
// server-side; a client-supplied one is ignored.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	acc := &models.Account{
		ID:           uuid.New(),
		Username:     req.Username,
		AccessKey:    services.GenerateAccessKey(),
		IsActive:     true,
		APICallLimit: req.APICallLimit,
		ExpiresOn:    req.ExpiresOn,
	}
	if req.IsActive != nil {
		acc.IsActive = *req.IsActive
	}
	if req.VisionConfig != nil {
		acc.VisionConfig = *req.VisionConfig
	}
	if req.TextConfig != nil {
		acc.TextConfig = *req.TextConfig
	}

	if err := h.Accounts.Create(r.Context(), acc); err != nil {
		h.Logger.Error("create account", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, acc)
}

type updateUserRequest struct {
	Username         *string             `json:"username,omitempty"`
	IsActive         *bool               `json:"is_active,omitempty"`
	APICallLimit     *int                `json:"api_call_limit,omitempty"`
	ExpiresOn        *time.Time          `json:"expires_on,omitempty"`
	UninstallPending *bool               `json:"uninstall_pending,omitempty"`
	VisionConfig     *models.ModelConfig `json:"vision_config,omitempty"`
	TextConfig       *models.ModelConfig `json:"text_config,omitempty"`
}

func (r *updateUserRequest) empty() bool {
	return r.Username == nil && r.IsActive == nil && r.APICallLimit == nil &&
		r.ExpiresOn == nil && r.UninstallPending == nil &&
		r.VisionConfig == nil && r.TextConfig == nil
}

// UpdateUser handles PUT /admin/users/{id}. Absent fields are left as they
// are; only provided ones change.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.empty() {
		writeError(w, http.StatusBadRequest, "no update data provided")
		return
	}

	acc, err := h.Accounts.GetByID(r.Context(), id)
	if err != nil {
		h.Logger.Error("get account", "account_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if acc == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	if req.Username != nil {
		acc.Username = *req.Username
	}
	if req.IsActive != nil {
		acc.IsActive = *req.IsActive
	}
	if req.APICallLimit != nil {
		acc.APICallLimit = req.APICallLimit
	}
	if req.ExpiresOn != nil {
		acc.ExpiresOn = req.ExpiresOn
	}
	if req.UninstallPending != nil {
		acc.UninstallPending = *req.UninstallPending
	}
	if req.VisionConfig != nil {
		acc.VisionConfig = *req.VisionConfig
	}
	if req.TextConfig != nil {
		acc.TextConfig = *req.TextConfig
	}

	if err := h.Accounts.Update(r.Context(), acc); err != nil {
		h.Logger.Error("update account", "account_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

// DeleteUser handles DELETE /admin/users/{id}.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	found, err := h.Accounts.Delete(r.Context(), id)
	if err != nil {
		h.Logger.Error("delete account", "account_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type notifyRequest struct {
	Message string `json:"message"`
}

// NotifyUser handles POST /admin/users/{id}/notify. An unread message is
// silently overwritten; the mailbox holds at most one.
func (h *AdminHandler) NotifyUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	found, err := h.Accounts.SetPendingNotification(r.Context(), id, req.Message)
	if err != nil {
		h.Logger.Error("queue notification", "account_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"detail": "notification queued for user"})
}

// UninstallUser handles POST /admin/users/{id}/uninstall. The flag is sticky
// until reset through UpdateUser.
func (h *AdminHandler) UninstallUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	found, err := h.Accounts.SetUninstallPending(r.Context(), id, true)
	if err != nil {
		h.Logger.Error("flag uninstall", "account_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"detail": "application has been flagged for uninstallation"})
}

// GetSystemConfig handles GET /admin/system-config.
func (h *AdminHandler) GetSystemConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Config.Get(r.Context())
	if err != nil {
		h.Logger.Error("get system config", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

type updateConfigRequest struct {
	APIEnabled            *bool   `json:"api_enabled,omitempty"`
	DailyLockdownStartUTC *string `json:"daily_lockdown_start_utc,omitempty"`
	DailyLockdownEndUTC   *string `json:"daily_lockdown_end_utc,omitempty"`
	MaintenanceMessage    *string `json:"maintenance_message,omitempty"`
}

// UpdateSystemConfig handles PUT /admin/system-config. Provided fields are
// merged onto the current record and upserted. An empty string clears a
// lockdown bound.
func (h *AdminHandler) UpdateSystemConfig(w http.ResponseWriter, r *http.Request) {
	var req updateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.APIEnabled == nil && req.DailyLockdownStartUTC == nil &&
		req.DailyLockdownEndUTC == nil && req.MaintenanceMessage == nil {
		writeError(w, http.StatusBadRequest, "no configuration data provided")
		return
	}

	cfg, err := h.Config.Get(r.Context())
	if err != nil {
		h.Logger.Error("get system config", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if req.APIEnabled != nil {
		cfg.APIEnabled = *req.APIEnabled
	}
	if req.DailyLockdownStartUTC != nil {
		cfg.DailyLockdownStartUTC = nilIfEmpty(*req.DailyLockdownStartUTC)
	}
	if req.DailyLockdownEndUTC != nil {
		cfg.DailyLockdownEndUTC = nilIfEmpty(*req.DailyLockdownEndUTC)
	}
	if req.MaintenanceMessage != nil {
		cfg.MaintenanceMessage = *req.MaintenanceMessage
	}

	if err := h.Config.Upsert(r.Context(), cfg); err != nil {
		h.Logger.Error("update system config", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"detail": "system configuration updated successfully"})
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
