package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/buckminster/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type stubAdminAccounts struct {
	accounts map[uuid.UUID]*models.Account

	created      *models.Account
	updated      *models.Account
	notified     map[uuid.UUID]string
	uninstallSet map[uuid.UUID]bool
	deleted      []uuid.UUID
}

func newStubAdminAccounts(existing ...*models.Account) *stubAdminAccounts {
	s := &stubAdminAccounts{
		accounts:     map[uuid.UUID]*models.Account{},
		notified:     map[uuid.UUID]string{},
		uninstallSet: map[uuid.UUID]bool{},
	}
	for _, a := range existing {
		s.accounts[a.ID] = a
	}
	return s
}

func (s *stubAdminAccounts) List(_ context.Context) ([]*models.Account, error) {
	list := []*models.Account{}
	for _, a := range s.accounts {
		list = append(list, a)
	}
	return list, nil
}

func (s *stubAdminAccounts) Create(_ context.Context, a *models.Account) error {
	s.created = a
	s.accounts[a.ID] = a
	return nil
}

func (s *stubAdminAccounts) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	return s.accounts[id], nil
}

func (s *stubAdminAccounts) Update(_ context.Context, a *models.Account) error {
	s.updated = a
	return nil
}

func (s *stubAdminAccounts) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	if _, ok := s.accounts[id]; !ok {
		return false, nil
	}
	delete(s.accounts, id)
	s.deleted = append(s.deleted, id)
	return true, nil
}

func (s *stubAdminAccounts) SetPendingNotification(_ context.Context, id uuid.UUID, message string) (bool, error) {
	if _, ok := s.accounts[id]; !ok {
		return false, nil
	}
	s.notified[id] = message
	return true, nil
}

func (s *stubAdminAccounts) SetUninstallPending(_ context.Context, id uuid.UUID, pending bool) (bool, error) {
	if _, ok := s.accounts[id]; !ok {
		return false, nil
	}
	s.uninstallSet[id] = pending
	return true, nil
}

type stubAdminConfig struct {
	cfg      *models.SystemConfig
	upserted *models.SystemConfig
}

func (s *stubAdminConfig) Get(_ context.Context) (*models.SystemConfig, error) {
	if s.cfg == nil {
		return models.DefaultSystemConfig(), nil
	}
	return s.cfg, nil
}

func (s *stubAdminConfig) Upsert(_ context.Context, c *models.SystemConfig) error {
	s.upserted = c
	return nil
}

func newAdminHandler(accounts *stubAdminAccounts, cfg *stubAdminConfig) *AdminHandler {
	if cfg == nil {
		cfg = &stubAdminConfig{}
	}
	return NewAdminHandler(accounts, cfg, slog.Default())
}

func do(t *testing.T, h http.HandlerFunc, method, path, body string, pathID string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if pathID != "" {
		req.SetPathValue("id", pathID)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func TestCreateUser_GeneratesAccessKey(t *testing.T) {
	accounts := newStubAdminAccounts()
	h := newAdminHandler(accounts, nil)

	body := `{"username":"alice","access_key":"attacker-chosen"}`
	rec := do(t, h.CreateUser, http.MethodPost, "/admin/users", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if accounts.created == nil {
		t.Fatal("expected account to be stored")
	}
	if !strings.HasPrefix(accounts.created.AccessKey, "bkmstr_") {
		t.Errorf("expected generated bkmstr_ key, got %q", accounts.created.AccessKey)
	}
	if accounts.created.AccessKey == "attacker-chosen" {
		t.Error("client-supplied access key must be ignored")
	}
	if !accounts.created.IsActive {
		t.Error("new accounts default to active")
	}
}

func TestCreateUser_MissingUsername(t *testing.T) {
	h := newAdminHandler(newStubAdminAccounts(), nil)

	rec := do(t, h.CreateUser, http.MethodPost, "/admin/users", `{}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateUser_MergesProvidedFields(t *testing.T) {
	limit := 100
	acc := &models.Account{
		ID:           uuid.New(),
		Username:     "alice",
		AccessKey:    "bkmstr_orig",
		IsActive:     true,
		APICallLimit: &limit,
	}
	accounts := newStubAdminAccounts(acc)
	h := newAdminHandler(accounts, nil)

	body := `{"is_active":false,"vision_config":{"base_url":"https://v.example","api_key":"vk","model_id":"m"}}`
	rec := do(t, h.UpdateUser, http.MethodPut, "/admin/users/"+acc.ID.String(), body, acc.ID.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	up := accounts.updated
	if up == nil {
		t.Fatal("expected update to hit the store")
	}
	if up.IsActive {
		t.Error("is_active=false not applied")
	}
	if up.Username != "alice" || up.APICallLimit == nil || *up.APICallLimit != 100 {
		t.Error("absent fields must be preserved")
	}
	if up.VisionConfig.BaseURL != "https://v.example" {
		t.Error("vision config not applied")
	}
	if up.AccessKey != "bkmstr_orig" {
		t.Error("access key is immutable after creation")
	}
}

func TestUpdateUser_EmptyPatch(t *testing.T) {
	acc := &models.Account{ID: uuid.New(), Username: "alice"}
	h := newAdminHandler(newStubAdminAccounts(acc), nil)

	rec := do(t, h.UpdateUser, http.MethodPut, "/admin/users/"+acc.ID.String(), `{}`, acc.ID.String())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty patch, got %d", rec.Code)
	}
}

func TestUpdateUser_Unknown(t *testing.T) {
	h := newAdminHandler(newStubAdminAccounts(), nil)
	id := uuid.New()

	rec := do(t, h.UpdateUser, http.MethodPut, "/admin/users/"+id.String(), `{"is_active":false}`, id.String())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeleteUser(t *testing.T) {
	acc := &models.Account{ID: uuid.New()}
	accounts := newStubAdminAccounts(acc)
	h := newAdminHandler(accounts, nil)

	rec := do(t, h.DeleteUser, http.MethodDelete, "/admin/users/"+acc.ID.String(), "", acc.ID.String())
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = do(t, h.DeleteUser, http.MethodDelete, "/admin/users/"+acc.ID.String(), "", acc.ID.String())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Remote commands
// ---------------------------------------------------------------------------

func TestNotifyUser(t *testing.T) {
	acc := &models.Account{ID: uuid.New()}
	accounts := newStubAdminAccounts(acc)
	h := newAdminHandler(accounts, nil)

	rec := do(t, h.NotifyUser, http.MethodPost, "/admin/users/"+acc.ID.String()+"/notify",
		`{"message":"maintenance tonight"}`, acc.ID.String())
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if accounts.notified[acc.ID] != "maintenance tonight" {
		t.Errorf("notification not queued, got %q", accounts.notified[acc.ID])
	}
}

func TestNotifyUser_Validation(t *testing.T) {
	acc := &models.Account{ID: uuid.New()}
	h := newAdminHandler(newStubAdminAccounts(acc), nil)

	rec := do(t, h.NotifyUser, http.MethodPost, "/admin/users/"+acc.ID.String()+"/notify", `{}`, acc.ID.String())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty message, got %d", rec.Code)
	}

	unknown := uuid.New()
	rec = do(t, h.NotifyUser, http.MethodPost, "/admin/users/"+unknown.String()+"/notify",
		`{"message":"hello"}`, unknown.String())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", rec.Code)
	}
}

func TestUninstallUser(t *testing.T) {
	acc := &models.Account{ID: uuid.New()}
	accounts := newStubAdminAccounts(acc)
	h := newAdminHandler(accounts, nil)

	rec := do(t, h.UninstallUser, http.MethodPost, "/admin/users/"+acc.ID.String()+"/uninstall", "", acc.ID.String())
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if !accounts.uninstallSet[acc.ID] {
		t.Error("uninstall flag not set")
	}
}

// ---------------------------------------------------------------------------
// System config
// ---------------------------------------------------------------------------

func TestUpdateSystemConfig_Merges(t *testing.T) {
	end := "02:00"
	cfg := &stubAdminConfig{cfg: &models.SystemConfig{
		APIEnabled:          true,
		DailyLockdownEndUTC: &end,
		MaintenanceMessage:  "keep this",
	}}
	h := newAdminHandler(newStubAdminAccounts(), cfg)

	rec := do(t, h.UpdateSystemConfig, http.MethodPut, "/admin/system-config",
		`{"daily_lockdown_start_utc":"22:00"}`, "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	up := cfg.upserted
	if up == nil {
		t.Fatal("expected upsert")
	}
	if up.DailyLockdownStartUTC == nil || *up.DailyLockdownStartUTC != "22:00" {
		t.Error("start bound not applied")
	}
	if up.DailyLockdownEndUTC == nil || *up.DailyLockdownEndUTC != "02:00" {
		t.Error("end bound must be preserved")
	}
	if up.MaintenanceMessage != "keep this" {
		t.Error("maintenance message must be preserved")
	}
}

func TestUpdateSystemConfig_EmptyStringClearsBound(t *testing.T) {
	start := "22:00"
	cfg := &stubAdminConfig{cfg: &models.SystemConfig{
		APIEnabled:            true,
		DailyLockdownStartUTC: &start,
	}}
	h := newAdminHandler(newStubAdminAccounts(), cfg)

	rec := do(t, h.UpdateSystemConfig, http.MethodPut, "/admin/system-config",
		`{"daily_lockdown_start_utc":""}`, "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if cfg.upserted.DailyLockdownStartUTC != nil {
		t.Error("empty string must clear the bound")
	}
}

func TestUpdateSystemConfig_EmptyPatch(t *testing.T) {
	h := newAdminHandler(newStubAdminAccounts(), &stubAdminConfig{})

	rec := do(t, h.UpdateSystemConfig, http.MethodPut, "/admin/system-config", `{}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetSystemConfig_Defaults(t *testing.T) {
	h := newAdminHandler(newStubAdminAccounts(), &stubAdminConfig{})

	rec := do(t, h.GetSystemConfig, http.MethodGet, "/admin/system-config", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got models.SystemConfig
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !got.APIEnabled {
		t.Error("default config must have the API enabled")
	}
	if got.MaintenanceMessage != models.DefaultMaintenanceMessage {
		t.Error("default maintenance message expected")
	}
}
