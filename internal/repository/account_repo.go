package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/buckminster/backend/internal/models"
)

const accountColumns = `id, username, access_key, device_key, is_active, api_calls_total, api_call_limit, expires_on,
	pending_notification, uninstall_pending,
	vision_base_url, vision_api_key, vision_model_id, text_base_url, text_api_key, text_model_id,
	created_at, updated_at`

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID, &a.Username, &a.AccessKey, &a.DeviceKey, &a.IsActive, &a.APICallsTotal, &a.APICallLimit, &a.ExpiresOn,
		&a.PendingNotification, &a.UninstallPending,
		&a.VisionConfig.BaseURL, &a.VisionConfig.APIKey, &a.VisionConfig.ModelID,
		&a.TextConfig.BaseURL, &a.TextConfig.APIKey, &a.TextConfig.ModelID,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) Create(ctx context.Context, a *models.Account) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, username, access_key, device_key, is_active, api_calls_total, api_call_limit, expires_on,
			pending_notification, uninstall_pending,
			vision_base_url, vision_api_key, vision_model_id, text_base_url, text_api_key, text_model_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`, a.ID, a.Username, a.AccessKey, a.DeviceKey, a.IsActive, a.APICallsTotal, a.APICallLimit, a.ExpiresOn,
		a.PendingNotification, a.UninstallPending,
		a.VisionConfig.BaseURL, a.VisionConfig.APIKey, a.VisionConfig.ModelID,
		a.TextConfig.BaseURL, a.TextConfig.APIKey, a.TextConfig.ModelID,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

// GetByID returns the account or nil if no such id exists.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM accounts WHERE id = $1
	`, id))
}

// FindByAccessKey returns the account holding the key, or nil if unknown.
func (r *AccountRepo) FindByAccessKey(ctx context.Context, accessKey string) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM accounts WHERE access_key = $1
	`, accessKey))
}

// FindByKeyAndDevice returns the account matching exactly the (access key,
// device key) pair, or nil. There is no key-only fallback.
func (r *AccountRepo) FindByKeyAndDevice(ctx context.Context, accessKey, deviceKey string) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM accounts WHERE access_key = $1 AND device_key = $2
	`, accessKey, deviceKey))
}

func (r *AccountRepo) List(ctx context.Context) ([]*models.Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (r *AccountRepo) Update(ctx context.Context, a *models.Account) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE accounts SET username = $2, is_active = $3, api_call_limit = $4, expires_on = $5,
			uninstall_pending = $6,
			vision_base_url = $7, vision_api_key = $8, vision_model_id = $9,
			text_base_url = $10, text_api_key = $11, text_model_id = $12,
			updated_at = now()
		WHERE id = $1
	`, a.ID, a.Username, a.IsActive, a.APICallLimit, a.ExpiresOn,
		a.UninstallPending,
		a.VisionConfig.BaseURL, a.VisionConfig.APIKey, a.VisionConfig.ModelID,
		a.TextConfig.BaseURL, a.TextConfig.APIKey, a.TextConfig.ModelID)
	return err
}

// Delete removes the account and reports whether it existed.
func (r *AccountRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM accounts WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetDeviceKey binds a device to the account, evicting any previous binding.
func (r *AccountRepo) SetDeviceKey(ctx context.Context, id uuid.UUID, deviceKey string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE accounts SET device_key = $2, updated_at = now() WHERE id = $1
	`, id, deviceKey)
	return err
}

// IncrementCallsTotal bumps the usage counter by one as a single
// read-modify-write at the store, so concurrent calls never lose updates.
func (r *AccountRepo) IncrementCallsTotal(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE accounts SET api_calls_total = api_calls_total + 1, updated_at = now() WHERE id = $1
	`, id)
	return err
}

// SetPendingNotification queues a message, silently replacing any unread one.
// Reports whether the account exists.
func (r *AccountRepo) SetPendingNotification(ctx context.Context, id uuid.UUID, message string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts SET pending_notification = $2, updated_at = now() WHERE id = $1
	`, id, message)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// TakePendingNotification atomically reads and clears the queued message for
// the (access key, device key) pair. Returns nil when nothing is queued.
func (r *AccountRepo) TakePendingNotification(ctx context.Context, accessKey, deviceKey string) (*string, error) {
	var message string
	err := r.pool.QueryRow(ctx, `
		WITH pending AS (
			SELECT id, pending_notification FROM accounts
			WHERE access_key = $1 AND device_key = $2 AND pending_notification IS NOT NULL
		)
		UPDATE accounts SET pending_notification = NULL, updated_at = now()
		FROM pending WHERE accounts.id = pending.id
		RETURNING pending.pending_notification
	`, accessKey, deviceKey).Scan(&message)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

// SetUninstallPending flags (or resets) the forced-uninstall marker.
// Reports whether the account exists.
func (r *AccountRepo) SetUninstallPending(ctx context.Context, id uuid.UUID, pending bool) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts SET uninstall_pending = $2, updated_at = now() WHERE id = $1
	`, id, pending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
