package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/buckminster/backend/internal/models"
)

type ConfigRepo struct {
	pool *pgxpool.Pool
}

func NewConfigRepo(pool *pgxpool.Pool) *ConfigRepo {
	return &ConfigRepo{pool: pool}
}

// Get returns the singleton system configuration, falling back to defaults
// when no row has ever been written.
func (r *ConfigRepo) Get(ctx context.Context) (*models.SystemConfig, error) {
	var c models.SystemConfig
	err := r.pool.QueryRow(ctx, `
		SELECT api_enabled, daily_lockdown_start_utc, daily_lockdown_end_utc, maintenance_message
		FROM system_config WHERE id = $1
	`, models.SystemConfigID).Scan(&c.APIEnabled, &c.DailyLockdownStartUTC, &c.DailyLockdownEndUTC, &c.MaintenanceMessage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.DefaultSystemConfig(), nil
		}
		return nil, err
	}
	return &c, nil
}

// Upsert writes the full configuration record, creating it on first update.
func (r *ConfigRepo) Upsert(ctx context.Context, c *models.SystemConfig) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO system_config (id, api_enabled, daily_lockdown_start_utc, daily_lockdown_end_utc, maintenance_message)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			api_enabled = EXCLUDED.api_enabled,
			daily_lockdown_start_utc = EXCLUDED.daily_lockdown_start_utc,
			daily_lockdown_end_utc = EXCLUDED.daily_lockdown_end_utc,
			maintenance_message = EXCLUDED.maintenance_message
	`, models.SystemConfigID, c.APIEnabled, c.DailyLockdownStartUTC, c.DailyLockdownEndUTC, c.MaintenanceMessage)
	return err
}
