package services

import (
	"log/slog"
	"time"

	"github.com/buckminster/backend/internal/models"
)

// CheckAvailability decides whether client traffic may be served right now.
// It returns a *GatedError when the manual switch is off or when now falls
// inside the recurring daily lockdown window. Malformed window bounds are
// logged and treated as "no lockdown configured".
func CheckAvailability(cfg *models.SystemConfig, now time.Time, log *slog.Logger) error {
	if !cfg.APIEnabled {
		return &GatedError{Message: maintenanceMessage(cfg)}
	}
	if cfg.DailyLockdownStartUTC == nil || cfg.DailyLockdownEndUTC == nil {
		return nil
	}
	locked, err := lockdownActive(*cfg.DailyLockdownStartUTC, *cfg.DailyLockdownEndUTC, now)
	if err != nil {
		log.Warn("invalid daily lockdown time format, skipping schedule check", "error", err)
		return nil
	}
	if locked {
		return &GatedError{Message: maintenanceMessage(cfg)}
	}
	return nil
}

func maintenanceMessage(cfg *models.SystemConfig) string {
	if cfg.MaintenanceMessage != "" {
		return cfg.MaintenanceMessage
	}
	return models.DefaultMaintenanceMessage
}

// lockdownActive tests membership of now's UTC time of day in the recurring
// [start, end] window. A start later than the end means the window spans
// midnight.
func lockdownActive(start, end string, now time.Time) (bool, error) {
	startSec, err := parseTimeOfDay(start)
	if err != nil {
		return false, err
	}
	endSec, err := parseTimeOfDay(end)
	if err != nil {
		return false, err
	}

	t := now.UTC()
	nowSec := t.Hour()*3600 + t.Minute()*60 + t.Second()

	if startSec <= endSec {
		return startSec <= nowSec && nowSec <= endSec, nil
	}
	return nowSec >= startSec || nowSec <= endSec, nil
}

// parseTimeOfDay accepts "HH:MM" or "HH:MM:SS" and returns seconds since
// midnight.
func parseTimeOfDay(s string) (int, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		t, err = time.Parse("15:04", s)
		if err != nil {
			return 0, err
		}
	}
	return t.Hour()*3600 + t.Minute()*60 + t.Second(), nil
}
