package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/buckminster/backend/internal/models"
	"github.com/buckminster/backend/internal/services"
)

// ConfigSource loads the current system configuration.
type ConfigSource interface {
	Get(ctx context.Context) (*models.SystemConfig, error)
}

// nowFn is swappable so tests can pin the clock.
var nowFn = time.Now

// Availability gates client traffic behind the manual service switch and the
// recurring daily lockdown window. The gate is re-evaluated from stored
// state on every request. Activation and key validation are intentionally
// not behind this gate so clients can keep their credentials fresh during a
// lockdown.
func Availability(source ConfigSource, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cfg, err := source.Get(r.Context())
			if err != nil {
				log.Error("load system config", "error", err)
				http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
				return
			}
			if err := services.CheckAvailability(cfg, nowFn(), log); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
