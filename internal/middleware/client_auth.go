package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/buckminster/backend/internal/models"
)

// AccountLookup resolves an exact (access key, device key) pair. A nil
// account with a nil error means no such pair exists.
type AccountLookup interface {
	FindByKeyAndDevice(ctx context.Context, accessKey, deviceKey string) (*models.Account, error)
}

// clientCredentials is the body fragment peeked by ClientAuth.
type clientCredentials struct {
	AccessKey string `json:"access_key"`
	DeviceKey string `json:"device_key"`
}

// ClientAuth authenticates client calls by the key/device pair embedded in
// the JSON body. It reads the body to extract the credentials, then replaces
// r.Body so downstream handlers can re-read it. The match is strict equality
// on both fields plus the active flag; there is no key-only fallback.
func ClientAuth(lookup AccountLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, err := io.ReadAll(r.Body)
			r.Body.Close()
			if err != nil {
				http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
				return
			}
			// Restore body for the handler.
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			var creds clientCredentials
			if err := json.Unmarshal(bodyBytes, &creds); err != nil {
				http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
				return
			}
			if creds.AccessKey == "" || creds.DeviceKey == "" {
				http.Error(w, `{"error":"invalid credentials or device key mismatch"}`, http.StatusForbidden)
				return
			}

			acc, err := lookup.FindByKeyAndDevice(r.Context(), creds.AccessKey, creds.DeviceKey)
			if err != nil {
				http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
				return
			}
			if acc == nil || !acc.IsActive {
				http.Error(w, `{"error":"invalid credentials or device key mismatch"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), acc)))
		})
	}
}
