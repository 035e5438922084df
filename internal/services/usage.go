package services

import (
	"time"

	"github.com/buckminster/backend/internal/models"
)

// CheckUsable enforces expiry and the call-count ceiling. Expiry is checked
// first so an expired key reports as expired even when its quota is also
// spent. Runs after the credential check and before any external call.
func CheckUsable(a *models.Account, now time.Time) error {
	if a.ExpiresOn != nil && a.ExpiresOn.Before(now) {
		return ErrKeyExpired
	}
	if a.APICallLimit != nil && a.APICallsTotal >= *a.APICallLimit {
		return ErrQuotaExceeded
	}
	return nil
}
