package services

import "errors"

// Error kinds crossing the service boundary. Handlers map each kind to a
// transport status exactly once; raw upstream causes never leave the server.
var (
	// ErrUnauthorized covers unknown keys, inactive accounts and
	// (key, device) mismatches.
	ErrUnauthorized = errors.New("invalid credentials or device key mismatch")

	// ErrKeyExpired means the account's expiry date has passed.
	ErrKeyExpired = errors.New("access key has expired")

	// ErrQuotaExceeded means the account hit its call ceiling.
	ErrQuotaExceeded = errors.New("api call limit reached for this key")

	// ErrModelConfigIncomplete means the per-account model configuration is
	// missing fields. This is server-side misconfiguration, not an upstream
	// failure.
	ErrModelConfigIncomplete = errors.New("model configuration is incomplete")

	// ErrUpstream replaces any failure from the external completion
	// endpoints. The original cause is logged server-side only.
	ErrUpstream = errors.New("external AI service unavailable")
)

// GatedError blocks a request during a manual or scheduled service lockdown.
// Message carries the operator-configured maintenance text.
type GatedError struct {
	Message string
}

func (e *GatedError) Error() string { return e.Message }
