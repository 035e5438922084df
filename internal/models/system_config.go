package models

// SystemConfigID is the fixed id of the singleton system_config row.
const SystemConfigID = "global_settings"

// DefaultMaintenanceMessage is shown to gated clients when no operator
// message has been configured.
const DefaultMaintenanceMessage = "The service is temporarily unavailable for maintenance. Please try again later."

// SystemConfig is the single service-wide gating record. Lockdown bounds are
// wall-clock UTC times of day ("HH:MM" or "HH:MM:SS"); when both are set they
// define a recurring daily blackout window.
type SystemConfig struct {
	APIEnabled            bool    `json:"api_enabled"`
	DailyLockdownStartUTC *string `json:"daily_lockdown_start_utc,omitempty"`
	DailyLockdownEndUTC   *string `json:"daily_lockdown_end_utc,omitempty"`
	MaintenanceMessage    string  `json:"maintenance_message"`
}

// DefaultSystemConfig is the record returned before an administrator has ever
// written one.
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		APIEnabled:         true,
		MaintenanceMessage: DefaultMaintenanceMessage,
	}
}
