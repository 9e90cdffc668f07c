package config

import (
	"os"
	"time"
)

// Timeouts holds all configurable timeout values.
// These values can be customized via environment variables.
type Timeouts struct {
	Boot          time.Duration // Recovery image boot until SSH answers
	SSH           time.Duration // SSH connect retries after boot
	Power         time.Duration // Waiting for a power state change
	Rollout       time.Duration // MachineConfigPool rollout
	RolloutStart  time.Duration // Waiting for a pool to start updating
	Delete        time.Duration // Waiting for a deleted object to disappear
	ColdBootDelay time.Duration // Time a node stays off during a cold boot
	PollInterval  time.Duration // Poll interval for BMC and cluster waits
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - DPUPROV_TIMEOUT_BOOT (default: 15m)
//   - DPUPROV_TIMEOUT_SSH (default: 10m)
//   - DPUPROV_TIMEOUT_POWER (default: 5m)
//   - DPUPROV_TIMEOUT_ROLLOUT (default: 60m)
//   - DPUPROV_TIMEOUT_ROLLOUT_START (default: 5m)
//   - DPUPROV_TIMEOUT_DELETE (default: 2m)
//   - DPUPROV_COLD_BOOT_DELAY (default: 10s)
//   - DPUPROV_POLL_INTERVAL (default: 10s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Boot:          parseDuration("DPUPROV_TIMEOUT_BOOT", 15*time.Minute),
		SSH:           parseDuration("DPUPROV_TIMEOUT_SSH", 10*time.Minute),
		Power:         parseDuration("DPUPROV_TIMEOUT_POWER", 5*time.Minute),
		Rollout:       parseDuration("DPUPROV_TIMEOUT_ROLLOUT", 60*time.Minute),
		RolloutStart:  parseDuration("DPUPROV_TIMEOUT_ROLLOUT_START", 5*time.Minute),
		Delete:        parseDuration("DPUPROV_TIMEOUT_DELETE", 2*time.Minute),
		ColdBootDelay: parseDuration("DPUPROV_COLD_BOOT_DELAY", 10*time.Second),
		PollInterval:  parseDuration("DPUPROV_POLL_INTERVAL", 10*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
