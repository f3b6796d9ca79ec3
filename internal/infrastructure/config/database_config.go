package config

import (
	"time"
)

// DatabaseConfig holds the pgx pool settings for the recovery store.
type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MinConnections int
	MaxLifetime    time.Duration
	MaxIdleTime    time.Duration
	HealthCheck    time.Duration
}

// applyPoolDefaults fills pool settings left unset by the environment.
// The API replicas and the sweep worker share the store, so the
// per-process ceiling stays well under the Postgres max_connections
// default of 100.
func (d *DatabaseConfig) applyPoolDefaults() {
	if d.MaxConnections == 0 {
		d.MaxConnections = 25
	}
	if d.MinConnections == 0 {
		d.MinConnections = 5
	}
	if d.MaxLifetime == 0 {
		d.MaxLifetime = time.Hour
	}
	if d.MaxIdleTime == 0 {
		d.MaxIdleTime = 30 * time.Minute
	}
	if d.HealthCheck == 0 {
		d.HealthCheck = 30 * time.Second
	}
}
