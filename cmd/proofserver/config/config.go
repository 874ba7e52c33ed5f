// Package config loads the proof server's runtime configuration from the
// environment, mirroring the ledger's MIDNIGHT_PROOF_SERVER_* variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every flag/env-driven setting the proof server needs to
// bind a listener and run its worker pool.
type Config struct {
	Port            int
	NumWorkers      int
	JobCapacity     int
	JobTimeout      time.Duration
	APIKey          string
	DisableAuth     bool
	RateLimitPerSec float64
	MaxPayloadBytes int64
	PrefetchParams  bool
	Production      bool
}

const (
	envPort        = "MIDNIGHT_PROOF_SERVER_PORT"
	envAPIKey      = "MIDNIGHT_PROOF_SERVER_API_KEY"
	envNumWorkers  = "MIDNIGHT_PROOF_SERVER_NUM_WORKERS"
	envJobTimeout  = "MIDNIGHT_PROOF_SERVER_JOB_TIMEOUT"
	envDisableAuth = "MIDNIGHT_PROOF_SERVER_DISABLE_AUTH"
)

// Load reads a local .env file (if present, ignored if not) then overlays
// process environment via viper, applying defaults for anything unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(nil)
	v.AutomaticEnv()
	v.SetDefault(envPort, 6300)
	v.SetDefault(envNumWorkers, 4)
	v.SetDefault(envJobTimeout, "30s")
	v.SetDefault(envDisableAuth, false)

	timeout, err := time.ParseDuration(v.GetString(envJobTimeout))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", envJobTimeout, err)
	}

	cfg := &Config{
		Port:            v.GetInt(envPort),
		NumWorkers:      v.GetInt(envNumWorkers),
		JobCapacity:     v.GetInt(envNumWorkers) * 8,
		JobTimeout:      timeout,
		APIKey:          v.GetString(envAPIKey),
		DisableAuth:     v.GetBool(envDisableAuth),
		RateLimitPerSec: 50,
		MaxPayloadBytes: 8 << 20,
		PrefetchParams:  true,
		Production:      os.Getenv("ENV") == "production",
	}
	if jc := os.Getenv("MIDNIGHT_PROOF_SERVER_JOB_CAPACITY"); jc != "" {
		if n, err := strconv.Atoi(jc); err == nil {
			cfg.JobCapacity = n
		}
	}
	return cfg, nil
}

// Validate enforces the one production-fatal rule spec §6 calls out: a
// production deployment must set an API key and must not disable auth.
func (c *Config) Validate() error {
	if c.Production && (c.DisableAuth || c.APIKey == "") {
		return fmt.Errorf("proof server: production deployment requires an API key")
	}
	return nil
}
