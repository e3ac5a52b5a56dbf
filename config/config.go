// Package config loads the agent's configuration: struct-tag defaults
// seeded by caarlos0/env, overlaid with a JSON file discovered next to the
// executable or under ~/.fleetcron/, and validated with go-playground's
// validator. The loaded value is held behind an atomic.Pointer so the
// command watcher's reload_config command can swap it in without a restart.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/kpopdotlink/fleetcron/internal/domain"
)

// RetryConfig governs the http step runner's retry behaviour.
type RetryConfig struct {
	Retries int     `json:"retries" env:"RETRIES" envDefault:"2" validate:"gte=0"`
	DelaySec float64 `json:"delay_sec" env:"DELAY_SEC" envDefault:"3" validate:"gte=0"`
	Backoff  float64 `json:"backoff" env:"BACKOFF" envDefault:"1.5" validate:"gte=1"`
}

// HTTPDefaults are the global fallbacks applied to any action-chain step
// that doesn't override them.
type HTTPDefaults struct {
	TimeoutSec int         `json:"timeout_sec" env:"TIMEOUT_SEC" envDefault:"10" validate:"gt=0"`
	Retry      RetryConfig `json:"retry"`
}

// Config is the agent's full runtime configuration.
type Config struct {
	Env string `json:"env" env:"ENV" envDefault:"local"`

	MongoURI   string `json:"mongodb_uri" env:"MONGODB_URI" validate:"required"`
	DBName     string `json:"db_name" env:"DB_NAME" envDefault:"fleetcron"`
	TZ         string `json:"tz" env:"TZ" envDefault:"Asia/Seoul"`
	OrderField string `json:"order_field" env:"ORDER_FIELD" envDefault:"order"`

	DefaultOrder int `json:"default_order" env:"DEFAULT_ORDER" envDefault:"9999"`
	MaxOrder     int `json:"max_order" env:"MAX_ORDER" envDefault:"10"`
	MaxSerial    int `json:"max_serial" env:"MAX_SERIAL" envDefault:"10"`

	HTTPDefaults HTTPDefaults `json:"http_defaults"`

	Secrets map[string]string `json:"secrets"`

	NotifyDriver string                    `json:"notify_driver" env:"NOTIFY_DRIVER" envDefault:"log" validate:"oneof=log telegram"`
	Notification domain.NotificationConfig `json:"notification"`

	AdminAddr string `json:"admin_addr" env:"ADMIN_ADDR" envDefault:":9090"`
	CAFile    string `json:"ca_file" env:"CA_FILE"`
}

// MaxActiveMachines is the effective active-machine cap: max_order and
// max_serial name the same concept under the legacy alias, so the smaller
// of the two configured values wins.
func (c *Config) MaxActiveMachines() int {
	if c.MaxSerial > 0 && c.MaxSerial < c.MaxOrder {
		return c.MaxSerial
	}
	return c.MaxOrder
}

// configPaths returns the candidate config file locations, in the order
// they should be tried: next to the running executable first, then under
// the user's home directory.
func configPaths() []string {
	var paths []string
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), "config.json"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".fleetcron", "config.json"))
	}
	return paths
}

// Load seeds defaults from struct tags, overlays the first config.json it
// finds (if any), and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env defaults: %w", err)
	}

	for _, path := range configPaths() {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		break
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Store holds a live Config behind an atomic pointer so reload_config can
// swap it without disturbing readers mid-tick.
type Store struct {
	ptr atomic.Pointer[Config]
}

// NewStore wraps an initial Config in a Store.
func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.ptr.Store(cfg)
	return s
}

// Get returns the current Config snapshot.
func (s *Store) Get() *Config {
	return s.ptr.Load()
}

// Reload re-runs Load and swaps it in atomically.
func (s *Store) Reload() error {
	cfg, err := Load()
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	s.ptr.Store(cfg)
	return nil
}
