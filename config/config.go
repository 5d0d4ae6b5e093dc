package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Workflow   WorkflowConfig   `yaml:"workflow"`
	Sweeper    SweeperConfig    `yaml:"sweeper"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Auth       AuthConfig       `yaml:"auth"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// WorkflowConfig holds the business rules applied by the workflow engine.
type WorkflowConfig struct {
	// Equipment reported lost above this purchase price flags the
	// transition result for downstream approval.
	HighValueThreshold float64 `yaml:"high_value_threshold"`
	// Loan length used when a checkout does not name a due date.
	DefaultLoanDays int `yaml:"default_loan_days"`
}

// SweeperConfig holds the time-based promotion policy for the sweeper.
type SweeperConfig struct {
	Enabled             bool          `yaml:"enabled"`
	IntervalMinutes     int           `yaml:"interval_minutes"`
	Interval            time.Duration `yaml:"-"` // Ignored by YAML parser
	OverdueThresholdHrs int           `yaml:"overdue_threshold_hours"`
	MaintenanceDueDays  int           `yaml:"maintenance_due_days"`
	LostThresholdDays   int           `yaml:"lost_threshold_days"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	Enabled    bool   `yaml:"enabled"`
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// AuthConfig holds the bearer token verification settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// Load reads the configuration from the given path and applies defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills in sane defaults for unset values.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}

	if cfg.Workflow.HighValueThreshold <= 0 {
		cfg.Workflow.HighValueThreshold = 500
	}
	if cfg.Workflow.DefaultLoanDays <= 0 {
		cfg.Workflow.DefaultLoanDays = 14
	}

	if cfg.Sweeper.IntervalMinutes <= 0 {
		cfg.Sweeper.IntervalMinutes = 60
	}
	cfg.Sweeper.Interval = time.Duration(cfg.Sweeper.IntervalMinutes) * time.Minute

	if cfg.Sweeper.OverdueThresholdHrs <= 0 {
		cfg.Sweeper.OverdueThresholdHrs = 24
	}
	if cfg.Sweeper.MaintenanceDueDays <= 0 {
		cfg.Sweeper.MaintenanceDueDays = 90
	}
	if cfg.Sweeper.LostThresholdDays <= 0 {
		cfg.Sweeper.LostThresholdDays = 30
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}
}
