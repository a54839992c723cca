// Package config loads service configuration from an optional YAML file
// with environment-variable overrides. Env always wins, so deployments can
// ship a base file and tune per rig through the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"rigwatch/pkg/agents"
)

// AgentConfig is the per-agent tuning block.
type AgentConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Threshold   float64 `yaml:"threshold"`
	Sensitivity float64 `yaml:"sensitivity"`
	// Aggressiveness applies to the ROP agent only.
	Aggressiveness float64 `yaml:"aggressiveness"`
}

// DatabaseConfig configures the optional Postgres store.
type DatabaseConfig struct {
	DSN           string `yaml:"dsn"`
	RetentionDays int    `yaml:"retention_days"`
}

// RedisConfig configures the optional sample/snapshot cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SimulatorConfig tunes the synthetic telemetry source.
type SimulatorConfig struct {
	Seed       int64   `yaml:"seed"`
	Volatility float64 `yaml:"volatility"`
}

// Config is the full service configuration.
type Config struct {
	HTTPAddr     string        `yaml:"http_addr"`
	PollInterval time.Duration `yaml:"poll_interval"`
	WindowSize   int           `yaml:"window_size"`
	MaxAlerts    int           `yaml:"max_alerts"`
	JWTSecret    string        `yaml:"jwt_secret"`

	Agents    map[string]AgentConfig `yaml:"agents"`
	Database  DatabaseConfig         `yaml:"database"`
	Redis     RedisConfig            `yaml:"redis"`
	Simulator SimulatorConfig        `yaml:"simulator"`
}

// Default returns the shipped defaults, matching the documented threshold
// and sensitivity settings per agent.
func Default() Config {
	return Config{
		HTTPAddr:     ":8080",
		PollInterval: 5 * time.Second,
		WindowSize:   30,
		MaxAlerts:    50,
		Agents: map[string]AgentConfig{
			agents.KindMechanicalSticking:   {Enabled: true, Threshold: 0.6, Sensitivity: 0.8},
			agents.KindDifferentialSticking: {Enabled: true, Threshold: 0.65, Sensitivity: 0.7},
			agents.KindHoleCleaning:         {Enabled: true, Threshold: 0.65, Sensitivity: 0.75},
			agents.KindWashoutMudLosses:     {Enabled: true, Threshold: 0.7, Sensitivity: 0.8},
			agents.KindROPOptimization:      {Enabled: true, Sensitivity: 0.5, Aggressiveness: 0.3},
		},
		Database:  DatabaseConfig{RetentionDays: 30},
		Simulator: SimulatorConfig{Seed: 1, Volatility: 0.2},
	}
}

// Load reads path (when non-empty) over the defaults and applies env
// overrides. Missing file entries keep their defaults, so old config
// files survive new options.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
		// A partial agents block in the file replaces the whole map;
		// refill anything it dropped.
		def := Default()
		if cfg.Agents == nil {
			cfg.Agents = def.Agents
		} else {
			for kind, ac := range def.Agents {
				if _, ok := cfg.Agents[kind]; !ok {
					cfg.Agents[kind] = ac
				}
			}
		}
	}

	cfg.HTTPAddr = Get("RIGWATCH_HTTP_ADDR", cfg.HTTPAddr)
	cfg.PollInterval = envDur("RIGWATCH_POLL_INTERVAL", cfg.PollInterval)
	cfg.WindowSize = envInt("RIGWATCH_WINDOW_SIZE", cfg.WindowSize)
	cfg.MaxAlerts = envInt("RIGWATCH_MAX_ALERTS", cfg.MaxAlerts)
	cfg.JWTSecret = Get("RIGWATCH_JWT_SECRET", cfg.JWTSecret)
	cfg.Database.DSN = Get("RIGWATCH_DATABASE_URL", cfg.Database.DSN)
	cfg.Database.RetentionDays = envInt("RIGWATCH_RETENTION_DAYS", cfg.Database.RetentionDays)
	cfg.Redis.Addr = Get("RIGWATCH_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = Get("RIGWATCH_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envInt("RIGWATCH_REDIS_DB", cfg.Redis.DB)
	cfg.Simulator.Seed = int64(envInt("RIGWATCH_SIM_SEED", int(cfg.Simulator.Seed)))
	cfg.Simulator.Volatility = envFloat("RIGWATCH_SIM_VOLATILITY", cfg.Simulator.Volatility)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("config: poll_interval must be positive, got %v", c.PollInterval)
	}
	if c.WindowSize < 2 {
		return fmt.Errorf("config: window_size must be at least 2, got %d", c.WindowSize)
	}
	for kind, ac := range c.Agents {
		if ac.Threshold < 0 || ac.Threshold > 1 {
			return fmt.Errorf("config: %s threshold %v outside [0,1]", kind, ac.Threshold)
		}
		if ac.Sensitivity < 0 || ac.Sensitivity > 1 {
			return fmt.Errorf("config: %s sensitivity %v outside [0,1]", kind, ac.Sensitivity)
		}
	}
	return nil
}

// Agent returns the tuning block for kind, falling back to the default.
func (c Config) Agent(kind string) AgentConfig {
	if ac, ok := c.Agents[kind]; ok {
		return ac
	}
	return Default().Agents[kind]
}

// Thresholds extracts the per-agent alert thresholds.
func (c Config) Thresholds() map[string]float64 {
	out := make(map[string]float64, len(c.Agents))
	for kind, ac := range c.Agents {
		out[kind] = ac.Threshold
	}
	return out
}

// Get returns an environment variable or the default value.
func Get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
