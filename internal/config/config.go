package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/peter-kozarec/artemis/pkg/exchange/sandbox"
	"github.com/peter-kozarec/artemis/pkg/simulation"
)

var ErrInvalid = errors.New("invalid configuration")

const (
	envPrefix      = "ARTEMIS_"
	defaultResults = "results.csv"
)

type Config struct {
	Backtest BacktestConfig `yaml:"backtest"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type BacktestConfig struct {
	InitialEquity      float64 `yaml:"initial_equity"`
	Commission         float64 `yaml:"commission"` // per side
	SlippageTicks      float64 `yaml:"slippage_ticks"`
	TickSize           float64 `yaml:"tick_size"`
	ContractMultiplier float64 `yaml:"contract_multiplier"`
	Window             int     `yaml:"window"`
	Threshold          float64 `yaml:"threshold"`
}

type IngestConfig struct {
	QueueCapacity uint64  `yaml:"queue_capacity"`
	ReplayRate    float64 `yaml:"replay_rate"` // ticks per second, 0 unpaced
}

type OutputConfig struct {
	Results string `yaml:"results"`
	DuckDB  string `yaml:"duckdb"`
}

type LogConfig struct {
	Level   string   `yaml:"level"`  // debug | info | warn | error
	Format  string   `yaml:"format"` // console | json
	Monitor []string `yaml:"monitor"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Backtest: BacktestConfig{
			InitialEquity:      sandbox.DefaultInitialEquity,
			Commission:         sandbox.DefaultCommission,
			SlippageTicks:      sandbox.DefaultSlippageTicks,
			TickSize:           sandbox.DefaultTickSize,
			ContractMultiplier: sandbox.DefaultContractMultiplier,
			Window:             simulation.DefaultWindow,
			Threshold:          simulation.DefaultThreshold,
		},
		Ingest: IngestConfig{
			QueueCapacity: simulation.DefaultQueueCapacity,
		},
		Output: OutputConfig{
			Results: defaultResults,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load starts from the defaults, applies the YAML file at path and then
// .env and ARTEMIS_* overrides, and validates the result. Keys missing from
// the file keep their defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse yaml: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid field wrapped in ErrInvalid.
func (c *Config) Validate() error {
	switch {
	case c.Backtest.InitialEquity <= 0:
		return fmt.Errorf("%w: backtest.initial_equity must be positive", ErrInvalid)
	case c.Backtest.Commission < 0:
		return fmt.Errorf("%w: backtest.commission must not be negative", ErrInvalid)
	case c.Backtest.SlippageTicks < 0:
		return fmt.Errorf("%w: backtest.slippage_ticks must not be negative", ErrInvalid)
	case c.Backtest.TickSize <= 0:
		return fmt.Errorf("%w: backtest.tick_size must be positive", ErrInvalid)
	case c.Backtest.ContractMultiplier <= 0:
		return fmt.Errorf("%w: backtest.contract_multiplier must be positive", ErrInvalid)
	case c.Backtest.Window < 1:
		return fmt.Errorf("%w: backtest.window must be at least 1", ErrInvalid)
	case c.Backtest.Threshold <= 0:
		return fmt.Errorf("%w: backtest.threshold must be positive", ErrInvalid)
	case c.Ingest.QueueCapacity < 2 || c.Ingest.QueueCapacity&(c.Ingest.QueueCapacity-1) != 0:
		return fmt.Errorf("%w: ingest.queue_capacity %d is not a power of two", ErrInvalid, c.Ingest.QueueCapacity)
	case c.Ingest.ReplayRate < 0:
		return fmt.Errorf("%w: ingest.replay_rate must not be negative", ErrInvalid)
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}

// Simulation converts the backtest and ingest sections into the
// orchestrator's configuration.
func (c *Config) Simulation() simulation.Configuration {
	return simulation.Configuration{
		InitialEquity:      c.Backtest.InitialEquity,
		Commission:         c.Backtest.Commission,
		SlippageTicks:      c.Backtest.SlippageTicks,
		TickSize:           c.Backtest.TickSize,
		ContractMultiplier: c.Backtest.ContractMultiplier,
		Window:             c.Backtest.Window,
		Threshold:          c.Backtest.Threshold,
		QueueCapacity:      c.Ingest.QueueCapacity,
		ReplayRate:         c.Ingest.ReplayRate,
	}
}

func applyEnvOverrides(cfg *Config) error {
	floats := map[string]*float64{
		"INITIAL_EQUITY":      &cfg.Backtest.InitialEquity,
		"COMMISSION":          &cfg.Backtest.Commission,
		"SLIPPAGE_TICKS":      &cfg.Backtest.SlippageTicks,
		"TICK_SIZE":           &cfg.Backtest.TickSize,
		"CONTRACT_MULTIPLIER": &cfg.Backtest.ContractMultiplier,
		"THRESHOLD":           &cfg.Backtest.Threshold,
		"REPLAY_RATE":         &cfg.Ingest.ReplayRate,
	}
	for key, dst := range floats {
		if v := os.Getenv(envPrefix + key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%w: %s%s=%q: %w", ErrInvalid, envPrefix, key, v, err)
			}
			*dst = f
		}
	}

	if v := os.Getenv(envPrefix + "WINDOW"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sWINDOW=%q: %w", ErrInvalid, envPrefix, v, err)
		}
		cfg.Backtest.Window = n
	}

	if v := os.Getenv(envPrefix + "QUEUE_CAPACITY"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %sQUEUE_CAPACITY=%q: %w", ErrInvalid, envPrefix, v, err)
		}
		cfg.Ingest.QueueCapacity = n
	}

	strs := map[string]*string{
		"RESULTS":      &cfg.Output.Results,
		"DUCKDB":       &cfg.Output.DuckDB,
		"LOG_LEVEL":    &cfg.Log.Level,
		"LOG_FORMAT":   &cfg.Log.Format,
		"METRICS_ADDR": &cfg.Metrics.Addr,
	}
	for key, dst := range strs {
		if v := os.Getenv(envPrefix + key); v != "" {
			*dst = v
		}
	}
	return nil
}
