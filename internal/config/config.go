// Package config loads simulation settings from the environment, with
// an optional .env file for local overrides.
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var ErrInvalidConfig = errors.New("invalid config")

// PriceBand is the interval a schedule range bound is drawn from.
type PriceBand struct {
	Low  int `env:"LOW" envDefault:"0"`
	High int `env:"HIGH" envDefault:"0"`
}

type Config struct {
	// BatchInterval is the virtual seconds between clearings.
	BatchInterval float64 `env:"SKOLL_BATCH_INTERVAL" envDefault:"0.2"`

	// SessionLength is the wall-clock length of one session in
	// seconds; VirtualSessionLength the virtual timesteps it maps to.
	SessionLength        float64 `env:"SKOLL_SESSION_LENGTH" envDefault:"1"`
	VirtualSessionLength float64 `env:"SKOLL_VIRTUAL_SESSION_LENGTH" envDefault:"600"`

	Verbose bool `env:"SKOLL_VERBOSE" envDefault:"false"`

	// Default trader schedule, used when no counts are given on the
	// command line.
	NumZIC  int `env:"SKOLL_NUM_ZIC" envDefault:"0"`
	NumZIP  int `env:"SKOLL_NUM_ZIP" envDefault:"5"`
	NumGDX  int `env:"SKOLL_NUM_GDX" envDefault:"0"`
	NumAA   int `env:"SKOLL_NUM_AA" envDefault:"0"`
	NumGVWY int `env:"SKOLL_NUM_GVWY" envDefault:"5"`
	NumSHVR int `env:"SKOLL_NUM_SHVR" envDefault:"0"`
	NumMTUM int `env:"SKOLL_NUM_MTUM" envDefault:"0"`

	// Order schedule shape.
	UseOffset    bool   `env:"SKOLL_USE_OFFSET" envDefault:"false"`
	UseInputFile bool   `env:"SKOLL_USE_INPUT_FILE" envDefault:"false"`
	InputFile    string `env:"SKOLL_INPUT_FILE" envDefault:"RWD/IBM-310817.csv"`
	StepMode     string `env:"SKOLL_STEP_MODE" envDefault:"random"`
	TimeMode     string `env:"SKOLL_TIME_MODE" envDefault:"periodic"`
	Interval     int    `env:"SKOLL_INTERVAL" envDefault:"250"`

	SupplyMax PriceBand `envPrefix:"SKOLL_SUPPLY_MAX_"`
	SupplyMin PriceBand `envPrefix:"SKOLL_SUPPLY_MIN_"`
	DemandMax PriceBand `envPrefix:"SKOLL_DEMAND_MAX_"`
	DemandMin PriceBand `envPrefix:"SKOLL_DEMAND_MIN_"`

	// Symmetric makes the demand schedule mirror the supply schedule.
	Symmetric bool `env:"SKOLL_SYMMETRIC" envDefault:"true"`

	NumTrials            int `env:"SKOLL_NUM_TRIALS" envDefault:"10"`
	NumSchedulesPerRatio int `env:"SKOLL_NUM_SCHEDULES_PER_RATIO" envDefault:"10"`
	NumTrialsPerSchedule int `env:"SKOLL_NUM_TRIALS_PER_SCHEDULE" envDefault:"100"`

	TapeFile   string `env:"SKOLL_TAPE_FILE" envDefault:"transactions.csv"`
	ResultsDir string `env:"SKOLL_RESULTS_DIR" envDefault:"test_results"`
}

// Load reads the environment, after layering in a .env file when one
// exists, and validates the result.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	applyBandDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// env tags cannot default a nested band to two different numbers per
// field name, so zero-valued bands get the stock curve shape here.
func applyBandDefaults(cfg *Config) {
	def := func(b *PriceBand, low, high int) {
		if b.Low == 0 && b.High == 0 {
			b.Low, b.High = low, high
		}
	}
	def(&cfg.SupplyMax, 100, 200)
	def(&cfg.SupplyMin, 0, 100)
	def(&cfg.DemandMax, 100, 200)
	def(&cfg.DemandMin, 0, 100)
}

func (c Config) Validate() error {
	fail := func(msg string) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
	}
	if c.BatchInterval <= 0 {
		return fail("batch interval must be greater than 0")
	}
	if c.SessionLength <= 0 || c.VirtualSessionLength <= 0 {
		return fail("session lengths must be greater than 0")
	}
	if c.NumZIC < 0 || c.NumZIP < 0 || c.NumGDX < 0 || c.NumAA < 0 ||
		c.NumGVWY < 0 || c.NumSHVR < 0 || c.NumMTUM < 0 {
		return fail("trader schedule values must be greater than or equal to 0")
	}
	switch c.StepMode {
	case "fixed", "jittered", "random":
	default:
		return fail("stepmode must be 'fixed', 'jittered' or 'random'")
	}
	switch c.TimeMode {
	case "periodic", "drip-fixed", "drip-jitter", "drip-poisson":
	default:
		return fail("timemode must be 'periodic', 'drip-fixed', 'drip-jitter' or 'drip-poisson'")
	}
	if c.Interval <= 0 {
		return fail("interval must be greater than 0")
	}
	for _, b := range []PriceBand{c.SupplyMax, c.SupplyMin, c.DemandMax, c.DemandMin} {
		if b.Low < 0 || b.High < 0 {
			return fail("schedule range values must be greater than or equal to 0")
		}
		if b.High < b.Low {
			return fail("range high must be greater than or equal to range low")
		}
	}
	if c.NumTrials < 1 {
		return fail("numTrials must be greater than or equal to 1")
	}
	if c.NumSchedulesPerRatio < 1 || c.NumTrialsPerSchedule < 1 {
		return fail("schedule/trial counts must be greater than or equal to 1")
	}
	return nil
}
