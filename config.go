package mapreduce

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the job's required fields plus this module's additions
// for logging, metrics, and job-id disambiguation. viper is the vehicle
// that reads the JSON file into this struct.
type Config struct {
	// InputFile is the corpus path (required).
	InputFile string `mapstructure:"input_file"`
	// NumMapper is the map worker count (required, >= 1).
	NumMapper int `mapstructure:"number_of_mapper"`
	// NumReducer is the reduce worker count (required, >= 1).
	NumReducer int `mapstructure:"number_of_reducer"`

	// MapFunc and ReduceFunc name the registered user functions to run
	// (default "wordcount").
	MapFunc    string `mapstructure:"map_fn"`
	ReduceFunc string `mapstructure:"reduce_fn"`

	// LivenessTimeoutMS is the Supervisor's per-worker timeout in
	// milliseconds (default 3000).
	LivenessTimeoutMS int `mapstructure:"liveness_timeout_ms"`

	// DisambiguateJobID requests a uuid-suffixed job id; default false
	// leaves same-second collisions possible.
	DisambiguateJobID bool `mapstructure:"disambiguate_job_id"`

	// TmpRoot and OutRoot override the default ./tmp and ./output roots.
	TmpRoot string `mapstructure:"tmp_root"`
	OutRoot string `mapstructure:"out_root"`

	// MetricsAddr, if non-empty, starts a /metrics HTTP handler on this
	// address; empty disables it.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// LivenessTimeout returns the configured liveness timeout as a
// time.Duration, defaulting to 3 seconds.
func (c *Config) LivenessTimeout() time.Duration {
	if c.LivenessTimeoutMS <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.LivenessTimeoutMS) * time.Millisecond
}

// LoadConfig reads the JSON configuration at path using viper and
// validates the required fields. A configuration error is fatal at
// startup, before any job state is created.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("map_fn", "wordcount")
	v.SetDefault("reduce_fn", "wordcount")
	v.SetDefault("liveness_timeout_ms", 3000)
	v.SetDefault("tmp_root", "./tmp")
	v.SetDefault("out_root", "./output")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("mapreduce: read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("mapreduce: parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the required configuration fields.
func (c *Config) Validate() error {
	if c.InputFile == "" {
		return ErrNoInputFile
	}
	if c.NumMapper < 1 {
		return fmt.Errorf("%w: number_of_mapper=%d", ErrBadWorkerCount, c.NumMapper)
	}
	if c.NumReducer < 1 {
		return fmt.Errorf("%w: number_of_reducer=%d", ErrBadWorkerCount, c.NumReducer)
	}
	return nil
}
