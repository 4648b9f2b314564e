package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix for all environment variable overrides.
const EnvPrefix = "SEQFORGE"

// Config is the complete pipeline configuration. Every tunable lives
// here; there is no hidden process-wide state. Precedence is
// environment > config file > defaults.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Storage  StorageConfig  `yaml:"storage" envconfig:"STORAGE"`
	Sources  SourcesConfig  `yaml:"sources" envconfig:"SOURCES"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"omitempty,oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"omitempty,oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains the file system layout of the pipeline. All
// relative paths resolve against BaseDir.
type PathsConfig struct {
	BaseDir      string `yaml:"base_dir" envconfig:"BASE_DIR"`
	ProcessedDir string `yaml:"processed_dir" envconfig:"PROCESSED_DIR"`
	FeaturedDir  string `yaml:"featured_dir" envconfig:"FEATURED_DIR"`
	SequencesDir string `yaml:"sequences_dir" envconfig:"SEQUENCES_DIR"`
	ScalersDir   string `yaml:"scalers_dir" envconfig:"SCALERS_DIR"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// StorageConfig configures the remote object-storage collaborator.
// An empty bucket disables remote mirroring entirely; the pipeline
// then reads and writes local files only.
type StorageConfig struct {
	Bucket          string `yaml:"bucket" envconfig:"BUCKET"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
	RemotePrefix    string `yaml:"remote_prefix" envconfig:"REMOTE_PREFIX"`
}

// Enabled reports whether remote storage is configured.
func (s StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

// SourceConfig describes one raw input series.
type SourceConfig struct {
	// Name prefixes this source's columns after alignment, e.g. "spx"
	// turns "price" into "spx_price".
	Name string `yaml:"name" envconfig:"NAME"`
	// File is the local file name under the processed directory.
	File string `yaml:"file" envconfig:"FILE"`
	// Object is the remote object key the file is fetched from.
	Object string `yaml:"object" envconfig:"OBJECT"`
}

// SourcesConfig names the three raw input series.
type SourcesConfig struct {
	Index      SourceConfig `yaml:"index" envconfig:"INDEX"`
	Tracking   SourceConfig `yaml:"tracking" envconfig:"TRACKING"`
	Volatility SourceConfig `yaml:"volatility" envconfig:"VOLATILITY"`
}

// All returns the three sources in pipeline order.
func (s SourcesConfig) All() []SourceConfig {
	return []SourceConfig{s.Index, s.Tracking, s.Volatility}
}

// PipelineConfig contains every numeric tunable of the core pipeline.
type PipelineConfig struct {
	// Horizon is the number of rows the label is shifted forward.
	Horizon int `yaml:"horizon" envconfig:"HORIZON" validate:"min=1"`
	// Cadence is the fixed interval the volatility series is resampled to.
	Cadence Duration `yaml:"cadence" envconfig:"CADENCE"`
	// WindowLength is the sequence window length L.
	WindowLength int `yaml:"window_length" envconfig:"WINDOW_LENGTH" validate:"min=2"`
	// ChunkSize bounds how many windows one emitted batch may hold.
	ChunkSize int `yaml:"chunk_size" envconfig:"CHUNK_SIZE" validate:"min=1"`
	// TrainFrac and ValFrac are the chronological split fractions; the
	// remainder becomes the test partition.
	TrainFrac float64 `yaml:"train_frac" envconfig:"TRAIN_FRAC" validate:"gt=0,lt=1"`
	ValFrac   float64 `yaml:"val_frac" envconfig:"VAL_FRAC" validate:"gte=0,lt=1"`
	// WarmupTrim rows are cut from the start of the cleaned dataset to
	// discard indicator warm-up; CooldownTrim rows from the end. A zero
	// CooldownTrim follows the horizon.
	WarmupTrim   int `yaml:"warmup_trim" envconfig:"WARMUP_TRIM" validate:"min=0"`
	CooldownTrim int `yaml:"cooldown_trim" envconfig:"COOLDOWN_TRIM" validate:"min=0"`
	// MinRows is the row count below which trimming is skipped with a
	// degraded-data warning.
	MinRows int `yaml:"min_rows" envconfig:"MIN_ROWS" validate:"min=1"`
	// LabelColumn names the supervised label column.
	LabelColumn string `yaml:"label_column" envconfig:"LABEL_COLUMN"`
	// ChunkPrefix prefixes the emitted sequence chunk file names.
	ChunkPrefix string `yaml:"chunk_prefix" envconfig:"CHUNK_PREFIX"`
}

// Load loads configuration from an optional YAML file and environment
// variables, applies defaults to anything still unset, and validates
// the result. An empty configPath skips the file entirely; a named but
// missing file is an error.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Environment overrides file values.
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration with every default applied and no
// file or environment input.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// applyDefaults fills every zero-valued field with its default.
func (c *Config) applyDefaults() {
	setString(&c.Logging.Level, "info")
	setString(&c.Logging.Format, "json")
	setString(&c.Logging.Output, "console")
	setString(&c.Logging.FilePath, "logs/pipeline.log")

	setString(&c.Paths.BaseDir, "data")
	setString(&c.Paths.ProcessedDir, "processed")
	setString(&c.Paths.FeaturedDir, "featured")
	setString(&c.Paths.SequencesDir, "featured/sequences")
	setString(&c.Paths.ScalersDir, "scalers")
	setString(&c.Paths.LogsDir, "logs")

	setString(&c.Sources.Index.Name, "spx")
	setString(&c.Sources.Index.File, "processed_real_time_spx.csv")
	setString(&c.Sources.Index.Object, "data/processed/processed_real_time_spx.csv")
	setString(&c.Sources.Tracking.Name, "spy")
	setString(&c.Sources.Tracking.File, "processed_real_time_spy.csv")
	setString(&c.Sources.Tracking.Object, "data/processed/processed_real_time_spy.csv")
	setString(&c.Sources.Volatility.Name, "vix")
	setString(&c.Sources.Volatility.File, "processed_real_time_vix.csv")
	setString(&c.Sources.Volatility.Object, "data/processed/processed_real_time_vix.csv")

	setInt(&c.Pipeline.Horizon, 20)
	if c.Pipeline.Cadence.Duration() == 0 {
		c.Pipeline.Cadence = Minutes(3)
	}
	setInt(&c.Pipeline.WindowLength, 60)
	setInt(&c.Pipeline.ChunkSize, 10000)
	if c.Pipeline.TrainFrac == 0 {
		c.Pipeline.TrainFrac = 0.70
	}
	if c.Pipeline.ValFrac == 0 {
		c.Pipeline.ValFrac = 0.15
	}
	setInt(&c.Pipeline.WarmupTrim, 50)
	setInt(&c.Pipeline.CooldownTrim, c.Pipeline.Horizon)
	setInt(&c.Pipeline.MinRows, 70)
	setString(&c.Pipeline.LabelColumn, "target_1h")
	setString(&c.Pipeline.ChunkPrefix, "spx_spy_vix")
}

// validate checks the configuration with struct tags plus the
// cross-field rules the tags cannot express.
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Pipeline.TrainFrac+c.Pipeline.ValFrac >= 1 {
		return fmt.Errorf("train_frac (%v) + val_frac (%v) must leave room for a test partition",
			c.Pipeline.TrainFrac, c.Pipeline.ValFrac)
	}
	if c.Pipeline.Cadence.Duration() <= 0 {
		return fmt.Errorf("cadence must be positive, got %v", c.Pipeline.Cadence.Duration())
	}
	names := map[string]bool{}
	for _, src := range c.Sources.All() {
		if names[src.Name] {
			return fmt.Errorf("duplicate source name %q", src.Name)
		}
		names[src.Name] = true
	}
	return nil
}

func setString(field *string, def string) {
	if *field == "" {
		*field = def
	}
}

func setInt(field *int, def int) {
	if *field == 0 {
		*field = def
	}
}
