// Package config loads the job configuration of trackgeo from YAML with
// TRACKGEO_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"trackgeo/internal/blob"
	"trackgeo/internal/field"
	"trackgeo/internal/importer"
	"trackgeo/internal/limits"

	"gopkg.in/yaml.v3"
)

// Input kinds.
const (
	InputNone  = "none"
	InputBlob  = "blob"
	InputTable = "sql"
)

// Config holds one job's configuration.
type Config struct {
	// Source is the geometry source tag or one of its aliases.
	Source       string                `yaml:"source"`
	Capabilities importer.Capabilities `yaml:"capabilities"`

	Limits LimitsConfig `yaml:"limits"`
	Field  FieldConfig  `yaml:"field"`

	// InterchangeMedia selects the interchange medium fill:
	// material-index or tracking-media.
	InterchangeMedia string `yaml:"interchange_media"`

	Verbose int `yaml:"verbose"`
	Workers int `yaml:"workers"`

	Input   InputConfig   `yaml:"input"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LimitsConfig mirrors limits.Config.
type LimitsConfig struct {
	UserMaxStep         bool    `yaml:"user_max_step"`
	MaxStepInLowDensity bool    `yaml:"max_step_in_low_density"`
	LimitDensity        float64 `yaml:"limit_density"`        // g/cm3
	LowDensityMaxStep   float64 `yaml:"low_density_max_step"` // cm
}

// FieldConfig configures the field adapters.
type FieldConfig struct {
	Stepper            string  `yaml:"stepper"`
	MinimumStep        float64 `yaml:"minimum_step"`
	DeltaChord         float64 `yaml:"delta_chord"`
	DeltaOneStep       float64 `yaml:"delta_one_step"`
	DeltaIntersection  float64 `yaml:"delta_intersection"`
	MinimumEpsilonStep float64 `yaml:"minimum_epsilon_step"`
	MaximumEpsilonStep float64 `yaml:"maximum_epsilon_step"`
	// Uniform is the field value in kilogauss; empty means no field.
	Uniform []float64 `yaml:"uniform,omitempty"`
}

// InputConfig locates the geometry definition.
type InputConfig struct {
	Kind  string      `yaml:"kind"`  // none, blob, sql
	Key   string      `yaml:"key"`   // document key when kind=blob
	Setup string      `yaml:"setup"` // setup name when kind=sql
	Blob  BlobConfig  `yaml:"blob"`
	Table TableConfig `yaml:"table"`
}

// BlobConfig configures the document store.
type BlobConfig struct {
	Driver    string `yaml:"driver"` // fs, s3, memory
	Root      string `yaml:"root"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"path_style"`
}

// TableConfig configures the legacy table database.
type TableConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	Mode  string `yaml:"mode"`  // development, production
}

// TracingConfig configures the construction span exporter.
type TracingConfig struct {
	Stdout bool `yaml:"stdout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	lim := limits.DefaultConfig()
	fp := field.DefaultParameters()
	return &Config{
		Source:       string(importer.Native),
		Capabilities: importer.AllCapabilities(),
		Limits: LimitsConfig{
			UserMaxStep:         lim.UserMaxStep,
			MaxStepInLowDensity: lim.MaxStepInLowDensity,
			LimitDensity:        lim.LimitDensity,
			LowDensityMaxStep:   lim.LowDensityMaxStep,
		},
		Field: FieldConfig{
			Stepper:            fp.Stepper.String(),
			MinimumStep:        fp.MinimumStep,
			DeltaChord:         fp.DeltaChord,
			DeltaOneStep:       fp.DeltaOneStep,
			DeltaIntersection:  fp.DeltaIntersection,
			MinimumEpsilonStep: fp.MinimumEpsilonStep,
			MaximumEpsilonStep: fp.MaximumEpsilonStep,
		},
		InterchangeMedia: string(importer.MaterialIndexMedia),
		Workers:          1,
		Input: InputConfig{
			Kind:  InputNone,
			Blob:  BlobConfig{Driver: string(blob.DriverFilesystem)},
			Table: TableConfig{Driver: "sqlite"},
		},
		Logging: LoggingConfig{Level: "info", Mode: "development"},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	str("TRACKGEO_SOURCE", &c.Source)
	str("TRACKGEO_INTERCHANGE_MEDIA", &c.InterchangeMedia)
	str("TRACKGEO_LOG_LEVEL", &c.Logging.Level)
	str("TRACKGEO_LOG_MODE", &c.Logging.Mode)
	str("TRACKGEO_INPUT_KIND", &c.Input.Kind)
	str("TRACKGEO_INPUT_KEY", &c.Input.Key)
	str("TRACKGEO_INPUT_SETUP", &c.Input.Setup)
	str("TRACKGEO_BLOB_DRIVER", &c.Input.Blob.Driver)
	str("TRACKGEO_BLOB_FS_ROOT", &c.Input.Blob.Root)
	str("TRACKGEO_BLOB_S3_BUCKET", &c.Input.Blob.Bucket)
	str("TRACKGEO_BLOB_S3_REGION", &c.Input.Blob.Region)
	str("TRACKGEO_BLOB_S3_ENDPOINT", &c.Input.Blob.Endpoint)
	str("TRACKGEO_BLOB_S3_PREFIX", &c.Input.Blob.Prefix)
	str("TRACKGEO_TABLEDB_DRIVER", &c.Input.Table.Driver)
	str("TRACKGEO_SQLITE_PATH", &c.Input.Table.Path)
	str("TRACKGEO_POSTGRES_DSN", &c.Input.Table.DSN)
	if v := os.Getenv("TRACKGEO_BLOB_S3_PATH_STYLE"); v != "" {
		c.Input.Blob.PathStyle = strings.EqualFold(v, "true")
	}
	for name, dst := range map[string]*int{
		"TRACKGEO_VERBOSE": &c.Verbose,
		"TRACKGEO_WORKERS": &c.Workers,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if _, err := importer.ParseKind(c.Source); err != nil {
		return err
	}
	if _, err := importer.ParseMediaSource(c.InterchangeMedia); err != nil {
		return err
	}
	if err := c.LimitsConfig().Validate(); err != nil {
		return err
	}
	if _, err := c.FieldParameters(); err != nil {
		return err
	}
	if n := len(c.Field.Uniform); n != 0 && n != 3 {
		return fmt.Errorf("uniform field needs 3 components, got %d", n)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Verbose < 0 {
		return fmt.Errorf("verbose level must be non-negative, got %d", c.Verbose)
	}
	switch c.Input.Kind {
	case "", InputNone:
	case InputBlob:
		if c.Input.Key == "" {
			return fmt.Errorf("input key required for blob input")
		}
		switch blob.Driver(c.Input.Blob.Driver) {
		case blob.DriverFilesystem, blob.DriverS3, blob.DriverMemory, "":
		default:
			return fmt.Errorf("unknown blob driver %q", c.Input.Blob.Driver)
		}
	case InputTable:
		if c.Input.Setup == "" {
			return fmt.Errorf("input setup required for sql input")
		}
		switch c.Input.Table.Driver {
		case "", "sqlite", "postgres":
		default:
			return fmt.Errorf("unknown table driver %q", c.Input.Table.Driver)
		}
	default:
		return fmt.Errorf("unknown input kind %q", c.Input.Kind)
	}
	return nil
}

// Kind returns the parsed geometry source.
func (c *Config) Kind() (importer.Kind, error) { return importer.ParseKind(c.Source) }

// MediaSource returns the parsed interchange media selection.
func (c *Config) MediaSource() (importer.MediaSource, error) {
	return importer.ParseMediaSource(c.InterchangeMedia)
}

// LimitsConfig converts to the policy configuration.
func (c *Config) LimitsConfig() limits.Config {
	return limits.Config{
		UserMaxStep:         c.Limits.UserMaxStep,
		MaxStepInLowDensity: c.Limits.MaxStepInLowDensity,
		LimitDensity:        c.Limits.LimitDensity,
		LowDensityMaxStep:   c.Limits.LowDensityMaxStep,
	}
}

// FieldParameters converts to the field adapter parameters.
func (c *Config) FieldParameters() (field.Parameters, error) {
	p := field.DefaultParameters()
	if c.Field.Stepper != "" {
		st, err := field.ParseStepperType(c.Field.Stepper)
		if err != nil {
			return field.Parameters{}, err
		}
		p.Stepper = st
	}
	p.MinimumStep = c.Field.MinimumStep
	p.DeltaChord = c.Field.DeltaChord
	p.DeltaOneStep = c.Field.DeltaOneStep
	p.DeltaIntersection = c.Field.DeltaIntersection
	p.MinimumEpsilonStep = c.Field.MinimumEpsilonStep
	p.MaximumEpsilonStep = c.Field.MaximumEpsilonStep
	if err := p.Validate(); err != nil {
		return field.Parameters{}, err
	}
	return p, nil
}

// BlobConfig converts to the document store configuration.
func (c *Config) BlobConfig() blob.Config {
	b := c.Input.Blob
	return blob.Config{
		Driver: blob.Driver(b.Driver),
		Root:   b.Root,
		S3: blob.S3Config{
			Bucket:    b.Bucket,
			Region:    b.Region,
			Endpoint:  b.Endpoint,
			Prefix:    b.Prefix,
			PathStyle: b.PathStyle,
		},
	}
}
