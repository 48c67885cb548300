package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/kbstatement/internal/export"
)

// DefaultFile is the config file looked up in the working directory when
// no path is given.
const DefaultFile = "kbstatement.yaml"

// EnvPrefix prefixes environment overrides, e.g. KBSTATEMENT_EXPORT_PATH.
const EnvPrefix = "KBSTATEMENT"

// Config represents the top-level kbstatement.yaml configuration.
type Config struct {
	Export ExportConfig `yaml:"export" mapstructure:"export"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// ExportConfig controls the output file.
type ExportConfig struct {
	Path             string `yaml:"path" mapstructure:"path"`
	Delimiter        string `yaml:"delimiter" mapstructure:"delimiter"`
	BOM              bool   `yaml:"bom" mapstructure:"bom"`
	IncludeBlockText bool   `yaml:"include_block_text" mapstructure:"include_block_text"`
	Sheet            string `yaml:"sheet" mapstructure:"sheet"`
}

// LogConfig controls diagnostics on stderr.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"` // debug, info, warn or error
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	opts := export.DefaultOptions()
	return &Config{
		Export: ExportConfig{
			Path:             export.DefaultPath,
			Delimiter:        string(opts.Delimiter),
			BOM:              opts.BOM,
			IncludeBlockText: opts.IncludeBlockText,
			Sheet:            opts.Sheet,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Load reads configuration from path, falling back to DefaultFile in the
// working directory when path is empty. A missing DefaultFile is not an
// error; a missing explicit path is. KBSTATEMENT_* environment variables
// override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("export.path", cfg.Export.Path)
	v.SetDefault("export.delimiter", cfg.Export.Delimiter)
	v.SetDefault("export.bom", cfg.Export.BOM)
	v.SetDefault("export.include_block_text", cfg.Export.IncludeBlockText)
	v.SetDefault("export.sheet", cfg.Export.Sheet)
	v.SetDefault("log.level", cfg.Log.Level)
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ErrInvalidDelimiter is returned when export.delimiter is not a single character.
var ErrInvalidDelimiter = errors.New("delimiter must be a single character")

// ExportOptions converts the export section to export.Options.
func (c *Config) ExportOptions() (export.Options, error) {
	d := c.Export.Delimiter
	if d == `\t` || strings.EqualFold(d, "tab") {
		d = "\t"
	}
	r, size := utf8.DecodeRuneInString(d)
	if r == utf8.RuneError || size != len(d) || r == '"' || r == '\r' || r == '\n' {
		return export.Options{}, fmt.Errorf("%w: %q", ErrInvalidDelimiter, c.Export.Delimiter)
	}
	return export.Options{
		Delimiter:        r,
		BOM:              c.Export.BOM,
		IncludeBlockText: c.Export.IncludeBlockText,
		Sheet:            c.Export.Sheet,
	}, nil
}
