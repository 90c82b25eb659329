// Package config loads the run configuration.
//
// The configuration file is a key=value properties file (fp.conf), or a YAML
// file when its extension is .yaml or .yml. Keys are case-insensitive. Every
// key can be overridden through the environment with the INVENTORY_ prefix,
// for example INVENTORY_NUM_PROCESOS=4.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// DefaultPath is where the configuration file is looked up when no path is given.
const DefaultPath = "./fp.conf"

// DefaultProcessedDir is where consumed source files are moved.
const DefaultProcessedDir = "./archivosProcesados/"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "INVENTORY"

// Configuration keys.
const (
	KeySourceDir     = "path_files"
	KeyInventoryFile = "inventory_file"
	KeyLogFile       = "log_file"
	KeyWorkers       = "num_procesos"
	KeySimulateSleep = "simulate_sleep"
	KeyProcessedDir  = "processed_path"
	KeyMaxOpenFiles  = "max_open_files"
	KeyStrictParse   = "strict_parse"
	KeyMetricsPort   = "metrics_port"
	KeyReportFile    = "report_file"
)

var keys = []string{
	KeySourceDir, KeyInventoryFile, KeyLogFile, KeyWorkers, KeySimulateSleep,
	KeyProcessedDir, KeyMaxOpenFiles, KeyStrictParse, KeyMetricsPort, KeyReportFile,
}

var (
	// ErrNotFound means the configuration file does not exist.
	ErrNotFound = errors.New("config: file not found")
	// ErrInvalid means a value is missing or out of range.
	ErrInvalid = errors.New("config: invalid value")
)

// Config is read-only once loaded.
type Config struct {
	SourceDir     string `mapstructure:"path_files" yaml:"path_files"`
	InventoryFile string `mapstructure:"inventory_file" yaml:"inventory_file"`
	LogFile       string `mapstructure:"log_file" yaml:"log_file"`
	Workers       int    `mapstructure:"num_procesos" yaml:"num_procesos"`
	SimulateSleep int    `mapstructure:"simulate_sleep" yaml:"simulate_sleep"` // seconds
	ProcessedDir  string `mapstructure:"processed_path" yaml:"processed_path"`
	MaxOpenFiles  int    `mapstructure:"max_open_files" yaml:"max_open_files"` // 0 means Workers
	StrictParse   bool   `mapstructure:"strict_parse" yaml:"strict_parse"`
	MetricsPort   int    `mapstructure:"metrics_port" yaml:"metrics_port"` // 0 disables the endpoint
	ReportFile    string `mapstructure:"report_file" yaml:"report_file"`   // empty disables the report
}

// Default returns the values used for keys absent from the file.
func Default() Config {
	return Config{ProcessedDir: DefaultProcessedDir}
}

// Sleep returns the artificial per-file delay.
func (c Config) Sleep() time.Duration {
	return time.Duration(c.SimulateSleep) * time.Second
}

// GateLimit returns the open-file bound, defaulting to the worker count.
func (c Config) GateLimit() int {
	if c.MaxOpenFiles > 0 {
		return c.MaxOpenFiles
	}
	return c.Workers
}

// Load reads path, applies environment overrides and validates the result.
// An empty path means DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(configType(path))
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "properties"
	}
}

// decode reads every key as text first so that stray whitespace and CR
// characters from CRLF files never reach the numeric parsers.
func decode(v *viper.Viper) (*Config, error) {
	cfg := Default()
	str := func(key string) string {
		return strings.TrimSpace(v.GetString(key))
	}
	num := func(key string, dst *int) error {
		s := str(key)
		if s == "" {
			return nil
		}
		n, err := cast.ToIntE(decimal(s))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, strings.ToUpper(key), s)
		}
		*dst = n
		return nil
	}

	cfg.SourceDir = str(KeySourceDir)
	cfg.InventoryFile = str(KeyInventoryFile)
	cfg.LogFile = str(KeyLogFile)
	if s := str(KeyProcessedDir); s != "" {
		cfg.ProcessedDir = s
	}
	cfg.ReportFile = str(KeyReportFile)

	for key, dst := range map[string]*int{
		KeyWorkers:       &cfg.Workers,
		KeySimulateSleep: &cfg.SimulateSleep,
		KeyMaxOpenFiles:  &cfg.MaxOpenFiles,
		KeyMetricsPort:   &cfg.MetricsPort,
	} {
		if err := num(key, dst); err != nil {
			return nil, err
		}
	}

	if s := str(KeyStrictParse); s != "" {
		b, err := cast.ToBoolE(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalid, strings.ToUpper(KeyStrictParse), s)
		}
		cfg.StrictParse = b
	}
	return &cfg, nil
}

// decimal strips leading zeros so that cast never reads the value as octal.
// Config integers are always base 10.
func decimal(s string) string {
	sign, digits := "", s
	if s[0] == '-' || s[0] == '+' {
		sign, digits = s[:1], s[1:]
	}
	if digits == "" {
		return s
	}
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		digits = "0"
	}
	return sign + digits
}

// Validate checks required keys and ranges.
func (c *Config) Validate() error {
	var missing []string
	if c.SourceDir == "" {
		missing = append(missing, "PATH_FILES")
	}
	if c.InventoryFile == "" {
		missing = append(missing, "INVENTORY_FILE")
	}
	if c.LogFile == "" {
		missing = append(missing, "LOG_FILE")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalid, strings.Join(missing, ", "))
	}

	switch {
	case c.Workers <= 0:
		return fmt.Errorf("%w: NUM_PROCESOS must be > 0, got %d", ErrInvalid, c.Workers)
	case c.SimulateSleep < 0:
		return fmt.Errorf("%w: SIMULATE_SLEEP must be >= 0, got %d", ErrInvalid, c.SimulateSleep)
	case c.MaxOpenFiles < 0:
		return fmt.Errorf("%w: MAX_OPEN_FILES must be >= 0, got %d", ErrInvalid, c.MaxOpenFiles)
	case c.MetricsPort < 0 || c.MetricsPort > 65535:
		return fmt.Errorf("%w: METRICS_PORT out of range: %d", ErrInvalid, c.MetricsPort)
	}
	return nil
}
