// Package config provides configuration loading and management for dicomcat.
// It handles loading configuration from YAML files, environment overrides and
// provides default values.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the configuration file.
const (
	EnvLogLevel   = "DICOMCAT_LOG_LEVEL"
	EnvOutputDir  = "DICOMCAT_OUTPUT_DIR"
	EnvExecutable = "DICOMCAT_EXECUTABLE"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Concatenation parameters
	Concat struct {
		// Check filters out slices that disagree with the first slice
		Check bool `yaml:"check"`

		// SinglePass makes Check skip slices during concatenation instead of
		// running a separate filter pass
		SinglePass bool `yaml:"singlePass"`

		// Digest reports an xxh3 digest of every written volume
		Digest bool `yaml:"digest"`

		// OutputDir is where prefixed volumes are written
		OutputDir string `yaml:"outputDir"`
	} `yaml:"concat"`

	// Batch conversion parameters
	Batch struct {
		// Executable, when set, runs every directory through this dicomcat
		// binary in its own process instead of in-process
		Executable string `yaml:"executable"`

		// SkipHidden ignores files and directories starting with a dot.
		// Off by default: every direct file of a directory is a slice.
		SkipHidden bool `yaml:"skipHidden"`
	} `yaml:"batch"`

	// Logging parameters
	Logging struct {
		// Level is one of debug, info, warn, error
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Concat.Check = false
	cfg.Concat.SinglePass = false
	cfg.Concat.Digest = false
	cfg.Concat.OutputDir = "."

	cfg.Batch.Executable = ""
	cfg.Batch.SkipHidden = false

	cfg.Logging.Level = "warn"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the path is empty or the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()
	if configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return cfg, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "read config %s", configPath)
	}

	// Keys missing from the file keep their defaults
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", configPath)
	}

	return cfg, nil
}

// ApplyEnv overrides cfg from the environment. Variables from envFile (a
// dotenv file) are loaded first if it exists; variables already set in the
// process environment win.
func ApplyEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return errors.Wrapf(err, "load env file %s", envFile)
			}
		}
	}

	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		cfg.Logging.Level = v
	}
	if v, ok := os.LookupEnv(EnvOutputDir); ok {
		cfg.Concat.OutputDir = v
	}
	if v, ok := os.LookupEnv(EnvExecutable); ok {
		cfg.Batch.Executable = v
	}
	return nil
}

// Load reads configPath and applies environment overrides from envFile and
// the process environment.
func Load(configPath, envFile string) (*Config, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg, envFile); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes cfg as YAML to configPath, creating the directory if
// needed. The file is replaced atomically so a reader never sees half a
// configuration.
func SaveConfig(cfg *Config, configPath string) (retErr error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "create config directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(configPath)+".*")
	if err != nil {
		return errors.Wrapf(err, "create config %s", configPath)
	}
	defer func() {
		if retErr != nil {
			os.Remove(tmp.Name())
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write config %s", configPath)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write config %s", configPath)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "write config %s", configPath)
	}
	return errors.Wrapf(os.Rename(tmp.Name(), configPath), "write config %s", configPath)
}
