package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable read by pinrun.
const EnvPrefix = "PINRUN"

// Defaults for settings that have one.
const (
	DefaultVersionManager      = "git"
	DefaultRequirementsCommand = "pipreqs --print"
	DefaultInteractive         = "auto"
	DefaultMaxCommitAttempts   = 1
	DefaultLogLevel            = "INFO"
	DefaultLogFormat           = "text"
)

// Config holds environment-based configuration.
// Field names map to environment variables with the PINRUN_ prefix.
type Config struct {
	// VersionManager selects how runs are pinned (git or disabled).
	// Env: PINRUN_VERSION_MANAGER (default: git)
	VersionManager string `envconfig:"VERSION_MANAGER" default:"git"`

	// ParentWorkDir is the parent of snapshot directories.
	// Env: PINRUN_PARENT_WORK_DIR
	// Default: <root>/workdir
	ParentWorkDir string `envconfig:"PARENT_WORK_DIR"`

	// ComputeRequirements generates a requirements file for new snapshots.
	// Env: PINRUN_COMPUTE_REQUIREMENTS (default: false)
	ComputeRequirements bool `envconfig:"COMPUTE_REQUIREMENTS" default:"false"`

	// RequirementsCommand lists dependencies; the snapshot directory is
	// appended as the last argument.
	// Env: PINRUN_REQUIREMENTS_COMMAND (default: pipreqs --print)
	RequirementsCommand string `envconfig:"REQUIREMENTS_COMMAND" default:"pipreqs --print"`

	// Interactive selects whether an operator is prompted (auto, always, never).
	// Env: PINRUN_INTERACTIVE (default: auto)
	Interactive string `envconfig:"INTERACTIVE" default:"auto"`

	// MaxCommitAttempts bounds automatic commits per resolution.
	// Env: PINRUN_MAX_COMMIT_ATTEMPTS (default: 1)
	MaxCommitAttempts int `envconfig:"MAX_COMMIT_ATTEMPTS" default:"1"`

	// LogLevel is the log verbosity level.
	// Env: PINRUN_LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (text or json).
	// Env: PINRUN_LOG_FORMAT (default: text)
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// LoadDotEnv loads environment variables from a .env file.
// If path is empty, it loads from ".env" in the current directory.
// A missing file is not an error. Variables already set in the
// environment win over the file.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv reads PINRUN_* variables.
func LoadFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return cfg, nil
}

// Load reads the optional .env file at envPath, then the environment, and
// fills path-dependent defaults from paths.
func Load(envPath string, paths *Paths) (Config, error) {
	if err := LoadDotEnv(envPath); err != nil {
		return Config{}, err
	}

	cfg, err := LoadFromEnv()
	if err != nil {
		return Config{}, err
	}

	if cfg.ParentWorkDir == "" {
		cfg.ParentWorkDir = paths.WorkDir
	}
	if cfg.MaxCommitAttempts <= 0 {
		return Config{}, fmt.Errorf("invalid max commit attempts %d (must be at least 1)", cfg.MaxCommitAttempts)
	}
	return cfg, nil
}
