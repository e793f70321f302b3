package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envVars = []string{
	"PINRUN_VERSION_MANAGER",
	"PINRUN_PARENT_WORK_DIR",
	"PINRUN_COMPUTE_REQUIREMENTS",
	"PINRUN_REQUIREMENTS_COMMAND",
	"PINRUN_INTERACTIVE",
	"PINRUN_MAX_COMMIT_ATTEMPTS",
	"PINRUN_LOG_LEVEL",
	"PINRUN_LOG_FORMAT",
}

// clearEnvVars unsets every PINRUN_ variable for the duration of the test.
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, v := range envVars {
		t.Setenv(v, "")
		require.NoError(t, os.Unsetenv(v))
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultVersionManager, cfg.VersionManager)
	assert.Equal(t, "", cfg.ParentWorkDir)
	assert.False(t, cfg.ComputeRequirements)
	assert.Equal(t, DefaultRequirementsCommand, cfg.RequirementsCommand)
	assert.Equal(t, DefaultInteractive, cfg.Interactive)
	assert.Equal(t, DefaultMaxCommitAttempts, cfg.MaxCommitAttempts)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultLogFormat, cfg.LogFormat)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("PINRUN_VERSION_MANAGER", "disabled")
	t.Setenv("PINRUN_PARENT_WORK_DIR", "/scratch/work")
	t.Setenv("PINRUN_COMPUTE_REQUIREMENTS", "true")
	t.Setenv("PINRUN_MAX_COMMIT_ATTEMPTS", "3")
	t.Setenv("PINRUN_LOG_FORMAT", "json")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "disabled", cfg.VersionManager)
	assert.Equal(t, "/scratch/work", cfg.ParentWorkDir)
	assert.True(t, cfg.ComputeRequirements)
	assert.Equal(t, 3, cfg.MaxCommitAttempts)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadFromEnv_InvalidValue(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("PINRUN_MAX_COMMIT_ATTEMPTS", "many")

	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	t.Run("fills parent work dir from paths", func(t *testing.T) {
		clearEnvVars(t)
		paths := PathsAt(t.TempDir())

		cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"), paths)
		require.NoError(t, err)
		assert.Equal(t, paths.WorkDir, cfg.ParentWorkDir)
	})

	t.Run("reads .env file", func(t *testing.T) {
		clearEnvVars(t)
		envPath := filepath.Join(t.TempDir(), ".env")
		content := "PINRUN_INTERACTIVE=never\nPINRUN_PARENT_WORK_DIR=/from/dotenv\n"
		require.NoError(t, os.WriteFile(envPath, []byte(content), 0644))
		t.Cleanup(func() {
			_ = os.Unsetenv("PINRUN_INTERACTIVE")
			_ = os.Unsetenv("PINRUN_PARENT_WORK_DIR")
		})

		cfg, err := Load(envPath, PathsAt(t.TempDir()))
		require.NoError(t, err)
		assert.Equal(t, "never", cfg.Interactive)
		assert.Equal(t, "/from/dotenv", cfg.ParentWorkDir)
	})

	t.Run("environment wins over .env file", func(t *testing.T) {
		clearEnvVars(t)
		t.Setenv("PINRUN_INTERACTIVE", "always")
		envPath := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(envPath, []byte("PINRUN_INTERACTIVE=never\n"), 0644))

		cfg, err := Load(envPath, PathsAt(t.TempDir()))
		require.NoError(t, err)
		assert.Equal(t, "always", cfg.Interactive)
	})

	t.Run("rejects zero commit attempts", func(t *testing.T) {
		clearEnvVars(t)
		t.Setenv("PINRUN_MAX_COMMIT_ATTEMPTS", "0")

		_, err := Load(filepath.Join(t.TempDir(), "missing.env"), PathsAt(t.TempDir()))
		assert.Error(t, err)
	})
}
