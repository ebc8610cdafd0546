package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, Config{WaitStrategy: "auto", LogFormat: "auto", Output: OutputText}, cfg)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("PWAIT_WAIT_STRATEGY", "WAITID")
	t.Setenv("PWAIT_VERBOSE", "true")
	t.Setenv("PWAIT_OUTPUT", "json")

	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, "waitid", cfg.WaitStrategy)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, OutputJSON, cfg.Output)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pwait.yaml")
	require.NoError(t, os.WriteFile(path, []byte("wait_strategy: waitpid\nlog_format: json\n"), 0o644))

	v := New()
	require.NoError(t, ReadFile(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "waitpid", cfg.WaitStrategy)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestReadFileMissing(t *testing.T) {
	assert.NoError(t, ReadFile(New(), ""))
	assert.Error(t, ReadFile(New(), filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"valid", Config{WaitStrategy: "waitpid", LogFormat: "text", Output: "text"}, true},
		{"bad strategy", Config{WaitStrategy: "poll", LogFormat: "text", Output: "text"}, false},
		{"bad log format", Config{WaitStrategy: "auto", LogFormat: "xml", Output: "text"}, false},
		{"bad output", Config{WaitStrategy: "auto", LogFormat: "auto", Output: "yaml"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
