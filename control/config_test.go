// File: control/config_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-async/api"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runtime.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
cores = 4
policy = "work-stealing"
backend = "epoll"
pinning = true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Cores)
	assert.True(t, cfg.Pinning)
	assert.Equal(t, api.WorkStealing, cfg.SchedPolicy())
	assert.Equal(t, api.BackendEpoll, cfg.DriverBackend())
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Zero(t, cfg.Cores)
	assert.Equal(t, api.ThreadPerCore, cfg.SchedPolicy())
	assert.Equal(t, api.BackendAuto, cfg.DriverBackend())
	assert.False(t, cfg.Pinning)
}

func TestLoadConfigRejectsUnknownPolicy(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `policy = "fifo"`))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `backend = "select"`))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestValidateNegativeCores(t *testing.T) {
	cfg := Config{Cores: -1}
	assert.ErrorIs(t, cfg.Validate(), api.ErrInvalidArgument)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestBackendMapping(t *testing.T) {
	cases := map[string]api.Backend{
		"":         api.BackendAuto,
		"auto":     api.BackendAuto,
		"io_uring": api.BackendUring,
		"epoll":    api.BackendEpoll,
		"kqueue":   api.BackendKqueue,
	}
	for name, want := range cases {
		cfg := Config{Backend: name}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, want, cfg.DriverBackend(), "backend %q", name)
	}
}
