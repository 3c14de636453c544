package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: "http://localhost:8000/api/"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api", cfg.API.BaseURL)
	assert.Equal(t, "estudante", cfg.API.StudentPrefix)
	assert.Equal(t, "admin", cfg.API.AdminPrefix)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "shared", cfg.Waitlist.BusyPolicy)
	assert.Equal(t, time.Minute, cfg.Watcher.Interval)
	assert.Equal(t, "America/Sao_Paulo", cfg.Watcher.Timezone)
	assert.Equal(t, []string{"proximo", "confirmado"}, cfg.Watcher.NotifyStatuses)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "fila.db", cfg.Database.DSN)
	assert.Equal(t, "fila-extras.posicoes", cfg.Redis.Channel)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("FILA_TOKEN", "from-env")
	t.Setenv("FILA_API_BASE_URL", "https://ru.example.edu/api")
	path := writeConfig(t, `
api:
  base_url: "http://localhost:8000/api"
session:
  token: "from-file"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Session.Token)
	assert.Equal(t, "https://ru.example.edu/api", cfg.API.BaseURL)
}

func TestLoad_ValidationErrors(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"missing base url", `api: {}`},
		{"unknown busy policy", "api:\n  base_url: \"http://x\"\nwaitlist:\n  busy_policy: \"global\"\n"},
		{"unknown notify status", "api:\n  base_url: \"http://x\"\nwatcher:\n  notify_statuses: [\"servido\"]\n"},
		{"unknown timezone", "api:\n  base_url: \"http://x\"\nwatcher:\n  timezone: \"Mars/Base\"\n"},
		{"unknown driver", "api:\n  base_url: \"http://x\"\ndatabase:\n  driver: \"mysql\"\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("FILA_API_BASE_URL", "")
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestExampleConfigIsValid(t *testing.T) {
	cfg, err := Load("config.example.yaml")
	require.NoError(t, err)
	assert.Equal(t, "~/.fila/session.yaml", cfg.Session.TokenFile)
}
