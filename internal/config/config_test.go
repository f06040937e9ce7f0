package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"DESK_ADDR", "DESK_DB_PATH", "DESK_DEV_MODE", "DESK_BASE_URL", "DESK_TIMEZONE",
	"DESK_ADMIN_EMAIL", "DESK_ADMIN_PASSWORD", "DESK_SESSION_TTL", "DESK_PAGE_SIZE",
	"DESK_SMTP_HOST", "DESK_SMTP_PORT", "DESK_SMTP_USER", "DESK_SMTP_PASS", "DESK_SMTP_FROM",
}

// clearEnv unsets every DESK_ variable for the test and restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	t.Setenv("HOME", t.TempDir())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := load(filepath.Join(t.TempDir(), "missing.yaml"), filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "desk.db", filepath.Base(cfg.DBPath))
	assert.Equal(t, ".churchdesk", filepath.Base(filepath.Dir(cfg.DBPath)))
	assert.False(t, cfg.DevMode)
	assert.Equal(t, time.Local, cfg.Location())
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "config.yaml", `
addr: ":9090"
db_path: /tmp/desk-test.db
dev_mode: true
timezone: America/Chicago
session_ttl: 12h
page_size: 50
`)

	cfg, err := load(path, filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "/tmp/desk-test.db", cfg.DBPath)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, "America/Chicago", cfg.Location().String())
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "config.yaml", "addr: \":9090\"\npage_size: 50\n")
	t.Setenv("DESK_ADDR", ":7070")
	t.Setenv("DESK_DEV_MODE", "true")
	t.Setenv("DESK_ADMIN_EMAIL", "office@example.org")

	cfg, err := load(path, filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, 50, cfg.PageSize)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "office@example.org", cfg.AdminEmail)
}

func TestDotenv(t *testing.T) {
	clearEnv(t)

	envFile := writeFile(t, ".env", "DESK_PAGE_SIZE=10\nDESK_ADMIN_PASSWORD=s3cret\n")

	cfg, err := load(filepath.Join(t.TempDir(), "missing.yaml"), envFile)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, "s3cret", cfg.AdminPassword)
}

func TestSMTPSettings(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "config.yaml", "smtp:\n  host: smtp.example.org\n  port: \"465\"\n  from: office@example.org\n")
	t.Setenv("DESK_SMTP_PASS", "hunter2")

	cfg, err := load(path, filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.org", cfg.SMTP.Host)
	assert.Equal(t, "465", cfg.SMTP.Port)
	assert.Equal(t, "hunter2", cfg.SMTP.Pass)
	assert.True(t, cfg.SMTP.IsConfigured())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "bad yaml", file: "addr: [\n"},
		{name: "bad timezone", file: "timezone: Nowhere/Special\n"},
		{name: "zero page size", file: "page_size: 0\n"},
		{name: "bad env page size", env: map[string]string{"DESK_PAGE_SIZE": "many"}},
		{name: "bad env bool", env: map[string]string{"DESK_DEV_MODE": "sometimes"}},
		{name: "bad env ttl", env: map[string]string{"DESK_SESSION_TTL": "forever"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := filepath.Join(t.TempDir(), "missing.yaml")
			if tt.file != "" {
				path = writeFile(t, "config.yaml", tt.file)
			}

			_, err := load(path, filepath.Join(t.TempDir(), ".env"))
			assert.Error(t, err)
		})
	}
}

func TestSetTimezone(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.SetTimezone("America/Chicago"))
	assert.Equal(t, "America/Chicago", cfg.Location().String())

	assert.Error(t, cfg.SetTimezone("Nowhere/Special"))
	assert.Equal(t, "America/Chicago", cfg.Timezone)
}
