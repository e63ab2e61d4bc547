package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, env, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config."+env+".yaml"), []byte(body), 0o600))
	return dir
}

func TestLoadFrom_Defaults(t *testing.T) {
	t.Setenv("ENV", "test")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, "uploads", cfg.Storage.LocalDir)
	assert.Equal(t, "none", cfg.Events.Driver)
	assert.Equal(t, "admin", cfg.Admin.Username)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL())
	assert.Equal(t, int64(10<<20), cfg.Upload.MaxFileSize())
	assert.NotEmpty(t, cfg.Auth.JWTSecret)
}

func TestLoadFrom_FileAndEnvOverrides(t *testing.T) {
	t.Setenv("ENV", "staging")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DB_PASSWORD", "s3cret")

	dir := writeConfig(t, "staging", `
server:
  port: "9090"
  cors_origins: ["https://mtendere.example"]
database:
  driver: postgres
  host: db
  port: "5432"
  user: admissions
  name: admissions
auth:
  jwt_secret: from-file
  token_ttl_hours: 12
events:
  driver: nats
  nats:
    url: nats://nats:4222
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"https://mtendere.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL())
	assert.Equal(t, "nats://nats:4222", cfg.Events.NATS.URL)
	assert.Equal(t, "admissions", cfg.Events.NATS.SubjectPrefix)
}

func TestLoadFrom_RequiresSecretOutsideLocal(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadFrom(t.TempDir())
	assert.ErrorContains(t, err, "jwt_secret")
}

func TestLoadFrom_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("ENV", "test")
	dir := writeConfig(t, "test", "storage:\n  driver: ftp\n")

	_, err := LoadFrom(dir)
	assert.ErrorContains(t, err, "unsupported storage driver")
}
