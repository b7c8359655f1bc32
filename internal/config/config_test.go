package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_STORE", StoreMemory)

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, time.Hour, cfg.CompletionEvery)
	assert.Equal(t, 10*time.Minute, cfg.PendingCacheTTL)
	assert.Equal(t, 100, cfg.MaxRequestsPerMin)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.False(t, cfg.IsProduction())
	assert.Empty(t, cfg.Studios)
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	yaml := []byte(`
SESSION_STORE: postgres
DB_DSN: postgres://file
COMPLETION_INTERVAL: 30m
studios:
  - id: barra
    name: Estudio Barra
    address: Av. Corrientes 1234
  - id: sala-c
    name: Sala C
`)
	t.Setenv("DB_DSN", "postgres://env")
	t.Setenv("TIMEZONE", "America/Argentina/Buenos_Aires")

	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewReader(yaml)))

	cfg, err := load(v)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env", cfg.DBDSN)
	assert.Equal(t, 30*time.Minute, cfg.CompletionEvery)
	require.Len(t, cfg.Studios, 2)
	assert.Equal(t, "sala-c", cfg.Studios[1].ID)
	assert.Equal(t, "Av. Corrientes 1234", cfg.Studios[0].Address)
	assert.Equal(t, "America/Argentina/Buenos_Aires", cfg.Location().String())
}

func TestConfig_Validate(t *testing.T) {
	base := Config{SessionStore: StorePostgres, DBDSN: "dsn", Timezone: "UTC", CompletionEvery: time.Hour}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(*Config) {}, false},
		{"postgres without dsn", func(c *Config) { c.DBDSN = "" }, true},
		{"memory without dsn", func(c *Config) { c.SessionStore = StoreMemory; c.DBDSN = "" }, false},
		{"mongo without uri", func(c *Config) { c.SessionStore = StoreMongo }, true},
		{"mongo", func(c *Config) { c.SessionStore = StoreMongo; c.MongoURI = "mongodb://x" }, false},
		{"unknown store", func(c *Config) { c.SessionStore = "redis" }, true},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, true},
		{"zero interval", func(c *Config) { c.CompletionEvery = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
