package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddress)
	assert.Equal(t, 10*time.Millisecond, cfg.Game.TickInterval)
	assert.Equal(t, 10*time.Second, cfg.Game.PlayerTimeout)
	assert.Equal(t, "at.theduke.wt", cfg.Game.TopicPrefix)
	assert.Equal(t, "none", cfg.Journal.Driver)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  http_address: ":9000"
game:
  tick_interval: 50ms
  player_timeout: 30s
journal:
  driver: gorm
  postgres:
    user: game
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("WT_GAME_TOPIC_PREFIX", "com.example")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.HTTPAddress)
	assert.Equal(t, 50*time.Millisecond, cfg.Game.TickInterval)
	assert.Equal(t, 30*time.Second, cfg.Game.PlayerTimeout)
	assert.Equal(t, "com.example", cfg.Game.TopicPrefix)
	assert.Equal(t, "gorm", cfg.Journal.Driver)
	assert.Equal(t, "game", cfg.Journal.Postgres.User)
	assert.Equal(t, 5432, cfg.Journal.Postgres.Port)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Game: GameConfig{
				TickInterval:  10 * time.Millisecond,
				PlayerTimeout: 10 * time.Second,
				SendBuffer:    8,
			},
			Journal: JournalConfig{Driver: "none"},
		}
	}

	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"zero tick", func(c *Config) { c.Game.TickInterval = 0 }},
		{"negative timeout", func(c *Config) { c.Game.PlayerTimeout = -time.Second }},
		{"zero send buffer", func(c *Config) { c.Game.SendBuffer = 0 }},
		{"unknown driver", func(c *Config) { c.Journal.Driver = "mongo" }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.modify(c)
			assert.Error(t, c.Validate())
		})
	}
}
