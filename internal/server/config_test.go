package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lox/blackjackforbots/internal/blackjack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost:8080", cfg.Addr())

	timeout, err := cfg.Timeout()
	require.NoError(t, err)
	assert.Equal(t, DefaultActionTimeout, timeout)

	payout, err := cfg.Payout()
	require.NoError(t, err)
	assert.Equal(t, blackjack.EvenMoney, payout)
}

func TestParseConfig(t *testing.T) {
	src := `
server {
  address        = "0.0.0.0"
  port           = 9000
  action_timeout = "15s"
}

table {
  min_bet          = 5
  max_bet          = 500
  starting_balance = 2500
  natural_payout   = "3:2"
}

storage {
  wallet_file  = "data/wallets.msgp"
  history_file = "data/history.toml"
}
`
	cfg, err := ParseConfig([]byte(src), "server.hcl")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
	assert.Equal(t, "info", cfg.Server.LogLevel, "unset values get defaults")
	timeout, _ := cfg.Timeout()
	assert.Equal(t, 15*time.Second, timeout)
	assert.Equal(t, int64(5), cfg.Table.MinBet)
	assert.Equal(t, int64(500), cfg.Table.MaxBet)
	assert.Equal(t, int64(2500), cfg.Table.StartingBalance)
	payout, _ := cfg.Payout()
	assert.Equal(t, blackjack.ThreeToTwo, payout)
	assert.Equal(t, "data/wallets.msgp", cfg.Storage.WalletFile)
	assert.Equal(t, 20, cfg.Storage.HistoryFlush)
}

func TestParseConfigPartial(t *testing.T) {
	cfg, err := ParseConfig([]byte(`table { min_bet = 10 }`), "partial.hcl")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(10), cfg.Table.MinBet)
}

func TestParseConfigErrors(t *testing.T) {
	_, err := ParseConfig([]byte(`server { port = `), "broken.hcl")
	assert.Error(t, err)

	_, err = ParseConfig([]byte(`server { colour = "red" }`), "unknown.hcl")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"timeout", func(c *Config) { c.Server.ActionTimeout = "soon" }},
		{"negative timeout", func(c *Config) { c.Server.ActionTimeout = "-1s" }},
		{"min bet", func(c *Config) { c.Table.MinBet = -1 }},
		{"max below min", func(c *Config) { c.Table.MinBet = 10; c.Table.MaxBet = 5 }},
		{"balance", func(c *Config) { c.Table.StartingBalance = -5 }},
		{"payout", func(c *Config) { c.Table.NaturalPayout = "3/2" }},
		{"payout zero", func(c *Config) { c.Table.NaturalPayout = "0:1" }},
		{"flush", func(c *Config) { c.Storage.HistoryFlush = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	path := filepath.Join(t.TempDir(), "server.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`server { port = 7000 }`), 0o644))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}
