package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/blackjackforbots/internal/blackjack"
)

// Config is the server configuration file
type Config struct {
	Server  *ServerSettings  `hcl:"server,block"`
	Table   *TableSettings   `hcl:"table,block"`
	Storage *StorageSettings `hcl:"storage,block"`
}

// ServerSettings contains listener and transport settings
type ServerSettings struct {
	Address       string `hcl:"address,optional"`
	Port          int    `hcl:"port,optional"`
	LogLevel      string `hcl:"log_level,optional"`
	ActionTimeout string `hcl:"action_timeout,optional"`
}

// TableSettings contains the betting rules
type TableSettings struct {
	MinBet          int64  `hcl:"min_bet,optional"`
	MaxBet          int64  `hcl:"max_bet,optional"`
	StartingBalance int64  `hcl:"starting_balance,optional"`
	NaturalPayout   string `hcl:"natural_payout,optional"`
}

// StorageSettings says where balances and history live. Empty paths keep
// everything in memory.
type StorageSettings struct {
	WalletFile   string `hcl:"wallet_file,optional"`
	HistoryFile  string `hcl:"history_file,optional"`
	HistoryFlush int    `hcl:"history_flush,optional"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads an HCL config file. A missing file yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	src, err := os.ReadFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(src, filename)
}

// ParseConfig decodes HCL source and applies defaults for anything unset
func ParseConfig(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerSettings{}
	}
	if c.Table == nil {
		c.Table = &TableSettings{}
	}
	if c.Storage == nil {
		c.Storage = &StorageSettings{}
	}

	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.ActionTimeout == "" {
		c.Server.ActionTimeout = DefaultActionTimeout.String()
	}

	if c.Table.MinBet == 0 {
		c.Table.MinBet = 1
	}
	if c.Table.StartingBalance == 0 {
		c.Table.StartingBalance = 1000
	}
	if c.Table.NaturalPayout == "" {
		c.Table.NaturalPayout = "1:1"
	}

	if c.Storage.HistoryFlush == 0 {
		c.Storage.HistoryFlush = 20
	}
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	if c.Table.MinBet < 1 {
		return fmt.Errorf("min_bet must be positive, got %d", c.Table.MinBet)
	}
	if c.Table.MaxBet != 0 && c.Table.MaxBet < c.Table.MinBet {
		return fmt.Errorf("max_bet %d is below min_bet %d", c.Table.MaxBet, c.Table.MinBet)
	}
	if c.Table.StartingBalance < 0 {
		return fmt.Errorf("starting_balance must not be negative, got %d", c.Table.StartingBalance)
	}
	if _, err := c.Payout(); err != nil {
		return err
	}
	if c.Storage.HistoryFlush < 1 {
		return fmt.Errorf("history_flush must be positive, got %d", c.Storage.HistoryFlush)
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// Timeout returns the parsed action timeout
func (c *Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Server.ActionTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid action_timeout %q: %w", c.Server.ActionTimeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("action_timeout must be positive, got %s", d)
	}
	return d, nil
}

// Payout returns the natural payout ratio
func (c *Config) Payout() (blackjack.Payout, error) {
	return ParsePayout(c.Table.NaturalPayout)
}

// ParsePayout parses a ratio such as "3:2"
func ParsePayout(s string) (blackjack.Payout, error) {
	var p blackjack.Payout
	if _, err := fmt.Sscanf(s, "%d:%d", &p.Num, &p.Den); err != nil {
		return p, fmt.Errorf("invalid natural_payout %q: want N:D", s)
	}
	if p.Num <= 0 || p.Den <= 0 {
		return p, fmt.Errorf("invalid natural_payout %q: parts must be positive", s)
	}
	return p, nil
}
