package main

import (
	"github.com/lox/blackjackforbots/cmd/blackjackforbots/shared"
	"github.com/lox/blackjackforbots/internal/blackjack"
	"github.com/lox/blackjackforbots/internal/randutil"
	"github.com/lox/blackjackforbots/internal/server"
	"github.com/lox/blackjackforbots/internal/session"
)

// ServerCmd runs the WebSocket server. Flags override the config file.
type ServerCmd struct {
	Config          string  `kong:"default='blackjack.hcl',env='BLACKJACK_CONFIG',help='HCL config file (missing file means defaults)'"`
	Address         *string `kong:"env='BLACKJACK_ADDRESS',help='Listen address'"`
	Port            *int    `kong:"env='BLACKJACK_PORT',help='Listen port'"`
	LogLevel        *string `kong:"env='BLACKJACK_LOG_LEVEL',help='Log level (debug|info|warn|error)'"`
	JSONLogs        bool    `kong:"name='json-logs',env='BLACKJACK_JSON_LOGS',help='Output JSON logs instead of console format'"`
	ActionTimeout   *string `kong:"env='BLACKJACK_ACTION_TIMEOUT',help='How long a player may take to act, e.g. 30s'"`
	MinBet          *int64  `kong:"env='BLACKJACK_MIN_BET',help='Minimum bet'"`
	MaxBet          *int64  `kong:"env='BLACKJACK_MAX_BET',help='Maximum bet (0 = no limit)'"`
	StartingBalance *int64  `kong:"env='BLACKJACK_STARTING_BALANCE',help='Coins given to new players'"`
	NaturalPayout   *string `kong:"env='BLACKJACK_NATURAL_PAYOUT',help='Winnings ratio for a player natural, e.g. 3:2'"`
	WalletFile      *string `kong:"env='BLACKJACK_WALLET_FILE',help='Persist balances to this file'"`
	HistoryFile     *string `kong:"env='BLACKJACK_HISTORY_FILE',help='Append game history to this TOML file'"`
	Seed            *int64  `kong:"env='BLACKJACK_SEED',help='Deterministic RNG seed (optional)'"`
}

// load reads the config file and applies flag overrides
func (c *ServerCmd) load() (*server.Config, error) {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return nil, err
	}

	if c.Address != nil {
		cfg.Server.Address = *c.Address
	}
	if c.Port != nil {
		cfg.Server.Port = *c.Port
	}
	if c.LogLevel != nil {
		cfg.Server.LogLevel = *c.LogLevel
	}
	if c.ActionTimeout != nil {
		cfg.Server.ActionTimeout = *c.ActionTimeout
	}
	if c.MinBet != nil {
		cfg.Table.MinBet = *c.MinBet
	}
	if c.MaxBet != nil {
		cfg.Table.MaxBet = *c.MaxBet
	}
	if c.StartingBalance != nil {
		cfg.Table.StartingBalance = *c.StartingBalance
	}
	if c.NaturalPayout != nil {
		cfg.Table.NaturalPayout = *c.NaturalPayout
	}
	if c.WalletFile != nil {
		cfg.Storage.WalletFile = *c.WalletFile
	}
	if c.HistoryFile != nil {
		cfg.Storage.HistoryFile = *c.HistoryFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ServerCmd) Run() error {
	cfg, err := c.load()
	if err != nil {
		return err
	}

	logger, err := shared.SetupLogger(cfg.Server.LogLevel, c.JSONLogs)
	if err != nil {
		return err
	}

	seed := randutil.Seed()
	if c.Seed != nil {
		seed = *c.Seed
		logger.Info().Int64("seed", seed).Msg("Using deterministic seed")
	} else {
		logger.Info().Int64("seed", seed).Msg("Using random seed")
	}

	// Validate has already checked both of these
	payout, _ := cfg.Payout()
	timeout, _ := cfg.Timeout()

	store, rec, err := openStorage(cfg.Storage.WalletFile, cfg.Storage.HistoryFile,
		cfg.Table.StartingBalance, cfg.Storage.HistoryFlush, logger)
	if err != nil {
		return err
	}

	engine := blackjack.NewEngine(randutil.New(seed),
		blackjack.WithLogger(logger),
		blackjack.WithNaturalPayout(payout),
	)
	service := session.NewService(engine, store,
		session.WithLogger(logger),
		session.WithHistory(rec),
		session.WithBetLimits(cfg.Table.MinBet, cfg.Table.MaxBet),
	)
	defer func() {
		if err := service.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to flush history")
		}
	}()

	s, err := server.NewServer(service,
		server.WithLogger(logger),
		server.WithActionTimeout(timeout),
	)
	if err != nil {
		return err
	}

	logger.Info().
		Str("address", cfg.Addr()).
		Int64("min_bet", cfg.Table.MinBet).
		Int64("max_bet", cfg.Table.MaxBet).
		Int64("starting_balance", cfg.Table.StartingBalance).
		Str("natural_payout", cfg.Table.NaturalPayout).
		Dur("action_timeout", timeout).
		Msg("Starting Blackjack server")

	ctx, cancel := shared.SetupSignalHandlerWithLogger(logger)
	defer cancel()

	return s.Serve(ctx, cfg.Addr())
}
