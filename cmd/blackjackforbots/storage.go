package main

import (
	"fmt"

	"github.com/lox/blackjackforbots/internal/history"
	"github.com/lox/blackjackforbots/internal/wallet"
	"github.com/rs/zerolog"
)

// openStorage builds the wallet store and history recorder. Empty paths
// keep everything in memory.
func openStorage(walletFile, historyFile string, startingBalance int64, flush int, logger zerolog.Logger) (wallet.Store, history.Recorder, error) {
	var store wallet.Store = wallet.NewMemoryStore(startingBalance)
	if walletFile != "" {
		fs, err := wallet.OpenFileStore(walletFile, startingBalance)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("path", fs.Path()).Strs("players", fs.Players()).Msg("Loaded wallets")
		store = fs
	}

	var rec history.Recorder = history.Nop{}
	if historyFile != "" {
		fr, err := history.NewFileRecorder(history.FileConfig{Path: historyFile, FlushGames: flush}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open history: %w", err)
		}
		rec = fr
	}
	return store, rec, nil
}
