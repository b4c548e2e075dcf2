package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/lox/blackjackforbots/internal/wallet"
)

// DefaultCurrency is the wallet key coins are kept under
const DefaultCurrency = "coins"

// WalletAPI is the part of runtime.NakamaModule the wallet store needs
type WalletAPI interface {
	AccountGetId(ctx context.Context, userID string) (*api.Account, error)
	WalletUpdate(ctx context.Context, userID string, changeset map[string]int64, metadata map[string]interface{}, updateLedger bool) (map[string]int64, map[string]int64, error)
}

// WalletStore implements wallet.Store on top of Nakama account wallets.
// Every adjustment is written to the Nakama wallet ledger with its reason.
type WalletStore struct {
	nk       WalletAPI
	currency string
}

var _ wallet.Store = (*WalletStore)(nil)

// NewWalletStore creates a store that reads and writes currency
func NewWalletStore(nk WalletAPI, currency string) *WalletStore {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &WalletStore{nk: nk, currency: currency}
}

// Balance implements wallet.Store
func (s *WalletStore) Balance(ctx context.Context, playerID string) (int64, error) {
	account, err := s.nk.AccountGetId(ctx, playerID)
	if err != nil {
		return 0, fmt.Errorf("failed to get account: %w", err)
	}

	if account.Wallet == "" {
		return 0, nil
	}
	var balances map[string]int64
	if err := json.Unmarshal([]byte(account.Wallet), &balances); err != nil {
		return 0, fmt.Errorf("failed to unmarshal wallet: %w", err)
	}
	return balances[s.currency], nil
}

// Adjust implements wallet.Store. Debits are checked against the current
// balance first so an overdraft maps to wallet.ErrInsufficientFunds rather
// than Nakama's generic rejection.
func (s *WalletStore) Adjust(ctx context.Context, playerID string, delta int64, reason string) (int64, error) {
	if delta < 0 {
		current, err := s.Balance(ctx, playerID)
		if err != nil {
			return 0, err
		}
		if current+delta < 0 {
			return current, fmt.Errorf("%w: balance %d, debit %d", wallet.ErrInsufficientFunds, current, -delta)
		}
	}

	changes := map[string]int64{s.currency: delta}
	metadata := map[string]interface{}{"reason": reason}
	updated, _, err := s.nk.WalletUpdate(ctx, playerID, changes, metadata, true)
	if err != nil {
		return 0, fmt.Errorf("failed to update wallet for user %s: %w", playerID, err)
	}
	return updated[s.currency], nil
}
