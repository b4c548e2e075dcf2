package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lox/blackjackforbots/cards"
	"github.com/lox/blackjackforbots/internal/blackjack"
	"github.com/lox/blackjackforbots/internal/history"
	"github.com/lox/blackjackforbots/internal/statistics"
	"github.com/rs/zerolog"
)

func ptr[T any](v T) *T { return &v }

func TestServerCmdFlagsOverrideConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blackjack.hcl")
	src := `
server {
  port = 9000
}
table {
  min_bet = 5
  max_bet = 100
}
`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := ServerCmd{
		Config:        path,
		MaxBet:        ptr(int64(250)),
		NaturalPayout: ptr("3:2"),
	}
	cfg, err := cmd.load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Fatalf("port from file: want 9000 got %d", cfg.Server.Port)
	}
	if cfg.Table.MinBet != 5 {
		t.Fatalf("min bet from file: want 5 got %d", cfg.Table.MinBet)
	}
	if cfg.Table.MaxBet != 250 {
		t.Fatalf("max bet flag should win: want 250 got %d", cfg.Table.MaxBet)
	}
	if p, _ := cfg.Payout(); p != blackjack.ThreeToTwo {
		t.Fatalf("payout: want 3:2 got %d:%d", p.Num, p.Den)
	}
}

func TestServerCmdRejectsInvalidOverride(t *testing.T) {
	cmd := ServerCmd{
		Config: filepath.Join(t.TempDir(), "missing.hcl"),
		MinBet: ptr(int64(50)),
		MaxBet: ptr(int64(10)),
	}
	if _, err := cmd.load(); err == nil {
		t.Fatalf("expected max below min to fail validation")
	}
}

func TestOpenStorage(t *testing.T) {
	dir := t.TempDir()
	store, rec, err := openStorage(filepath.Join(dir, "wallets.msgp"), filepath.Join(dir, "history.toml"), 300, 1, zerolog.Nop())
	if err != nil {
		t.Fatalf("openStorage: %v", err)
	}

	ctx := context.Background()
	if _, err := store.Adjust(ctx, "alice", -10, "blackjack bet"); err != nil {
		t.Fatal(err)
	}
	state := &blackjack.GameState{
		ID:          "g1",
		PlayerID:    "alice",
		Bet:         10,
		PlayerCards: cards.MustParseCards("Th 9c"),
		DealerCards: cards.MustParseCards("8s 9d"),
		Stage:       blackjack.StageDone,
		Outcome:     blackjack.OutcomeWin,
		AmountWon:   20,
	}
	if err := rec.Record(ctx, history.FromState(state, nil)); err != nil {
		t.Fatal(err)
	}
	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}

	records, err := history.ReadFile(filepath.Join(dir, "history.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].GameID != "g1" {
		t.Fatalf("unexpected records: %+v", records)
	}

	// memory only
	store, rec, err = openStorage("", "", 300, 1, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if b, _ := store.Balance(ctx, "bob"); b != 300 {
		t.Fatalf("starting balance: want 300 got %d", b)
	}
	if _, ok := rec.(history.Nop); !ok {
		t.Fatalf("expected Nop recorder, got %T", rec)
	}
}

func TestHistoryRenderNoGames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.toml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	err := HistoryRenderCmd{File: path}.Run()
	if err == nil || !strings.Contains(err.Error(), "no games found") {
		t.Fatalf("expected no games error, got %v", err)
	}
}

func TestStatsTable(t *testing.T) {
	var s statistics.Stats
	s.Add(statistics.GameResult{Bet: 10, AmountWon: 20, Outcome: blackjack.OutcomeWin})
	s.Add(statistics.GameResult{Bet: 10, AmountWon: 0, Outcome: blackjack.OutcomeBust})

	out, err := statsTable(map[string]statistics.Stats{"sim-001": s, "sim-002": s}, s)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Player", "sim-001", "sim-002", "TOTAL"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}
