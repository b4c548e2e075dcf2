// Package nakama runs blackjack games inside a Nakama server. Bets and
// payouts go through Nakama account wallets; games are played over RPC.
package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/lox/blackjackforbots/internal/blackjack"
	"github.com/lox/blackjackforbots/internal/protocol"
	"github.com/lox/blackjackforbots/internal/randutil"
	"github.com/lox/blackjackforbots/internal/server"
	"github.com/lox/blackjackforbots/internal/session"
	"github.com/lox/blackjackforbots/internal/wallet"
)

// RPC ids
const (
	RpcStart  = "blackjack_start"
	RpcAction = "blackjack_action"
	RpcState  = "blackjack_state"
)

// gRPC status codes used by runtime.NewError
const (
	codeInvalidArgument    = 3
	codeFailedPrecondition = 9
	codeInternal           = 13
	codeUnauthenticated    = 16
)

// Settings are read from the runtime environment (--runtime.env)
type Settings struct {
	MinBet        int64
	MaxBet        int64
	NaturalPayout blackjack.Payout
	Currency      string
}

// SettingsFromEnv reads BLACKJACK_MIN_BET, BLACKJACK_MAX_BET,
// BLACKJACK_NATURAL_PAYOUT and BLACKJACK_CURRENCY. Missing keys keep their
// defaults.
func SettingsFromEnv(env map[string]string) (Settings, error) {
	s := Settings{
		MinBet:        1,
		NaturalPayout: blackjack.EvenMoney,
		Currency:      DefaultCurrency,
	}

	if v, ok := env["BLACKJACK_MIN_BET"]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			return s, fmt.Errorf("invalid BLACKJACK_MIN_BET %q", v)
		}
		s.MinBet = n
	}
	if v, ok := env["BLACKJACK_MAX_BET"]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return s, fmt.Errorf("invalid BLACKJACK_MAX_BET %q", v)
		}
		s.MaxBet = n
	}
	if s.MaxBet > 0 && s.MaxBet < s.MinBet {
		return s, fmt.Errorf("BLACKJACK_MAX_BET %d is below BLACKJACK_MIN_BET %d", s.MaxBet, s.MinBet)
	}
	if v, ok := env["BLACKJACK_NATURAL_PAYOUT"]; ok {
		p, err := server.ParsePayout(v)
		if err != nil {
			return s, fmt.Errorf("invalid BLACKJACK_NATURAL_PAYOUT: %w", err)
		}
		s.NaturalPayout = p
	}
	if v := env["BLACKJACK_CURRENCY"]; v != "" {
		s.Currency = v
	}
	return s, nil
}

// InitModule is the Nakama plugin entry point.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	settings, err := SettingsFromEnv(env)
	if err != nil {
		return err
	}

	zl := newZerolog(logger)
	engine := blackjack.NewEngine(randutil.New(randutil.Seed()),
		blackjack.WithLogger(zl),
		blackjack.WithNaturalPayout(settings.NaturalPayout),
	)
	service := session.NewService(engine, NewWalletStore(nk, settings.Currency),
		session.WithLogger(zl),
		session.WithBetLimits(settings.MinBet, settings.MaxBet),
	)

	m, err := NewModule(service)
	if err != nil {
		return err
	}
	if err := m.Register(initializer); err != nil {
		return err
	}

	logger.Info("Blackjack module loaded (min bet %d, currency %s).", settings.MinBet, settings.Currency)
	return nil
}

// Module serves blackjack RPCs from one session service
type Module struct {
	service   *session.Service
	validator *protocol.Validator
}

// NewModule creates a module around service
func NewModule(service *session.Service) (*Module, error) {
	v, err := protocol.NewValidator()
	if err != nil {
		return nil, err
	}
	return &Module{service: service, validator: v}, nil
}

// Register adds the blackjack RPCs to the runtime
func (m *Module) Register(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcStart, m.rpcStart); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcAction, m.rpcAction); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcState, m.rpcState)
}

// rpcStart stakes and deals a game.
//
// Payload: {"bet": 10, "channel": "optional"}
// Returns: a game_state or game_over message.
func (m *Module) rpcStart(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return "", err
	}

	msg, err := m.validator.ValidateData(protocol.TypeStartGame, []byte(payload))
	if err != nil {
		return "", runtime.NewError(err.Error(), codeInvalidArgument)
	}
	var data protocol.StartGameData
	if err := msg.Decode(&data); err != nil {
		return "", runtime.NewError(err.Error(), codeInvalidArgument)
	}

	res, err := m.service.Start(ctx, userID, data.Channel, data.Bet)
	if err != nil {
		return "", rpcError(logger, userID, err)
	}
	return encodeResult(res)
}

// rpcAction applies hit, stand or quit to the caller's game.
//
// Payload: {"action": "hit"}
// Returns: a game_state or game_over message.
func (m *Module) rpcAction(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return "", err
	}

	msg, err := m.validator.ValidateData(protocol.TypeAction, []byte(payload))
	if err != nil {
		return "", runtime.NewError(err.Error(), codeInvalidArgument)
	}
	var data protocol.ActionData
	if err := msg.Decode(&data); err != nil {
		return "", runtime.NewError(err.Error(), codeInvalidArgument)
	}
	action, err := blackjack.ParseAction(data.Action)
	if err != nil {
		return "", rpcError(logger, userID, err)
	}

	res, err := m.service.Act(ctx, userID, action)
	if err != nil {
		return "", rpcError(logger, userID, err)
	}
	return encodeResult(res)
}

// rpcState returns the caller's game in progress, so a client that lost
// its connection can pick up where it left off.
func (m *Module) rpcState(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return "", err
	}

	state, ok := m.service.Game(userID)
	if !ok {
		return "", rpcError(logger, userID, blackjack.ErrNoActiveGame)
	}
	balance, err := m.service.Balance(ctx, userID)
	if err != nil {
		return "", rpcError(logger, userID, err)
	}
	return encodeResult(&session.Result{State: state, Balance: balance})
}

func userIDFrom(ctx context.Context) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError("no user ID in context", codeUnauthenticated)
	}
	return userID, nil
}

func encodeResult(res *session.Result) (string, error) {
	var (
		msg *protocol.Message
		err error
	)
	if res.State.Done() {
		msg, err = protocol.NewMessage(protocol.TypeGameOver, protocol.NewGameOver(res.State, res.Balance))
	} else {
		msg, err = protocol.NewMessage(protocol.TypeGameState, protocol.NewGameState(res.State, res.Balance, 0))
	}
	if err != nil {
		return "", runtime.NewError(err.Error(), codeInternal)
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return "", runtime.NewError(err.Error(), codeInternal)
	}
	return string(b), nil
}

// rpcError maps a session error to a runtime error. The message starts with
// the protocol error code so clients can branch on it.
func rpcError(logger runtime.Logger, userID string, err error) error {
	var (
		code   string
		status int
	)
	switch {
	case errors.Is(err, blackjack.ErrInvalidBet):
		code, status = protocol.CodeInvalidBet, codeInvalidArgument
	case errors.Is(err, session.ErrBetOutOfRange):
		code, status = protocol.CodeBetOutOfRange, codeInvalidArgument
	case errors.Is(err, blackjack.ErrUnknownAction):
		code, status = protocol.CodeUnknownAction, codeInvalidArgument
	case errors.Is(err, wallet.ErrInsufficientFunds):
		code, status = protocol.CodeInsufficientFunds, codeFailedPrecondition
	case errors.Is(err, blackjack.ErrGameInProgress):
		code, status = protocol.CodeGameInProgress, codeFailedPrecondition
	case errors.Is(err, blackjack.ErrNoActiveGame):
		code, status = protocol.CodeNoActiveGame, codeFailedPrecondition
	default:
		logger.Error("Blackjack [User:%s]: %v", userID, err)
		code, status = protocol.CodeInternal, codeInternal
	}
	return runtime.NewError(code+": "+err.Error(), status)
}
