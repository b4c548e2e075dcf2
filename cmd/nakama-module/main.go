// Command nakama-module is built as a Nakama Go plugin:
//
//	go build -buildmode=plugin -trimpath -o ./modules/blackjack.so ./cmd/nakama-module
package main

import (
	"context"
	"database/sql"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/lox/blackjackforbots/internal/nakama"
)

// InitModule proxies Nakama initialization to the nakama adapter package.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	return nakama.InitModule(ctx, logger, db, nk, initializer)
}

// main is unused; Nakama loads InitModule from the plugin.
func main() {}
