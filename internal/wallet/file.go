package wallet

import (
	"errors"
	"fmt"
	"os"

	"github.com/lox/blackjackforbots/internal/fileutil"
	"github.com/tinylib/msgp/msgp"
)

const snapshotVersion = 1

// FileStore is a MemoryStore that persists every balance change to a
// MessagePack snapshot on disk.
type FileStore struct {
	*MemoryStore
	path string
}

// OpenFileStore loads balances from path, creating an empty store when the
// file does not exist yet.
func OpenFileStore(path string, startingBalance int64) (*FileStore, error) {
	fs := &FileStore{
		MemoryStore: NewMemoryStore(startingBalance),
		path:        path,
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("wallet: read %s: %w", path, err)
	default:
		balances, err := decodeSnapshot(data)
		if err != nil {
			return nil, fmt.Errorf("wallet: decode %s: %w", path, err)
		}
		fs.balances = balances
	}

	if err := fileutil.EnsureDir(path); err != nil {
		return nil, fmt.Errorf("wallet: %w", err)
	}
	fs.onChange = func(balances map[string]int64) error {
		if err := fileutil.WriteFileAtomic(fs.path, encodeSnapshot(balances), 0o644); err != nil {
			return fmt.Errorf("wallet: save %s: %w", fs.path, err)
		}
		return nil
	}
	return fs, nil
}

// Path returns the snapshot location
func (fs *FileStore) Path() string {
	return fs.path
}

// encodeSnapshot writes {"version": 1, "balances": {player: coins}}
func encodeSnapshot(balances map[string]int64) []byte {
	b := msgp.AppendMapHeader(nil, 2)
	b = msgp.AppendString(b, "version")
	b = msgp.AppendInt(b, snapshotVersion)
	b = msgp.AppendString(b, "balances")
	b = msgp.AppendMapHeader(b, uint32(len(balances)))
	for id, coins := range balances {
		b = msgp.AppendString(b, id)
		b = msgp.AppendInt64(b, coins)
	}
	return b
}

func decodeSnapshot(data []byte) (map[string]int64, error) {
	n, rest, err := msgp.ReadMapHeaderBytes(data)
	if err != nil {
		return nil, err
	}

	balances := make(map[string]int64)
	for i := uint32(0); i < n; i++ {
		var key string
		key, rest, err = msgp.ReadStringBytes(rest)
		if err != nil {
			return nil, err
		}
		switch key {
		case "version":
			var v int
			v, rest, err = msgp.ReadIntBytes(rest)
			if err != nil {
				return nil, err
			}
			if v != snapshotVersion {
				return nil, fmt.Errorf("unsupported snapshot version %d", v)
			}
		case "balances":
			var count uint32
			count, rest, err = msgp.ReadMapHeaderBytes(rest)
			if err != nil {
				return nil, err
			}
			for j := uint32(0); j < count; j++ {
				var id string
				var coins int64
				if id, rest, err = msgp.ReadStringBytes(rest); err != nil {
					return nil, err
				}
				if coins, rest, err = msgp.ReadInt64Bytes(rest); err != nil {
					return nil, err
				}
				balances[id] = coins
			}
		default:
			if rest, err = msgp.Skip(rest); err != nil {
				return nil, err
			}
		}
	}
	return balances, nil
}
