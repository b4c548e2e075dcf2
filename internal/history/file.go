package history

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/lox/blackjackforbots/internal/fileutil"
	"github.com/rs/zerolog"
)

const defaultFlushGames = 20

// ErrClosed is returned when recording to a closed FileRecorder
var ErrClosed = errors.New("history: recorder closed")

// FileConfig configures a FileRecorder.
type FileConfig struct {
	Path string
	// FlushGames is how many records are buffered before they are appended
	// to the file. Close always flushes.
	FlushGames int
}

// FileRecorder appends records to a TOML file with buffered writes.
type FileRecorder struct {
	cfg    FileConfig
	logger zerolog.Logger

	mu     sync.Mutex
	buffer []Record
	closed bool
}

// NewFileRecorder creates the parent directory and returns a recorder that
// appends to cfg.Path.
func NewFileRecorder(cfg FileConfig, logger zerolog.Logger) (*FileRecorder, error) {
	if cfg.Path == "" {
		return nil, errors.New("history: Path is required")
	}
	if cfg.FlushGames <= 0 {
		cfg.FlushGames = defaultFlushGames
	}
	if err := fileutil.EnsureDir(cfg.Path); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if exists(cfg.Path) {
		// refuse to append to something we could not read back
		if _, err := ReadFile(cfg.Path); err != nil {
			return nil, err
		}
	}

	return &FileRecorder{
		cfg:    cfg,
		logger: logger.With().Str("component", "history").Str("path", cfg.Path).Logger(),
		buffer: make([]Record, 0, cfg.FlushGames),
	}, nil
}

// Record buffers rec and flushes once the buffer is full
func (f *FileRecorder) Record(_ context.Context, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.buffer = append(f.buffer, rec)
	if len(f.buffer) >= f.cfg.FlushGames {
		return f.flushLocked()
	}
	return nil
}

// Flush appends all buffered records to the file
func (f *FileRecorder) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushLocked()
}

func (f *FileRecorder) flushLocked() error {
	if len(f.buffer) == 0 {
		return nil
	}

	var buf bytes.Buffer
	if err := Encode(&buf, f.buffer...); err != nil {
		return fmt.Errorf("history: encode: %w", err)
	}

	out, err := os.OpenFile(f.cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("history: open: %w", err)
	}
	if _, err := out.Write(buf.Bytes()); err != nil {
		_ = out.Close()
		return fmt.Errorf("history: append: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("history: close: %w", err)
	}

	f.logger.Debug().Int("games", len(f.buffer)).Msg("Flushed game history")
	f.buffer = f.buffer[:0]
	return nil
}

// Close flushes remaining records. Further calls to Record fail.
func (f *FileRecorder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.flushLocked()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
