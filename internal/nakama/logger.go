package nakama

import (
	"strings"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/rs/zerolog"
)

// logWriter forwards zerolog output to the Nakama runtime logger at the
// matching level.
type logWriter struct {
	logger runtime.Logger
}

// newZerolog returns a zerolog logger that writes through the runtime logger
func newZerolog(logger runtime.Logger) zerolog.Logger {
	return zerolog.New(logWriter{logger: logger}).With().Timestamp().Logger()
}

func (w logWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.InfoLevel, p)
}

func (w logWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	line := strings.TrimSpace(string(p))
	switch level {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		w.logger.Debug("%s", line)
	case zerolog.WarnLevel:
		w.logger.Warn("%s", line)
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		w.logger.Error("%s", line)
	default:
		w.logger.Info("%s", line)
	}
	return len(p), nil
}
