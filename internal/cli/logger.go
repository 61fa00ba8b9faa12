package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/slackmgr/types"
)

// zerologLogger adapts a zerolog.Logger to types.Logger so the CLI can hand
// its console logger to the dynadoc client.
type zerologLogger struct {
	logger zerolog.Logger
}

func newLogger(w io.Writer, level string) (*zerologLogger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}

	logger := zerolog.New(output).Level(lvl).With().Timestamp().Str("app", "dynadoc").Logger()

	return &zerologLogger{logger: logger}, nil
}

//nolint:ireturn // Must return interface to implement types.Logger
func (l *zerologLogger) WithField(key string, value any) types.Logger {
	return &zerologLogger{logger: l.logger.With().Interface(key, value).Logger()}
}

//nolint:ireturn // Must return interface to implement types.Logger
func (l *zerologLogger) WithFields(fields map[string]any) types.Logger {
	return &zerologLogger{logger: l.logger.With().Fields(fields).Logger()}
}

func (l *zerologLogger) Debug(msg string) {
	l.logger.Debug().Msg(msg)
}

func (l *zerologLogger) Debugf(format string, args ...any) {
	l.logger.Debug().Msgf(format, args...)
}

func (l *zerologLogger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

func (l *zerologLogger) Infof(format string, args ...any) {
	l.logger.Info().Msgf(format, args...)
}

func (l *zerologLogger) Warn(msg string) {
	l.logger.Warn().Msg(msg)
}

func (l *zerologLogger) Warnf(format string, args ...any) {
	l.logger.Warn().Msgf(format, args...)
}

func (l *zerologLogger) Error(msg string) {
	l.logger.Error().Msg(msg)
}

func (l *zerologLogger) Errorf(format string, args ...any) {
	l.logger.Error().Msgf(format, args...)
}

func (l *zerologLogger) Fatal(msg string) {
	l.logger.Fatal().Msg(msg)
}

func (l *zerologLogger) Fatalf(format string, args ...any) {
	l.logger.Fatal().Msgf(format, args...)
}
