// Package logging sets up the process-wide zap logger. Unlike the teacher's
// version this never inspects the terminal: the core runs headless inside a
// participant's threads far more often than at an interactive console, so
// the encoder is fixed rather than TTY-detected.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the configuration for the logging subsystem.
type Config struct {
	// Level is the logging level.
	Level zapcore.Level `yaml:"level"`
}

func DefaultConfig() *Config {
	return &Config{Level: zapcore.InfoLevel}
}

// Init builds a SugaredLogger and an AtomicLevel that can be used to change
// the level at runtime (e.g. from a SIGHUP handler in cmd/ddsrun).
func Init(cfg *Config) (*zap.SugaredLogger, zap.AtomicLevel, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(cfg.Level),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := config.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger.Sugar(), config.Level, nil
}

// OnceLogger rate-limits the logging of asynchronous receive-path failures
// to at most one line per (peer, kind) pair, per spec section 7 ("for
// security errors, cause the offending sample to be dropped silently after
// one log line per (peer, kind) pair").
type OnceLogger struct {
	log  *zap.SugaredLogger
	seen map[[2]string]struct{}
}

func NewOnceLogger(log *zap.SugaredLogger) *OnceLogger {
	return &OnceLogger{log: log, seen: make(map[[2]string]struct{})}
}

// LogOnce logs msg at WARN level the first time it is called for a given
// (peer, kind) pair and is a silent no-op afterwards. Not safe for
// concurrent use without external synchronization; each receive thread
// should own its own OnceLogger, matching the "no locking" rule for
// per-receive-thread structures in spec section 5.
func (m *OnceLogger) LogOnce(peer, kind, msg string, kv ...any) {
	key := [2]string{peer, kind}
	if _, ok := m.seen[key]; ok {
		return
	}
	m.seen[key] = struct{}{}
	m.log.Warnw(msg, append([]any{"peer", peer, "kind", kind}, kv...)...)
}
