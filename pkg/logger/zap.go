package logger

import (
	"log"

	"github.com/jaennil/guide_helper/backend/viewer/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ZapLogger struct {
	logger *zap.SugaredLogger
}

var _ Logger = (*ZapLogger)(nil)

const formatJSON = "json"

func NewZapLogger(cfg config.Logger) *ZapLogger {
	logger, err := newZapConfig(cfg).Build(
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	)
	if err != nil {
		log.Fatal("error occurred while building zap logger: ", err)
	}

	return &ZapLogger{
		logger: logger.Sugar(),
	}
}

// newZapConfig picks a colored console encoder for local runs and a JSON
// encoder with ISO8601 timestamps when cfg.Format is "json".
func newZapConfig(cfg config.Logger) zap.Config {
	var zc zap.Config
	if cfg.Format == formatJSON {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zc.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	zc.EncoderConfig.CallerKey = "caller"
	zc.DisableCaller = false
	zc.Level = zap.NewAtomicLevelAt(toZapLevel(cfg.Level))
	return zc
}

func toZapLevel(levelStr string) zapcore.Level {
	var level zapcore.Level
	err := level.UnmarshalText([]byte(levelStr))
	if err != nil {
		log.Println("WARN (toZapLevel): failed to unmarshal zap log level from string - using INFO level")
		return zapcore.InfoLevel
	}

	return level
}

// Named returns a child logger whose entries carry the given name,
// e.g. "raster" or "viewport".
func (l *ZapLogger) Named(name string) *ZapLogger {
	return &ZapLogger{logger: l.logger.Named(name)}
}

// With returns a child logger that adds keysAndValues to every entry.
func (l *ZapLogger) With(keysAndValues ...any) *ZapLogger {
	return &ZapLogger{logger: l.logger.With(keysAndValues...)}
}

func (l *ZapLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l *ZapLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Infow(msg, keysAndValues...)
}

func (l *ZapLogger) Warn(msg string, keysAndValues ...any) {
	l.logger.Warnw(msg, keysAndValues...)
}

func (l *ZapLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Errorw(msg, keysAndValues...)
}

func (l *ZapLogger) Fatal(msg string, keysAndValues ...any) {
	l.logger.Fatalw(msg, keysAndValues...)
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}
