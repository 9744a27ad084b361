package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds env-driven logger options, parsed by caarlos0/env alongside
// the rest of the app config.
type Config struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Development bool   `env:"LOG_DEV" envDefault:"false"`
	Encoding    string `env:"LOG_ENCODING" envDefault:"json"`
}

// Logger is the logging surface every package in this module depends on.
// Kept small and interface-based so callers never need to know it's zap
// underneath.
type Logger interface {
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	Logger() *zap.Logger
}

// AppLogger is the concrete zap-backed Logger. Exported so callers can
// invoke InitLogger() before the value is passed around as the Logger
// interface.
type AppLogger struct {
	cfg *Config
	zap *zap.SugaredLogger
	raw *zap.Logger
}

// NewAppLogger constructs a Logger from Config without starting it; call
// InitLogger to build the underlying zap logger.
func NewAppLogger(cfg *Config) *AppLogger {
	return &AppLogger{cfg: cfg}
}

func (l *AppLogger) InitLogger() {
	level := zapcore.InfoLevel
	if l.cfg != nil && l.cfg.Level != "" {
		_ = level.UnmarshalText([]byte(l.cfg.Level))
	}

	zapCfg := zap.NewProductionConfig()
	if l.cfg != nil && l.cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	if l.cfg != nil && l.cfg.Encoding != "" {
		zapCfg.Encoding = l.cfg.Encoding
	}

	raw, err := zapCfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		raw = zap.NewNop()
	}

	l.raw = raw
	l.zap = raw.Sugar()
}

func (l *AppLogger) sugar() *zap.SugaredLogger {
	if l.zap == nil {
		l.InitLogger()
	}
	return l.zap
}

func (l *AppLogger) Info(args ...interface{})                 { l.sugar().Info(args...) }
func (l *AppLogger) Infof(format string, args ...interface{}) { l.sugar().Infof(format, args...) }
func (l *AppLogger) Warn(args ...interface{})                 { l.sugar().Warn(args...) }
func (l *AppLogger) Warnf(format string, args ...interface{}) { l.sugar().Warnf(format, args...) }
func (l *AppLogger) Error(args ...interface{})                { l.sugar().Error(args...) }
func (l *AppLogger) Errorf(format string, args ...interface{}) {
	l.sugar().Errorf(format, args...)
}
func (l *AppLogger) Fatalf(format string, args ...interface{}) {
	l.sugar().Fatalf(format, args...)
}

func (l *AppLogger) Logger() *zap.Logger {
	if l.raw == nil {
		l.InitLogger()
	}
	return l.raw
}
