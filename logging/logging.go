package logging

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// NewLogger builds the application logger for the configured level.
func NewLogger(level string) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	switch level {
	case "debug":
		l, err = zap.NewDevelopment()
	case "info":
		l, err = zap.NewProduction()
	default:
		l, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// gormWriter lets gorm's logger print through zap.
type gormWriter struct {
	sugar *zap.SugaredLogger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.sugar.Infof(format, args...)
}

// NewGormLogger returns a gorm logger that writes SQL traces to l.
// With traceSQL off only slow queries and errors are reported.
func NewGormLogger(l *zap.Logger, traceSQL bool) logger.Interface {
	level := logger.Warn
	if traceSQL {
		level = logger.Info
	}
	return logger.New(
		gormWriter{sugar: l.Named("gorm").WithOptions(zap.AddCallerSkip(3)).Sugar()},
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true, // Don't include params in the SQL log
			Colorful:                  false,
		},
	)
}
