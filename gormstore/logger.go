package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// slowQuery is the duration above which a query is reported as slow.
const slowQuery = 200 * time.Millisecond

// gormLogger forwards gorm logs to logr. Statements are logged at V(1).
type gormLogger struct {
	log   logr.Logger
	level logger.LogLevel
}

var _ logger.Interface = gormLogger{}

func newGORMLogger(log logr.Logger) gormLogger {
	return gormLogger{
		log:   log.WithName("gorm"),
		level: logger.Warn,
	}
}

func (l gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	l.level = level
	return l
}

func (l gormLogger) Info(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Info {
		l.log.Info(fmt.Sprintf(msg, args...))
	}
}

func (l gormLogger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Warn {
		l.log.Info(fmt.Sprintf(msg, args...), "level", "warn")
	}
}

func (l gormLogger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Error {
		l.log.Error(nil, fmt.Sprintf(msg, args...))
	}
}

func (l gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.Error(err, "Query failed", "sql", sql, "rows", rows, "elapsed", elapsed)
	case elapsed > slowQuery && l.level >= logger.Warn:
		sql, rows := fc()
		l.log.Info("Slow query", "sql", sql, "rows", rows, "elapsed", elapsed)
	case l.level >= logger.Info:
		sql, rows := fc()
		l.log.V(1).Info("Query", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
