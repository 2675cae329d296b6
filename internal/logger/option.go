package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// fixedLevelCore ignores the shared atomic level and filters by its own.
type fixedLevelCore struct {
	zapcore.Core

	level zapcore.Level
}

func (c *fixedLevelCore) Enabled(l zapcore.Level) bool {
	return c.level.Enabled(l)
}

//nolint:gocritic // AddCore requires ent to be passed by value.
func (c *fixedLevelCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}

	return ce
}

//nolint:ireturn,nolintlint // zap expects a zapcore.Core.
func (c *fixedLevelCore) With(fields []zapcore.Field) zapcore.Core {
	return &fixedLevelCore{c.Core.With(fields), c.level}
}

// WithLevel pins a logger to lvl regardless of the global level.
//
//nolint:ireturn,nolintlint // zap expects a zap.Option.
func WithLevel(lvl zapcore.Level) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &fixedLevelCore{core, lvl}
	})
}

// Quiet replaces the global logger with one that only reports warnings and
// errors. One-shot CLI commands use it so their output is not interleaved
// with informational logs.
func Quiet() {
	SetLogger(Logger().WithOptions(WithLevel(zapcore.WarnLevel)))
}
