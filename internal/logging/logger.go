// Package logging wraps zap into the component-tagged logger used across
// the gateway, matching the teacher's commons.Logger calling convention.
package logging

import (
	"go.uber.org/zap"
)

// Logger is the structured logger contract every component depends on.
// Component tags are the ones named in the spec: Voice, Player, AudioStream,
// Demuxer, Socket, API, Server.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	With(keysAndValues ...interface{}) Logger
	Component(tag string) Logger
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// New builds a Logger. development=true switches to a colorized console
// encoder suited for local runs; false produces JSON suited for ingestion.
func New(development bool, level string) (Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}

	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapLogger{s: z.Sugar()}, nil
}

func (l *zapLogger) Debugw(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l *zapLogger) Infow(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l *zapLogger) Warnw(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l *zapLogger) Errorw(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }

func (l *zapLogger) With(kv ...interface{}) Logger {
	return &zapLogger{s: l.s.With(kv...)}
}

func (l *zapLogger) Component(tag string) Logger {
	return l.With("component", tag)
}
