// Package logx is the optional diagnostic sink used by the parsers.
package logx

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Logger receives parser diagnostics. kv holds alternating key/value pairs.
type Logger interface {
	Debug(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// Debug forwards to l when l is non-nil.
func Debug(l Logger, msg string, kv ...any) {
	if l != nil {
		l.Debug(msg, kv...)
	}
}

// Warn forwards to l when l is non-nil.
func Warn(l Logger, msg string, kv ...any) {
	if l != nil {
		l.Warn(msg, kv...)
	}
}

// Error forwards to l when l is non-nil.
func Error(l Logger, msg string, kv ...any) {
	if l != nil {
		l.Error(msg, kv...)
	}
}

type zerologLogger struct {
	l zerolog.Logger
}

// NewZerolog adapts a zerolog.Logger.
func NewZerolog(l zerolog.Logger) Logger {
	return &zerologLogger{l: l}
}

func (z *zerologLogger) Debug(msg string, kv ...any) { emit(z.l.Debug(), msg, kv) }

func (z *zerologLogger) Warn(msg string, kv ...any) { emit(z.l.Warn(), msg, kv) }

func (z *zerologLogger) Error(msg string, kv ...any) { emit(z.l.Error(), msg, kv) }

func emit(e *zerolog.Event, msg string, kv []any) {
	if e == nil {
		return
	}
	if len(kv)%2 != 0 {
		kv = append(kv, "!MISSING")
	}
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		if err, ok := kv[i+1].(error); ok {
			e = e.AnErr(key, err)
			continue
		}
		e = e.Interface(key, kv[i+1])
	}
	e.Msg(msg)
}
