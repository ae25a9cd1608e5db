package corelog

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// logifaceLogger adapts a *logiface.Logger[E] to Logger.
type logifaceLogger[E logiface.Event] struct {
	l *logiface.Logger[E]
}

// FromLogiface adapts an existing logiface logger to the Logger interface
// this module consumes. Use this when a program already standardizes on
// logiface for its own logging and wants the concurrency core to write
// through the same pipeline, whatever Event implementation it uses.
func FromLogiface[E logiface.Event](l *logiface.Logger[E]) Logger {
	if l == nil {
		return Nop
	}
	return logifaceLogger[E]{l: l}
}

// NewDefault returns a ready-to-use Logger backed by stumpy's console
// writer, at informational level. It exists so the rest of this module
// never has to know how to construct a logiface pipeline.
func NewDefault() Logger {
	return FromLogiface(stumpy.L.New(stumpy.L.WithStumpy()))
}

func (x logifaceLogger[E]) Trace(msg string) { x.l.Trace().Log(msg) }
func (x logifaceLogger[E]) Debug(msg string) { x.l.Debug().Log(msg) }
func (x logifaceLogger[E]) Info(msg string)  { x.l.Info().Log(msg) }
func (x logifaceLogger[E]) Warn(msg string)  { x.l.Warning().Log(msg) }
func (x logifaceLogger[E]) Error(msg string) { x.l.Err().Log(msg) }
