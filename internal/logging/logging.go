// Package logging provides the logging conventions shared by every package
// in this module.
//
// Design principles:
//   - Logging is dependency-injected, never global.
//   - Each component scopes its own logger once, at construction time,
//     with slog.With("component", "...").
//   - If no logger is provided, a discard logger is used so components
//     never need to nil-check.
//   - Logging is sparse: lifecycle boundaries (daemon start/stop, pool
//     eviction of expired connections, chart rendering) are logged; hot
//     loops (CRC tables, byte codec, serialization) are not.
package logging

import (
	"context"
	"log/slog"
)

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Discard returns a logger that discards all output.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

// Default returns logger if non-nil, otherwise a discard logger. Standard
// pattern for optional logger constructor parameters:
//
//	func New(logger *slog.Logger) *Thing {
//	    logger = logging.Default(logger)
//	    return &Thing{logger: logger.With("component", "thing")}
//	}
func Default(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return Discard()
}
