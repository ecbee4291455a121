// SPDX-License-Identifier: GPL-3.0-or-later

package tcplog

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// NewSpanID returns a UUIDv7 representing a span.
//
// A span is a sequence of operations that can fail in a single, specific
// way. In this package the natural spans are a single connection attempt
// (resolve, connect, secure, authenticate) and a writer lifetime.
//
// Attach the span ID to the logger with [*slog.Logger.With] so that all
// log events emitted during the span share it, which makes it possible to
// correlate the events of one reconnect cycle among many.
//
// The span terminology is borrowed from OTel.
//
// This function panics if the system random number generator fails,
// which should only happen under extraordinary circumstances.
func NewSpanID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}
