// SPDX-License-Identifier: GPL-3.0-or-later

// Package tcplog streams structured log records to a remote collector
// over a TCP connection, optionally secured with TLS, with automatic
// reconnection on failure.
//
// # Core Abstraction
//
// The package is built around the [*Writer] type:
//
//	w := tcplog.NewWriter(tcplog.NewConfig(), settings, logger)
//	err := w.Init(ctx, overrides, fields)
//	err = w.Write(ctx, values)
//	err = w.Close()
//
// A Writer maintains exactly one outbound transport at a time. Each record
// is serialized by a [Formatter] and sent as a single newline-terminated
// line. When the connection drops and retry is enabled, the Writer tears
// the transport down and transparently reestablishes it inline; records
// produced while disconnected are dropped rather than queued.
//
// # Connection Lifecycle
//
// Establishing a transport is a fixed sequence implemented by
// [*Establisher]: resolve the endpoint ([*ResolveFunc]), dial it
// ([*ConnectFunc]), optionally secure it ([*SecureFunc]), and optionally
// send a pre-shared authentication key line ([*AuthFunc]). Every stage
// that fails closes whatever it acquired before returning, so no failure
// path leaks a socket or a TLS session.
//
// Failure severity follows the stage:
//
//   - Resolution failures are always fatal for the attempt: an immediate
//     identical retry is unlikely to succeed.
//   - Dial failures are retryable when [Settings.Retry] is true. The first
//     failed attempt logs a Warning; consecutive retries of the same
//     logical attempt are silent.
//   - TLS trust, handshake, and verification failures are fatal for the
//     attempt and never downgrade to plaintext. With retry enabled the
//     next write triggers a fresh attempt.
//
// # Observability
//
// All operations support structured logging via [SLogger] (compatible
// with [log/slog]). By default logging is disabled; set a custom
// [*slog.Logger] to enable it. Lifecycle events (resolve, connect, TLS
// handshake, close) are emitted at Info level as Start/Done pairs sharing
// the fields localAddr, remoteAddr, protocol, t, and (on Done) t0, err,
// and errClass. Per-I/O events are emitted at Debug level. Recoverable
// connect failures surface at Warn level and fatal failures at Error
// level, matching the retry policy above.
//
// Use [NewSpanID] to generate a unique, time-ordered identifier (UUIDv7)
// for a writer lifetime or a single connection attempt, then attach it
// with [*slog.Logger.With] so all events of that attempt correlate.
//
// Error classification for log events is configurable via [ErrClassifier];
// the default maps errors to POSIX-style labels (e.g., "ECONNREFUSED").
//
// # Timeout and Context Philosophy
//
// The package is context-transparent: operations never modify the context
// they receive. The caller controls timeouts externally via
// [context.WithTimeout] or [signal.NotifyContext]. During an establish
// sequence the raw connection is bound to the context so that a done
// context interrupts blocking dial and handshake I/O. Steady-state writes
// are synchronous and blocking: a hung remote peer blocks the Writer.
//
// # Concurrency Model
//
// A Writer is single-threaded by design. There is no background retry
// goroutine: "retry" means one more synchronous attempt at the point of
// failure or on the next write. Writers must not be shared across
// goroutines without external synchronization. The only process-wide
// shared state is the lazily-loaded system trust pool, initialized at
// most once per process regardless of reconnects.
package tcplog
