// SPDX-License-Identifier: GPL-3.0-or-later

package tcplog

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// NewEstablisher returns a new [*Establisher] for the given [Settings].
//
// The cfg argument contains the common configuration for tcplog operations.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewEstablisher(cfg *Config, settings Settings, logger SLogger) *Establisher {
	return &Establisher{
		Auth:          NewAuthFunc(cfg, settings, logger),
		Connect:       NewConnectFunc(cfg, logger),
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		Resolve:       NewResolveFunc(cfg, logger),
		Secure:        NewSecureFunc(cfg, settings, logger),
		Settings:      settings,
		TimeNow:       cfg.TimeNow,
		tr:            transport{},
	}
}

// Establisher owns the connection lifecycle of a [*Writer]: it runs the
// establish sequence (resolve, connect, optionally secure, optionally
// authenticate) as an explicit state machine over the single [transport]
// instance, and tears the transport down on failure.
//
// Retry never means a loop: a failed establish leaves the transport
// disconnected and returns; the writer attempts the next establish
// inline on the next write. This bounds worst-case latency to one
// reconnect attempt per write.
//
// All fields are safe to modify after construction but before first use.
// An Establisher must not be used concurrently.
type Establisher struct {
	// Auth sends the pre-shared key line.
	//
	// Set by [NewEstablisher] via [NewAuthFunc].
	Auth *AuthFunc

	// Connect dials the resolved endpoint.
	//
	// Set by [NewEstablisher] via [NewConnectFunc].
	Connect *ConnectFunc

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewEstablisher] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use (configurable for testing or custom logging).
	//
	// Set by [NewEstablisher] to the user-provided logger.
	Logger SLogger

	// Resolve resolves the collector endpoint.
	//
	// Set by [NewEstablisher] via [NewResolveFunc].
	Resolve *ResolveFunc

	// Secure layers a verified TLS session over the connection.
	//
	// Set by [NewEstablisher] via [NewSecureFunc].
	Secure *SecureFunc

	// Settings is the connection configuration, immutable once the
	// first attempt begins.
	//
	// Set by [NewEstablisher] to the user-provided settings.
	Settings Settings

	// TimeNow is the function to get the current time (configurable for testing).
	//
	// Set by [NewEstablisher] from [Config.TimeNow].
	TimeNow func() time.Time

	// tr is the single transport instance owned by this establisher.
	tr transport
}

// Establish runs the connection sequence. On success the transport is
// live (connected or secured). On failure the transport is disconnected
// and every partially acquired resource has been released.
//
// The isRetry flag marks write-triggered reconnect attempts: a dial
// failure on such an attempt is not logged again, so a collector outage
// produces one Warning for the logical attempt rather than one per
// dropped record. Dial failures on a fresh attempt log a Warning when
// retry is enabled and an Error otherwise; every other stage is fatal
// for the attempt and logs an Error regardless of the retry flag.
func (e *Establisher) Establish(ctx context.Context, isRetry bool) error {
	if e.tr.connected() {
		e.tr.close()
	}

	addr, err := e.Resolve.Call(ctx, e.Settings.Host, e.Settings.Port)
	if err != nil {
		e.reportFailure(StageResolve, err, isRetry)
		return err
	}

	conn, err := e.Connect.Call(ctx, addr)
	if err != nil {
		e.reportFailure(StageConnect, err, isRetry)
		return err
	}
	conn = newObservedConn(conn, e.Logger, e.ErrClassifier, e.TimeNow)

	// Bind the connection to the context for the rest of the sequence so
	// that the handshake and the key send honor external cancellation.
	stop := watchCancel(ctx, conn)
	defer stop()

	if e.Settings.TLS {
		tconn, err := e.Secure.Call(ctx, conn)
		if err != nil {
			// Secure already closed the connection.
			stage, _ := ErrorStage(err)
			e.reportFailure(stage, err, isRetry)
			return err
		}
		e.tr = transport{state: transportSecured, conn: conn, tls: tconn}
	} else {
		e.tr = transport{state: transportConnected, conn: conn}
	}

	if err := e.Auth.Call(e.tr.writer()); err != nil {
		e.tr.close()
		e.reportFailure(StageAuth, err, isRetry)
		return err
	}

	return nil
}

// Teardown releases the transport. Idempotent: safe to call when
// already disconnected.
func (e *Establisher) Teardown() {
	e.tr.close()
}

// Connected reports whether a transport (plain or secured) is live.
func (e *Establisher) Connected() bool {
	return e.tr.connected()
}

// Secured reports whether the live transport is TLS.
func (e *Establisher) Secured() bool {
	return e.tr.state == transportSecured
}

// sendWriter returns the [io.Writer] over the active transport leg.
// It must only be called while Connected is true.
func (e *Establisher) sendWriter() io.Writer {
	return e.tr.writer()
}

// reportFailure logs an establish failure with the severity mandated by
// the retry policy: dial failures with retry enabled are recoverable
// (Warning, and only for the first failed attempt); everything else is
// fatal for the attempt (Error).
func (e *Establisher) reportFailure(stage Stage, err error, isRetry bool) {
	if stage == StageConnect && e.Settings.Retry {
		if !isRetry {
			e.Logger.Warn(
				"establishFailed",
				slog.Any("err", err),
				slog.String("errClass", e.ErrClassifier.Classify(err)),
				slog.String("stage", stage.String()),
				slog.Time("t", e.TimeNow()),
			)
		}
		return
	}
	e.Logger.Error(
		"establishFailed",
		slog.Any("err", err),
		slog.String("errClass", e.ErrClassifier.Classify(err)),
		slog.String("stage", stage.String()),
		slog.Time("t", e.TimeNow()),
	)
}
