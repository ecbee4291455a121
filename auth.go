// SPDX-License-Identifier: GPL-3.0-or-later

package tcplog

import (
	"io"
	"log/slog"
	"time"
)

// NewAuthFunc returns a new [*AuthFunc] for the given [Settings].
//
// The cfg argument contains the common configuration for tcplog operations.
//
// The settings argument supplies the pre-shared key ([Settings.Key]).
//
// The logger argument is the [SLogger] to use for structured logging.
func NewAuthFunc(cfg *Config, settings Settings, logger SLogger) *AuthFunc {
	return &AuthFunc{
		ErrClassifier: cfg.ErrClassifier,
		Key:           settings.Key,
		Logger:        logger,
		TimeNow:       cfg.TimeNow,
	}
}

// AuthFunc sends the pre-shared key line on a freshly established
// transport, before any record. The key followed by a single newline is
// transmitted as one write, on the secured leg when TLS is active and on
// the plain connection otherwise.
//
// An empty key means the collector does not authenticate the stream and
// Call is a no-op.
//
// Failure is always fatal for the current connection attempt ([StageAuth]):
// the caller tears down whatever transport was just established. The key
// send is never retried in isolation, though the enclosing reconnect
// policy may retry the whole sequence.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type AuthFunc struct {
	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewAuthFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Key is the pre-shared key; empty disables authentication.
	//
	// Set by [NewAuthFunc] from [Settings.Key].
	Key string

	// Logger is the [SLogger] to use (configurable for testing or custom logging).
	//
	// Set by [NewAuthFunc] to the user-provided logger.
	Logger SLogger

	// TimeNow is the function to get the current time (configurable for testing).
	//
	// Set by [NewAuthFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

// Call writes the key line to w. The key itself never appears in logs.
func (op *AuthFunc) Call(w io.Writer) error {
	if op.Key == "" {
		return nil
	}
	t0 := op.TimeNow()
	line := make([]byte, 0, len(op.Key)+1)
	line = append(line, op.Key...)
	line = append(line, '\n')
	_, err := w.Write(line)
	if err != nil {
		err = newStageError(StageAuth, err)
	}
	op.logAuthDone(t0, err)
	return err
}

func (op *AuthFunc) logAuthDone(t0 time.Time, err error) {
	op.Logger.Info(
		"authKeyDone",
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
	)
}
