// SPDX-License-Identifier: GPL-3.0-or-later

package tcplog

import (
	"bytes"
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/bassosimone/runtimex"
)

// NewWriter returns a new [*Writer] with the given defaults.
//
// The cfg argument contains the common configuration for tcplog operations.
//
// The settings argument supplies the connection defaults; [*Writer.Init]
// may override individual values from the host configuration surface.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewWriter(cfg *Config, settings Settings, logger SLogger) *Writer {
	return &Writer{
		Formatter: nil,
		buf:       bytes.Buffer{},
		cfg:       cfg,
		est:       nil,
		fields:    nil,
		logger:    logger,
		settings:  settings,
	}
}

// Writer streams structured records to a remote collector, one
// newline-terminated serialization per record, over a single plain or
// TLS transport with optional inline reconnection.
//
// The lifecycle is Init, any number of Write calls, Close. A Writer
// whose transport failed with retry disabled stays defunct until Init
// is called again. Writers are not safe for concurrent use.
type Writer struct {
	// Formatter serializes records. Leave nil to get the built-in JSON
	// formatter bound to epoch timestamps. Must be set before Init.
	Formatter Formatter

	// buf is the reusable serialization buffer.
	buf bytes.Buffer

	// cfg is the common operation configuration.
	cfg *Config

	// est owns the transport; nil until Init.
	est *Establisher

	// fields are the record field descriptors, fixed at Init.
	fields []Field

	// logger is the structured logger.
	logger SLogger

	// settings are the connection defaults prior to override merging.
	settings Settings
}

// Init merges configuration overrides into the connection settings (see
// [Settings.MergeOverrides]; empty override values keep the defaults),
// fixes the record field descriptors, constructs the formatter when none
// is set, and performs the initial establish (not flagged as a retry, so
// a dial failure logs one Warning when retry is enabled).
//
// The returned error is the establish result: with retry enabled a dial
// failure still returns an error, but the writer is usable and will
// reattempt the connection inline on every Write.
//
// Init may be called again after Close to reinitialize a defunct writer.
func (w *Writer) Init(ctx context.Context, overrides map[string]string, fields []Field) error {
	merged, err := w.settings.MergeOverrides(overrides)
	if err != nil {
		return err
	}
	w.fields = slices.Clone(fields)
	if w.Formatter == nil {
		w.Formatter = NewJSONFormatter(TimeEpoch)
	}
	w.est = NewEstablisher(w.cfg, merged, w.logger)
	return w.est.Establish(ctx, false)
}

// Write serializes one record and sends it on the active transport.
// The values are consumed immediately and not retained.
//
// Behavior while disconnected depends on [Settings.Retry]:
//
//   - retry enabled: Write attempts one silent reconnect; if the
//     collector is still unreachable it drops the record and returns
//     nil, so an offline collector does not cascade failure into the
//     record producer.
//   - retry disabled: Write returns [ErrDisconnected] immediately.
//
// A send failure with retry enabled tears the transport down and
// reestablishes it immediately; the current record is best-effort and
// is not re-sent on the fresh transport. With retry disabled the send
// error is returned and the writer is defunct until reinitialized.
func (w *Writer) Write(ctx context.Context, values []any) error {
	runtimex.Assert(w.est != nil)

	if !w.est.Connected() {
		if !w.est.Settings.Retry {
			return ErrDisconnected
		}
		if err := w.est.Establish(ctx, true); err != nil {
			// Still offline: drop the record, report success.
			return nil
		}
	}

	w.buf.Reset()
	if err := w.Formatter.Describe(&w.buf, w.fields, values); err != nil {
		return err
	}
	w.buf.WriteByte('\n')

	if _, err := w.est.sendWriter().Write(w.buf.Bytes()); err != nil {
		if w.est.Settings.Retry {
			w.est.Teardown()
			w.est.Establish(ctx, true)
			return nil
		}
		err = newStageError(StageSend, err)
		w.logger.Error(
			"sendFailed",
			slog.Any("err", err),
			slog.String("errClass", w.cfg.ErrClassifier.Classify(err)),
			slog.Time("t", w.cfg.TimeNow()),
		)
		return err
	}
	return nil
}

// Close tears down the transport: TLS shutdown when secured, then the
// connection, in reverse acquisition order. Idempotent: safe to call on
// an already-disconnected or never-initialized writer.
func (w *Writer) Close() error {
	if w.est != nil {
		w.est.Teardown()
	}
	w.buf = bytes.Buffer{}
	return nil
}

// Flush is accepted for interface symmetry with buffered writers and is
// a no-op: every record is sent as soon as it is written.
func (w *Writer) Flush() error {
	return nil
}

// SetBuffering is accepted for interface symmetry and is a no-op: the
// writer never buffers records.
func (w *Writer) SetBuffering(enabled bool) {
	// nothing
}

// Rotate is accepted for interface symmetry with file-backed writers and
// is a no-op: a network stream has nothing to rotate.
func (w *Writer) Rotate(rotatedPath string) error {
	return nil
}

// Heartbeat is accepted for interface symmetry with writers that act on
// periodic ticks and is a no-op: reconnection happens inline on Write,
// not on a timer.
func (w *Writer) Heartbeat(now time.Time) error {
	return nil
}
