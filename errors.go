// SPDX-License-Identifier: GPL-3.0-or-later

package tcplog

import (
	"errors"
	"fmt"
)

// Stage identifies the connection-lifecycle stage at which an operation
// failed. The stage determines severity and retryability: see [*Establisher].
type Stage int

const (
	// StageResolve is endpoint resolution. Always fatal for the attempt.
	StageResolve Stage = iota

	// StageConnect is opening and connecting the stream socket.
	// Retryable when [Settings.Retry] is true.
	StageConnect

	// StageTrustSetup is loading the trust anchors (system store or the
	// configured certificate file). Fatal for the attempt.
	StageTrustSetup

	// StageSessionSetup is creating and binding the TLS client session.
	// Fatal for the attempt.
	StageSessionSetup

	// StageHandshake is the TLS handshake. Fatal for the attempt.
	StageHandshake

	// StageNoPeerCert means the handshake completed without the peer
	// presenting a certificate. Fatal for the attempt.
	StageNoPeerCert

	// StageVerify is peer certificate chain verification. Fatal for the
	// attempt; never downgraded to plaintext.
	StageVerify

	// StageAuth is sending the pre-shared key line. Fatal for the
	// attempt; the enclosing reconnect policy may retry the whole
	// sequence.
	StageAuth

	// StageSend is sending a serialized record. Retryable when
	// [Settings.Retry] is true.
	StageSend
)

// String returns the stage name used in error text and log events.
func (s Stage) String() string {
	switch s {
	case StageResolve:
		return "resolve"
	case StageConnect:
		return "connect"
	case StageTrustSetup:
		return "trustSetup"
	case StageSessionSetup:
		return "sessionSetup"
	case StageHandshake:
		return "handshake"
	case StageNoPeerCert:
		return "noPeerCert"
	case StageVerify:
		return "verify"
	case StageAuth:
		return "auth"
	case StageSend:
		return "send"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// StageError wraps an underlying system or TLS error with the lifecycle
// stage at which it occurred.
type StageError struct {
	// Stage is the failed lifecycle stage.
	Stage Stage

	// Err is the underlying error.
	Err error
}

var _ error = &StageError{}

// Error implements error.
func (e *StageError) Error() string {
	return fmt.Sprintf("tcplog: %s: %s", e.Stage, e.Err)
}

// Unwrap supports [errors.Is] and [errors.As].
func (e *StageError) Unwrap() error {
	return e.Err
}

// newStageError wraps err with the given stage.
func newStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// ErrorStage extracts the lifecycle stage from err. The second return
// value is false when err does not wrap a [*StageError].
func ErrorStage(err error) (Stage, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return 0, false
}

// Sentinel errors for failure conditions without an underlying cause.
var (
	// ErrNoUsableAddress means resolution succeeded but yielded zero
	// usable candidates.
	ErrNoUsableAddress = errors.New("tcplog: no usable address for host")

	// ErrNoPeerCertificate means the TLS handshake completed without a
	// peer certificate, which would leave the stream unauthenticated.
	ErrNoPeerCertificate = errors.New("tcplog: peer presented no certificate")

	// ErrDisconnected means the writer has no transport and retry is
	// disabled, so the record cannot be sent.
	ErrDisconnected = errors.New("tcplog: not connected")
)
