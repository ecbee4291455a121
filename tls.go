// SPDX-License-Identifier: GPL-3.0-or-later

package tcplog

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/bassosimone/safeconn"
)

// TLSEngine is the engine to create a new [TLSConn].
type TLSEngine interface {
	// Client builds a new client [TLSConn].
	Client(conn net.Conn, config *tls.Config) TLSConn

	// Name returns the engine name.
	Name() string
}

// TLSEngineStdlib implements [TLSEngine] for the standard library.
//
// The zero value is ready to use.
type TLSEngineStdlib struct{}

var _ TLSEngine = TLSEngineStdlib{}

// Client implements [TLSEngine].
//
// This function uses [tls.Client] to build a new [*tls.Conn].
func (TLSEngineStdlib) Client(conn net.Conn, config *tls.Config) TLSConn {
	return tls.Client(conn, config)
}

// Name implements [TLSEngine].
//
// This function returns "stdlib".
func (TLSEngineStdlib) Name() string {
	return "stdlib"
}

// TLSConn abstracts over [*tls.Conn].
//
// By using an abstraction we allow for alternative TLS implementations.
type TLSConn interface {
	// ConnectionState returns the connection state.
	ConnectionState() tls.ConnectionState

	// HandshakeContext performs the handshake unless interrupted by the context.
	HandshakeContext(ctx context.Context) error

	// Embedding Conn means we can use this type as a [net.Conn].
	net.Conn
}

// NewSecureFunc returns a new [*SecureFunc] for the given [Settings].
//
// The cfg argument contains the common configuration for tcplog operations.
//
// The settings argument supplies the server name used for SNI and
// certificate verification ([Settings.Host]) and the optional trust-anchor
// file ([Settings.CertFile], empty means the system trust store).
//
// The logger argument is the [SLogger] to use for structured logging.
func NewSecureFunc(cfg *Config, settings Settings, logger SLogger) *SecureFunc {
	return &SecureFunc{
		CertFile:      settings.CertFile,
		Engine:        TLSEngineStdlib{},
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		ServerName:    settings.Host,
		TimeNow:       cfg.TimeNow,
	}
}

// SecureFunc layers a verified TLS session over an established [net.Conn].
//
// The sequence is: load trust anchors ([StageTrustSetup]), create the
// client session bound to the connection ([StageSessionSetup]), perform
// the handshake ([StageHandshake], or [StageVerify] when the failure is a
// certificate verification error), and finally require that the peer
// presented a certificate ([StageNoPeerCert]) so that an anonymous cipher
// suite cannot slip through a nominally successful handshake.
//
// Returns either a valid [TLSConn] or an error, never both. Every failure
// closes the underlying connection: no session or socket outlives an
// error return. All TLS failures are fatal for the enclosing connection
// attempt and are never downgraded to plaintext.
//
// The protocol version is negotiated by the TLS library, not pinned.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type SecureFunc struct {
	// CertFile is the optional PEM trust-anchor file path.
	//
	// Set by [NewSecureFunc] from [Settings.CertFile].
	CertFile string

	// Engine is the [TLSEngine] to use to handshake.
	//
	// Set by [NewSecureFunc] to [TLSEngineStdlib].
	Engine TLSEngine

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewSecureFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use (configurable for testing or custom logging).
	//
	// Set by [NewSecureFunc] to the user-provided logger.
	Logger SLogger

	// ServerName is the name sent as SNI and verified against the peer
	// certificate.
	//
	// Set by [NewSecureFunc] from [Settings.Host].
	ServerName string

	// TimeNow is the function to get the current time (configurable for testing).
	//
	// Set by [NewSecureFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

// Call secures the given [net.Conn], returning a verified [TLSConn].
func (op *SecureFunc) Call(ctx context.Context, conn net.Conn) (TLSConn, error) {
	pool, err := loadTrustAnchors(op.CertFile)
	if err != nil {
		conn.Close()
		return nil, err
	}

	config := &tls.Config{
		RootCAs:    pool,
		ServerName: op.ServerName,
		Time:       op.TimeNow,
	}

	tconn := op.Engine.Client(conn, config)
	if tconn == nil {
		conn.Close()
		return nil, newStageError(StageSessionSetup,
			errors.New("TLS engine returned no session"))
	}

	t0 := op.TimeNow()
	deadline, _ := ctx.Deadline()
	op.logHandshakeStart(op.Engine, conn, t0, deadline, config)
	err = tconn.HandshakeContext(ctx)
	state := tconn.ConnectionState()
	if err == nil && len(state.PeerCertificates) < 1 {
		err = newStageError(StageNoPeerCert, ErrNoPeerCertificate)
	}
	if err != nil {
		err = op.wrapHandshakeError(err)
	}
	op.logHandshakeDone(op.Engine, conn, t0, deadline, config, err, state)

	if err != nil {
		tconn.Close()
		return nil, err
	}
	return tconn, nil
}

// wrapHandshakeError tags err with the proper stage: certificate
// verification failures become [StageVerify] and any other handshake
// failure becomes [StageHandshake]. An already-staged error (the
// post-handshake peer certificate guard) passes through unchanged.
func (op *SecureFunc) wrapHandshakeError(err error) error {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return err
	}

	var certVerifyErr *tls.CertificateVerificationError
	if errors.As(err, &certVerifyErr) {
		return newStageError(StageVerify, err)
	}

	// Older code paths may surface the x509 error without the tls wrapper.
	var hostnameErr x509.HostnameError
	var unknownAuthorityErr x509.UnknownAuthorityError
	var certInvalidErr x509.CertificateInvalidError
	if errors.As(err, &hostnameErr) || errors.As(err, &unknownAuthorityErr) ||
		errors.As(err, &certInvalidErr) {
		return newStageError(StageVerify, err)
	}

	return newStageError(StageHandshake, err)
}

func (op *SecureFunc) logHandshakeStart(engine TLSEngine,
	conn net.Conn, t0 time.Time, deadline time.Time, config *tls.Config) {
	op.Logger.Info(
		"tlsHandshakeStart",
		slog.Time("deadline", deadline),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", safeconn.Network(conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.Time("t", t0),
		slog.String("tlsCertFile", op.CertFile),
		slog.String("tlsEngineName", engine.Name()),
		slog.String("tlsServerName", config.ServerName),
	)
}

func (op *SecureFunc) logHandshakeDone(engine TLSEngine,
	conn net.Conn, t0 time.Time, deadline time.Time, config *tls.Config, err error, state tls.ConnectionState) {
	op.Logger.Info(
		"tlsHandshakeDone",
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.String("localAddr", safeconn.LocalAddr(conn)),
		slog.String("protocol", safeconn.Network(conn)),
		slog.String("remoteAddr", safeconn.RemoteAddr(conn)),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
		slog.String("tlsCipherSuite", tls.CipherSuiteName(state.CipherSuite)),
		slog.String("tlsEngineName", engine.Name()),
		slog.Any("tlsPeerCerts", op.peerCerts(state, err)),
		slog.String("tlsServerName", config.ServerName),
		slog.String("tlsVersion", tls.VersionName(state.Version)),
	)
}

func (op *SecureFunc) peerCerts(state tls.ConnectionState, err error) (out [][]byte) {
	out = [][]byte{}

	// 1. Check whether the error is a known certificate error and extract
	// the certificate using `errors.As` for additional robustness.
	var x509HostnameError x509.HostnameError
	if errors.As(err, &x509HostnameError) {
		// Test case: https://wrong.host.badssl.com/
		if x509HostnameError.Certificate != nil {
			out = append(out, x509HostnameError.Certificate.Raw)
		}
		return
	}

	var x509UnknownAuthorityError x509.UnknownAuthorityError
	if errors.As(err, &x509UnknownAuthorityError) {
		// Test case: https://self-signed.badssl.com/
		if x509UnknownAuthorityError.Cert != nil {
			out = append(out, x509UnknownAuthorityError.Cert.Raw)
		}
		return
	}

	var x509CertificateInvalidError x509.CertificateInvalidError
	if errors.As(err, &x509CertificateInvalidError) {
		// Test case: https://expired.badssl.com/
		if x509CertificateInvalidError.Cert != nil {
			out = append(out, x509CertificateInvalidError.Cert.Raw)
		}
		return
	}

	// 2. Otherwise extract certificates from the connection state.
	for _, cert := range state.PeerCertificates {
		out = append(out, cert.Raw)
	}
	return
}
