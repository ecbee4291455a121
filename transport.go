// SPDX-License-Identifier: GPL-3.0-or-later

package tcplog

import (
	"io"
	"net"
)

// transportState enumerates the transport lifecycle states.
type transportState int

const (
	// transportDisconnected means no connection exists.
	transportDisconnected transportState = iota

	// transportConnected means a plain TCP connection is live.
	transportConnected

	// transportSecured means a verified TLS session is live on top of
	// the TCP connection.
	transportSecured
)

// transport is the active communication channel of a [*Writer]. Exactly
// one instance exists per writer; it is owned by the writer's
// [*Establisher] and mutated only by the establish/teardown sequence.
//
// Transitions: disconnected -> connected (dial success) -> secured (TLS
// handshake and verification success, only when TLS is enabled). Any
// setup failure returns to disconnected with all resources released; no
// partial state is retained.
type transport struct {
	// state is the current lifecycle state.
	state transportState

	// conn is the raw connection; non-nil in connected and secured states.
	conn net.Conn

	// tls is the TLS session; non-nil only in the secured state.
	tls TLSConn
}

// connected reports whether a transport (plain or secured) is live.
func (t *transport) connected() bool {
	return t.state != transportDisconnected
}

// writer returns the [io.Writer] view over the active leg: the TLS
// session when secured, the raw connection otherwise. It must only be
// called on a connected transport.
func (t *transport) writer() io.Writer {
	if t.state == transportSecured {
		return t.tls
	}
	return t.conn
}

// close releases the transport in reverse acquisition order: TLS session
// first (which also closes the underlying connection and sends the TLS
// close-notify), then the raw connection. It is idempotent and safe to
// call on a disconnected transport.
func (t *transport) close() {
	switch t.state {
	case transportSecured:
		t.tls.Close()
	case transportConnected:
		t.conn.Close()
	}
	t.state = transportDisconnected
	t.conn = nil
	t.tls = nil
}
