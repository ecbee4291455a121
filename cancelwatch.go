// SPDX-License-Identifier: GPL-3.0-or-later

package tcplog

import (
	"context"
	"net"
)

// watchCancel arranges for conn to be closed when ctx is done (cancelled
// or deadline exceeded), which makes blocking dial-adjacent I/O such as
// the TLS handshake and the key-line send responsive to external
// cancellation (e.g., SIGINT via signal.NotifyContext).
//
// The returned stop function unregisters the watcher without closing the
// connection; it reports whether it stopped the watcher before it ran.
// The establisher binds the watcher only for the duration of the
// establish sequence: a transport that survives setup must not be tied
// to the context of the call that created it, because steady-state
// writes arrive with their own contexts.
//
// Closing an already-closed connection is safe with any [net.Conn]
// implementation following Go's [net.ErrClosed] convention, which the
// [newObservedConn] wrapper also follows.
func watchCancel(ctx context.Context, conn net.Conn) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		conn.Close()
	})
}
