// SPDX-License-Identifier: GPL-3.0-or-later

package tcplog

import (
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bassosimone/safeconn"
)

// newObservedConn wraps conn so that I/O operations emit Debug-level log
// events and close emits an Info-level closeStart/closeDone pair. The
// establisher wraps every raw connection this way before handing it to
// the transport, so record sends and teardowns are observable with a
// debug-enabled logger and free otherwise (the default logger discards).
func newObservedConn(conn net.Conn, logger SLogger,
	classifier ErrClassifier, timeNow func() time.Time) net.Conn {
	return &observedConn{
		classifier: classifier,
		conn:       conn,
		laddr:      safeconn.LocalAddr(conn),
		logger:     logger,
		protocol:   safeconn.Network(conn),
		raddr:      safeconn.RemoteAddr(conn),
		timeNow:    timeNow,
	}
}

// observedConn observes a [net.Conn].
type observedConn struct {
	classifier ErrClassifier
	closeonce  sync.Once
	conn       net.Conn
	laddr      string
	logger     SLogger
	protocol   string
	raddr      string
	timeNow    func() time.Time
}

// Close implements [net.Conn].
//
// Subsequent calls return [net.ErrClosed], consistent with Go's standard
// library behavior for closed connections.
func (c *observedConn) Close() (err error) {
	err = net.ErrClosed
	c.closeonce.Do(func() {
		t0 := c.timeNow()
		c.logger.Info(
			"closeStart",
			slog.String("localAddr", c.laddr),
			slog.String("protocol", c.protocol),
			slog.String("remoteAddr", c.raddr),
			slog.Time("t", t0),
		)

		err = c.conn.Close()

		c.logger.Info(
			"closeDone",
			slog.Any("err", err),
			slog.String("errClass", c.classifier.Classify(err)),
			slog.String("localAddr", c.laddr),
			slog.String("protocol", c.protocol),
			slog.String("remoteAddr", c.raddr),
			slog.Time("t0", t0),
			slog.Time("t", c.timeNow()),
		)
	})
	return
}

// LocalAddr implements [net.Conn].
func (c *observedConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr implements [net.Conn].
func (c *observedConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Read implements [net.Conn].
func (c *observedConn) Read(buf []byte) (int, error) {
	t0 := c.timeNow()
	count, err := c.conn.Read(buf)
	c.logger.Debug(
		"readDone",
		slog.Int("ioBytesCount", count),
		slog.Any("err", err),
		slog.String("errClass", c.classifier.Classify(err)),
		slog.String("localAddr", c.laddr),
		slog.String("protocol", c.protocol),
		slog.String("remoteAddr", c.raddr),
		slog.Time("t0", t0),
		slog.Time("t", c.timeNow()),
	)
	return count, err
}

// Write implements [net.Conn].
func (c *observedConn) Write(data []byte) (int, error) {
	t0 := c.timeNow()
	count, err := c.conn.Write(data)
	c.logger.Debug(
		"writeDone",
		slog.Int("ioBytesCount", count),
		slog.Any("err", err),
		slog.String("errClass", c.classifier.Classify(err)),
		slog.String("localAddr", c.laddr),
		slog.String("protocol", c.protocol),
		slog.String("remoteAddr", c.raddr),
		slog.Time("t0", t0),
		slog.Time("t", c.timeNow()),
	)
	return count, err
}

// SetDeadline implements [net.Conn].
func (c *observedConn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// SetReadDeadline implements [net.Conn].
func (c *observedConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline implements [net.Conn].
func (c *observedConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}
