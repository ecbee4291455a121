// SPDX-License-Identifier: GPL-3.0-or-later

package tcplog_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/bassosimone/runtimex"
	"github.com/logtap/tcplog"
)

// This example streams two structured records to a collector over plain
// TCP, authenticating with a pre-shared key line.
func ExampleWriter() {
	// Stand-in collector: accept one connection and echo what it receives.
	listener := runtimex.PanicOnError1(net.Listen("tcp", "127.0.0.1:0"))
	defer listener.Close()
	received := make(chan []byte, 1)
	go func() {
		conn := runtimex.PanicOnError1(listener.Accept())
		defer conn.Close()
		received <- runtimex.PanicOnError1(io.ReadAll(conn))
	}()

	// Create context with overall timeout for the delivery.
	// Caller controls timeout externally - tcplog never modifies the context.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Configure the writer for the collector endpoint.
	writer := tcplog.NewWriter(tcplog.NewConfig(), tcplog.Settings{
		Host: "127.0.0.1",
		Port: uint16(listener.Addr().(*net.TCPAddr).Port),
		Key:  "hunter2",
	}, tcplog.DefaultSLogger())

	// Init fixes the record schema and establishes the transport.
	fields := []tcplog.Field{{Name: "msg"}, {Name: "status"}}
	runtimex.Assert(writer.Init(ctx, nil, fields) == nil)

	// Each Write sends one newline-terminated serialization.
	runtimex.Assert(writer.Write(ctx, []any{"service started", "ok"}) == nil)
	runtimex.Assert(writer.Write(ctx, []any{"service stopped", "ok"}) == nil)
	runtimex.Assert(writer.Close() == nil)

	fmt.Printf("%s", <-received)

	// Output:
	// hunter2
	// {"msg":"service started","status":"ok"}
	// {"msg":"service stopped","status":"ok"}
}
