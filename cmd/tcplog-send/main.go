// SPDX-License-Identifier: GPL-3.0-or-later

// Command tcplog-send streams stdin lines to a remote collector as
// structured records, one record per line.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/logtap/tcplog"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "tcplog-send: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tcplog-send", flag.ContinueOnError)

	host := fs.String("host", "127.0.0.1", "Collector hostname or address")
	port := fs.Uint16("port", 4242, "Collector TCP port")
	useTLS := fs.Bool("tls", false, "Secure the connection with TLS")
	certFile := fs.String("cert", "", "PEM trust-anchor file (default: system trust store)")
	key := fs.String("key", "", "Pre-shared key sent before the first record")
	retry := fs.Bool("retry", false, "Reconnect transparently instead of failing")
	verbose := fs.CountP("verbose", "v", "Increase verbosity (repeatable)")

	fs.Usage = func() { printUsage(fs) }
	if err := fs.Parse(args); err != nil {
		return err
	}

	writer := tcplog.NewWriter(tcplog.NewConfig(), tcplog.Settings{
		Host:     *host,
		Port:     *port,
		Retry:    *retry,
		TLS:      *useTLS,
		CertFile: *certFile,
		Key:      *key,
	}, newLogger(*verbose))

	fields := []tcplog.Field{{Name: "ts"}, {Name: "msg"}}
	if err := writer.Init(ctx, nil, fields); err != nil && !*retry {
		return err
	}
	defer writer.Close()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := writer.Write(ctx, []any{time.Now(), scanner.Text()}); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// newLogger maps the verbosity count to a structured logger: silent by
// default, lifecycle events at -v, per-I/O events at -vv.
func newLogger(verbose int) tcplog.SLogger {
	if verbose <= 0 {
		return tcplog.DefaultSLogger()
	}
	level := slog.LevelInfo
	if verbose >= 2 {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("spanID", tcplog.NewSpanID())
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `tcplog-send - stream stdin lines to a log collector

Usage:
  tcplog-send [options]

Options:
`)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  tail -F app.log | tcplog-send --host collector.example.com --port 4242
  journalctl -f | tcplog-send --tls --cert anchor.pem --key s3cret --retry
`)
}
