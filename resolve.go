// SPDX-License-Identifier: GPL-3.0-or-later

package tcplog

import (
	"context"
	"log/slog"
	"net/netip"
	"strconv"
	"time"
)

// Resolver abstracts the [*net.Resolver] behavior.
//
// By making [*ResolveFunc] depend on an abstract implementation we
// allow for unit testing and for using alternative resolvers.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// NewResolveFunc returns a new [*ResolveFunc] with default resolver.
//
// The cfg argument contains the common configuration for tcplog operations.
//
// The logger argument is the [SLogger] to use for structured logging.
func NewResolveFunc(cfg *Config, logger SLogger) *ResolveFunc {
	return &ResolveFunc{
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		Resolver:      cfg.Resolver,
		TimeNow:       cfg.TimeNow,
	}
}

// ResolveFunc resolves a hostname and port to a connectable [netip.AddrPort].
//
// Resolution is restricted to addresses usable for stream connections from
// this host ("ip" network, so families without configured addresses are
// excluded by the resolver). The first usable candidate wins. A host that
// is already an address literal resolves to itself.
//
// Returns either a valid [netip.AddrPort] or an error, never both. Failures
// at this stage are always fatal for the enclosing connection attempt: an
// immediate identical retry is unlikely to resolve a DNS-level problem.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Call].
type ResolveFunc struct {
	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewResolveFunc] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use (configurable for testing or custom logging).
	//
	// Set by [NewResolveFunc] to the user-provided logger.
	Logger SLogger

	// Resolver is the [Resolver] to use.
	//
	// Set by [NewResolveFunc] from [Config.Resolver].
	Resolver Resolver

	// TimeNow is the function to get the current time (configurable for testing).
	//
	// Set by [NewResolveFunc] from [Config.TimeNow].
	TimeNow func() time.Time
}

// Call resolves host and port to the first usable [netip.AddrPort].
func (op *ResolveFunc) Call(ctx context.Context, host string, port uint16) (netip.AddrPort, error) {
	t0 := op.TimeNow()
	deadline, _ := ctx.Deadline()
	op.logResolveStart(host, port, t0, deadline)

	addrs, err := op.Resolver.LookupNetIP(ctx, "ip", host)
	if err == nil && len(addrs) < 1 {
		err = ErrNoUsableAddress
	}
	if err != nil {
		err = newStageError(StageResolve, err)
		op.logResolveDone(host, port, t0, deadline, nil, err)
		return netip.AddrPort{}, err
	}

	// The first candidate wins; Unmap so that IPv4-in-IPv6 addresses
	// dial as plain IPv4.
	addrPort := netip.AddrPortFrom(addrs[0].Unmap(), port)
	op.logResolveDone(host, port, t0, deadline, addrs, nil)
	return addrPort, nil
}

func (op *ResolveFunc) logResolveStart(host string, port uint16, t0 time.Time, deadline time.Time) {
	op.Logger.Info(
		"resolveStart",
		slog.Time("deadline", deadline),
		slog.String("hostname", host),
		slog.String("port", strconv.Itoa(int(port))),
		slog.Time("t", t0),
	)
}

func (op *ResolveFunc) logResolveDone(
	host string, port uint16, t0 time.Time, deadline time.Time, addrs []netip.Addr, err error) {
	op.Logger.Info(
		"resolveDone",
		slog.Time("deadline", deadline),
		slog.Any("addresses", addrs),
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.String("hostname", host),
		slog.String("port", strconv.Itoa(int(port))),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
	)
}
