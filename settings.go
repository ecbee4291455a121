// SPDX-License-Identifier: GPL-3.0-or-later

package tcplog

import (
	"fmt"
	"strconv"
)

// Settings describes the remote collector endpoint and the connection
// policy. Settings are immutable once a connection attempt begins:
// [*Writer.Init] merges overrides exactly once, before the first attempt.
type Settings struct {
	// Host is the collector hostname or address literal.
	Host string

	// Port is the collector TCP port (1-65535).
	Port uint16

	// Retry enables transparent reconnection: dial and send failures
	// do not surface to the caller; instead the writer reattempts the
	// whole connection sequence inline on the next operation.
	Retry bool

	// TLS enables TLS on the established connection. TLS failures are
	// never downgraded to plaintext.
	TLS bool

	// CertFile is the path of the PEM trust-anchor file used to verify
	// the collector certificate. Empty means the system trust store.
	CertFile string

	// Key is the pre-shared authentication key. When non-empty, the
	// writer sends key+"\n" as the first bytes on a fresh transport,
	// before any record.
	Key string
}

// Override keys understood by [Settings.MergeOverrides]. These mirror the
// string-keyed configuration surface of the host application.
const (
	overrideHost  = "host"
	overridePort  = "tcpport"
	overrideRetry = "retry"
	overrideTLS   = "tls"
	overrideCert  = "cert"
	overrideKey   = "key"
)

// MergeOverrides returns a copy of the settings with non-empty override
// values applied. Empty values leave the corresponding default untouched.
//
// Boolean keys ("retry", "tls") follow the host convention: the literal
// "T" means true and anything else means false. The "tcpport" value is
// decimal text; text that does not parse to a port in 1-65535 is an error.
func (s Settings) MergeOverrides(overrides map[string]string) (Settings, error) {
	merged := s
	if v := overrides[overrideHost]; v != "" {
		merged.Host = v
	}
	if v := overrides[overridePort]; v != "" {
		port, err := strconv.ParseUint(v, 10, 16)
		if err != nil || port == 0 {
			return s, fmt.Errorf("tcplog: invalid tcpport override %q", v)
		}
		merged.Port = uint16(port)
	}
	if v := overrides[overrideRetry]; v != "" {
		merged.Retry = v == "T"
	}
	if v := overrides[overrideTLS]; v != "" {
		merged.TLS = v == "T"
	}
	if v := overrides[overrideCert]; v != "" {
		merged.CertFile = v
	}
	if v := overrides[overrideKey]; v != "" {
		merged.Key = v
	}
	return merged, nil
}
