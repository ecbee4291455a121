// SPDX-License-Identifier: GPL-3.0-or-later

package tcplog

import (
	"crypto/x509"
	"fmt"
	"os"
	"sync"
)

// systemTrust caches the system trust pool. Loading the pool walks the
// platform certificate paths, so we do it at most once per process no
// matter how many writers exist or how many reconnects occur. There is
// nothing to tear down: the pool is plain memory owned by the runtime.
var systemTrust struct {
	once sync.Once
	pool *x509.CertPool
	err  error
}

// systemTrustPool returns the lazily-initialized system trust pool.
func systemTrustPool() (*x509.CertPool, error) {
	systemTrust.once.Do(func() {
		systemTrust.pool, systemTrust.err = x509.SystemCertPool()
	})
	return systemTrust.pool, systemTrust.err
}

// loadTrustAnchors returns the trust pool to verify the collector
// certificate against: the single PEM file at certFile when configured,
// the system default paths otherwise. Failures are [StageTrustSetup]
// errors and fatal for the enclosing connection attempt.
func loadTrustAnchors(certFile string) (*x509.CertPool, error) {
	if certFile == "" {
		pool, err := systemTrustPool()
		if err != nil {
			return nil, newStageError(StageTrustSetup, err)
		}
		return pool, nil
	}
	pem, err := os.ReadFile(certFile)
	if err != nil {
		return nil, newStageError(StageTrustSetup, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, newStageError(StageTrustSetup,
			fmt.Errorf("no usable certificate in %s", certFile))
	}
	return pool, nil
}
