// Package capath resolves the TLS client configuration used for outbound
// HTTP steps. Grounded on original_source/agent.py's certifi/OS-bundle CA
// probing ladder, reduced here to a single optional extra-CA-file config
// knob since crypto/x509 already loads the OS trust store by default.
package capath

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// Resolve builds a *tls.Config for outbound HTTP steps. When caFile is
// empty, it returns nil — callers should fall back to the zero-value
// tls.Config, which trusts the OS certificate store. When caFile is set,
// its PEM certificates are appended to a copy of the system pool so the
// extra CA augments rather than replaces the OS trust store.
func Resolve(caFile string) (*tls.Config, error) {
	if caFile == "" {
		return nil, nil
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}

	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read ca file %s: %w", caFile, err)
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in ca file %s", caFile)
	}

	return &tls.Config{RootCAs: pool}, nil
}
