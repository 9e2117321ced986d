// Package tlsutil builds tls.Config values for the network outputs.
package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/akun1993/Open-Log-Stream-Analysis-sub001/errors"
)

// ClientConfig configures TLS for outgoing connections
type ClientConfig struct {
	CAFiles            []string `json:"ca_files,omitempty"`
	InsecureSkipVerify bool     `json:"insecure_skip_verify,omitempty"`
	MinVersion         string   `json:"min_version,omitempty"`
	// CertFile and KeyFile enable a client certificate for mTLS
	CertFile string `json:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty"`
}

// Enabled reports whether any setting departs from the default transport
func (c ClientConfig) Enabled() bool {
	return len(c.CAFiles) > 0 || c.InsecureSkipVerify || c.MinVersion != "" || c.CertFile != ""
}

// ServerConfig configures TLS for listeners
type ServerConfig struct {
	CertFile   string `json:"cert_file,omitempty"`
	KeyFile    string `json:"key_file,omitempty"`
	MinVersion string `json:"min_version,omitempty"`
	// ClientCAFiles enables client certificate verification
	ClientCAFiles     []string `json:"client_ca_files,omitempty"`
	RequireClientCert bool     `json:"require_client_cert,omitempty"`
}

// Enabled reports whether a certificate is configured
func (c ServerConfig) Enabled() bool { return c.CertFile != "" }

// LoadServerTLSConfig returns nil when cfg is not enabled
func LoadServerTLSConfig(cfg ServerConfig) (*tls.Config, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, errors.WrapFatal(err, "tlsutil", "LoadServerTLSConfig", "load certificate")
	}
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   parseTLSVersion(cfg.MinVersion),
	}

	if len(cfg.ClientCAFiles) > 0 {
		pool := x509.NewCertPool()
		if err := appendCAFiles(pool, cfg.ClientCAFiles); err != nil {
			return nil, errors.WrapFatal(err, "tlsutil", "LoadServerTLSConfig", "load client CAs")
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = tls.VerifyClientCertIfGiven
		if cfg.RequireClientCert {
			tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
		}
	}
	return tlsConfig, nil
}

// LoadClientTLSConfig starts from the system CA bundle; CAFiles are
// additional trusted CAs
func LoadClientTLSConfig(cfg ClientConfig) (*tls.Config, error) {
	rootCAs, err := x509.SystemCertPool()
	if err != nil {
		rootCAs = x509.NewCertPool()
	}
	if err := appendCAFiles(rootCAs, cfg.CAFiles); err != nil {
		return nil, errors.WrapFatal(err, "tlsutil", "LoadClientTLSConfig", "load CAs")
	}

	tlsConfig := &tls.Config{
		RootCAs:            rootCAs,
		MinVersion:         parseTLSVersion(cfg.MinVersion),
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // operator opt-in
	}

	if cfg.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, errors.WrapFatal(err, "tlsutil", "LoadClientTLSConfig", "load client certificate")
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}

func appendCAFiles(pool *x509.CertPool, files []string) error {
	for _, caFile := range files {
		caPEM, err := os.ReadFile(caFile)
		if err != nil {
			return fmt.Errorf("read CA file %s: %w", caFile, err)
		}
		if !pool.AppendCertsFromPEM(caPEM) {
			return fmt.Errorf("parse CA certificate from %s: %w", caFile, errors.ErrInvalidData)
		}
	}
	return nil
}

// parseTLSVersion returns tls.VersionTLS12 if version is empty or unknown
func parseTLSVersion(version string) uint16 {
	switch version {
	case "1.3":
		return tls.VersionTLS13
	default:
		return tls.VersionTLS12
	}
}
