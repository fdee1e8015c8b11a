package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// ScraperTLS builds a *tls.Config for the scraper backend client.
// Returns nil, nil if neither a client cert nor a CA is configured.
func (c *Config) ScraperTLS() (*tls.Config, error) {
	if c.ScraperTLSCert == "" && c.ScraperTLSKey == "" && c.ScraperTLSCACert == "" {
		return nil, nil
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if c.ScraperTLSCert != "" || c.ScraperTLSKey != "" {
		cert, err := tls.LoadX509KeyPair(c.ScraperTLSCert, c.ScraperTLSKey)
		if err != nil {
			return nil, fmt.Errorf("load scraper client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if c.ScraperTLSCACert != "" {
		caPEM, err := os.ReadFile(c.ScraperTLSCACert)
		if err != nil {
			return nil, fmt.Errorf("read scraper CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("failed to parse scraper CA cert")
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}
