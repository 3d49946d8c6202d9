package client

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"resumectl/internal/config"
)

// buildTLSConfig creates the client TLS configuration for the API connection
func buildTLSConfig(cfg config.TLSConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tlsVersion(cfg.MinVersion),
		ServerName: cfg.ServerName,
	}
	if cfg.InsecureSkipVerify {
		tlsConfig.InsecureSkipVerify = true
	}

	switch cfg.Mode {
	case "", "system":
		return tlsConfig, nil
	case "custom", "mutual":
	default:
		return nil, fmt.Errorf("invalid TLS mode: %s (must be 'system', 'custom', or 'mutual')", cfg.Mode)
	}

	pool, err := loadCACertificatePool(cfg)
	if err != nil {
		return nil, err
	}
	if pool != nil {
		tlsConfig.RootCAs = pool
	}

	if cfg.Mode == "mutual" {
		cert, err := loadClientCertificate(cfg)
		if err != nil {
			return nil, err
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

func tlsVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

// loadCACertificatePool returns nil when no CA is configured so the system pool is used
func loadCACertificatePool(cfg config.TLSConfig) (*x509.CertPool, error) {
	var caCert []byte
	switch {
	case cfg.CAContent != "":
		caCert = []byte(cfg.CAContent)
	case cfg.CAFile != "":
		data, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		caCert = data
	default:
		return nil, nil
	}

	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(caCert); !ok {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}
	return pool, nil
}

// loadClientCertificate loads the client certificate from content or files
func loadClientCertificate(cfg config.TLSConfig) (tls.Certificate, error) {
	if cfg.CertContent != "" && cfg.KeyContent != "" {
		cert, err := tls.X509KeyPair([]byte(cfg.CertContent), []byte(cfg.KeyContent))
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to load client cert/key from content: %w", err)
		}
		return cert, nil
	}

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to load client cert/key from files: %w", err)
		}
		return cert, nil
	}

	return tls.Certificate{}, fmt.Errorf("client certificate and key are required for mutual TLS (provide either files or content)")
}
