package config

import "fmt"

// ValidateTLSConfig validates the TLS configuration used towards the API
func (c *Config) ValidateTLSConfig() error {
	tls := c.API.TLS

	if err := validateTLSMode(tls); err != nil {
		return err
	}

	return validateTLSVersion(tls)
}

// validateTLSMode validates the TLS mode and associated requirements
func validateTLSMode(tls TLSConfig) error {
	switch tls.Mode {
	case "system":
		return nil // Host trust store, nothing else to check
	case "custom":
		return validateCustomModeTLS(tls)
	case "mutual":
		return validateMutualModeTLS(tls)
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'system', 'custom', or 'mutual')", tls.Mode)
	}
}

// validateCustomModeTLS validates TLS configuration for a private CA
func validateCustomModeTLS(tls TLSConfig) error {
	if err := validateCARequired(tls); err != nil {
		return err
	}
	return validateCANoDuplicateSource(tls)
}

// validateMutualModeTLS validates TLS configuration for client certificates
func validateMutualModeTLS(tls TLSConfig) error {
	if err := validateCertAndKeyRequired(tls, "mutual mode"); err != nil {
		return err
	}

	if err := validateNoDuplicateCertSources(tls); err != nil {
		return err
	}

	// The CA is optional in mutual mode; the system pool is used when absent.
	return validateCANoDuplicateSource(tls)
}

// validateCertAndKeyRequired checks that both certificate and key are provided
func validateCertAndKeyRequired(tls TLSConfig, mode string) error {
	if (tls.CertFile == "" && tls.CertContent == "") || (tls.KeyFile == "" && tls.KeyContent == "") {
		return fmt.Errorf("TLS client certificate and key are required for %s (provide either files or content)", mode)
	}
	return nil
}

// validateCARequired checks that a CA certificate is provided
func validateCARequired(tls TLSConfig) error {
	if tls.CAFile == "" && tls.CAContent == "" {
		return fmt.Errorf("CA certificate is required for custom TLS mode (provide either caFile or caContent)")
	}
	return nil
}

// validateNoDuplicateCertSources ensures no duplicate sources for cert and key
func validateNoDuplicateCertSources(tls TLSConfig) error {
	if tls.CertFile != "" && tls.CertContent != "" {
		return fmt.Errorf("cannot specify both certFile and certContent - choose one")
	}
	if tls.KeyFile != "" && tls.KeyContent != "" {
		return fmt.Errorf("cannot specify both keyFile and keyContent - choose one")
	}
	return nil
}

// validateCANoDuplicateSource ensures no duplicate sources for CA
func validateCANoDuplicateSource(tls TLSConfig) error {
	if tls.CAFile != "" && tls.CAContent != "" {
		return fmt.Errorf("cannot specify both caFile and caContent - choose one")
	}
	return nil
}

// validateTLSVersion validates the TLS version configuration
func validateTLSVersion(tls TLSConfig) error {
	switch tls.MinVersion {
	case "", "1.2", "1.3":
		return nil // Valid versions (empty defaults to 1.2)
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", tls.MinVersion)
	}
}
