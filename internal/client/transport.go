package client

import (
	"net/http"
	"time"

	"resumectl/internal/auth"
	"resumectl/internal/config"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
)

// baseTransport clones the default transport with the configured TLS settings.
func baseTransport(cfg config.TLSConfig) (http.RoundTripper, error) {
	tlsConfig, err := buildTLSConfig(cfg)
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	return transport, nil
}

func tracingTransport(base http.RoundTripper) http.RoundTripper {
	return otelhttp.NewTransport(base)
}

// authTransport attaches the stored bearer token to every request.
func authTransport(tokens *auth.Store, leeway time.Duration, base http.RoundTripper) http.RoundTripper {
	return &oauth2.Transport{
		Source: auth.NewTokenSource(tokens, leeway),
		Base:   base,
	}
}
