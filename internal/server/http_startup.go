package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"resumectl/internal/config"
)

const shutdownTimeout = 30 * time.Second

// Start serves the gateway until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	httpServer := s.setupHTTPServer()

	if err := s.startKeyWatcher(); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", httpServer.Addr, err)
	}

	s.displayServerInfo(listener.Addr().String())

	return s.serveWithGracefulShutdown(ctx, httpServer, listener)
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer() *http.Server {
	return &http.Server{
		Addr:         net.JoinHostPort(s.Host, s.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}
}

// startKeyWatcher polls Vault for rotated gateway keys when configured
func (s *Server) startKeyWatcher() error {
	if s.AppConfig == nil {
		return nil
	}
	vaultCfg := s.AppConfig.Vault
	interval := s.AppConfig.Server.APIKeysRefresh
	if !vaultCfg.Enabled || vaultCfg.Secrets.GatewayKeys == "" || interval <= 0 {
		return nil
	}

	vc, err := config.NewVaultClient(vaultCfg, s.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Vault client: %w", err)
	}

	s.keyWatcher = NewVaultWatcher(vc, vaultCfg.Secrets.GatewayKeys, interval, s.reloadAPIKeys, s.Logger)
	return s.keyWatcher.Start()
}

// reloadAPIKeys swaps the accepted key set; failed fetches keep the old keys
func (s *Server) reloadAPIKeys(keys []string, err error) {
	if err != nil {
		s.Logger.Warn("Keeping current gateway API keys", "error", err.Error())
		return
	}
	s.APIKeys.Replace(keys)
}

// serveWithGracefulShutdown serves on listener and handles graceful shutdown
func (s *Server) serveWithGracefulShutdown(ctx context.Context, server *http.Server, listener net.Listener) error {
	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	go func() {
		s.Logger.Info("Starting HTTP server", "address", listener.Addr().String())
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		s.cleanup()
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown")
		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.Logger.Info("Shutting down HTTP server...")
	err := server.Shutdown(shutdownCtx)
	s.cleanup()
	if err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// cleanup releases the watcher and every open session
func (s *Server) cleanup() {
	if s.keyWatcher != nil {
		if err := s.keyWatcher.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop vault watcher")
		}
	}
	s.Sessions.Close()
}
