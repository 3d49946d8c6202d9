package cli

import (
	"context"
	"fmt"
	"time"

	"resumectl/internal/auth"
	"resumectl/internal/client"
	"resumectl/internal/common"
	"resumectl/internal/config"
	"resumectl/internal/errors"
	"resumectl/internal/export"
	"resumectl/internal/observability"
	"resumectl/internal/session"

	"github.com/spf13/cobra"
)

var (
	_ session.Backend = (*client.Client)(nil)
	_ export.Source   = (*client.Client)(nil)
)

// env is what a command needs to talk to the API
type env struct {
	cfg     *config.Config
	logger  *errors.Logger
	om      *observability.ObservabilityManager
	metrics *observability.Metrics
	tokens  *auth.Store
	client  *client.Client
}

// newEnv wires observability, the credential store and the API client.
func newEnv(ctx context.Context) (*env, error) {
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	metrics := om.GetMetrics()

	tokens := tokenStore(cfg, logger)
	apiClient, err := client.New(cfg, tokens, logger, client.WithRecorder(metrics))
	if err != nil {
		shutdownObservability(om, logger)
		return nil, err
	}

	e := &env{
		cfg:     cfg,
		logger:  logger,
		om:      om,
		metrics: metrics,
		tokens:  tokens,
		client:  apiClient,
	}
	e.recordTokenExpiry(ctx)
	return e, nil
}

// tokenStore prefers a Vault-issued token held in memory over the token file
func tokenStore(cfg *config.Config, logger *errors.Logger) *auth.Store {
	if cfg.Auth.Token != "" {
		return auth.NewMemoryStore(cfg.Auth.Token)
	}
	return auth.NewStore(config.ExpandPath(cfg.Auth.TokenFile), logger)
}

func (e *env) close() {
	shutdownObservability(e.om, e.logger)
}

// newController builds a session controller over the API client
func (e *env) newController() *session.Controller {
	return session.NewWithBackend(e.client,
		session.WithLogger(e.logger),
		session.WithRecorder(e.metrics),
		session.WithRefreshTimeout(e.cfg.API.Timeout),
	)
}

// recordTokenExpiry publishes how long the current token has left
func (e *env) recordTokenExpiry(ctx context.Context) {
	token := e.tokens.Token()
	if token == "" {
		return
	}
	claims, err := auth.ParseClaims(token)
	if err != nil {
		e.logger.Debug("Stored token is not a JWT", "error", err.Error())
		return
	}
	if !claims.ExpiresAt.IsZero() {
		e.metrics.RecordTokenExpiry(ctx, claims.ExpiresIn(time.Now()))
	}
}

// startTokenWatcher reloads the token file when another process logs in or
// out. It returns nil when watching is off or the store is memory-backed.
func (e *env) startTokenWatcher(ctx context.Context) *auth.Watcher {
	if !e.cfg.Auth.Watch || e.tokens.Path() == "" {
		return nil
	}

	watcher, err := auth.NewWatcher(e.tokens, e.cfg.Auth.DebounceDelay, func(changed bool) {
		e.metrics.RecordTokenReload(ctx, changed)
		if changed {
			e.recordTokenExpiry(ctx)
		}
	}, e.logger)
	if err != nil {
		e.logger.LogError(err, "Token watcher unavailable")
		return nil
	}
	if err := watcher.Start(); err != nil {
		e.logger.LogError(err, "Token watcher failed to start")
		return nil
	}
	return watcher
}

func stopTokenWatcher(w *auth.Watcher, logger *errors.Logger) {
	if w == nil {
		return
	}
	if err := w.Stop(); err != nil {
		logger.LogError(err, "Failed to stop token watcher")
	}
}

func shutdownObservability(om *observability.ObservabilityManager, logger *errors.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := om.Shutdown(ctx); err != nil {
		logger.LogError(err, "Failed to shutdown observability")
	}
}

// withEnv adapts a command body that needs the API client into a RunE
func withEnv(run func(cmd *cobra.Command, args []string, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.close()
		return run(cmd, args, e)
	}
}

// addOutputFlags registers -o/--output and --format on cmd
func addOutputFlags(cmd *cobra.Command, cc *common.CommandConfig) {
	cmd.Flags().StringVarP(&cc.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&cc.OutputFormat, "format", "", "Output format: json, text, or markdown")

	// Add completion for format flag
	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

// outputConfig fills in the configured default format and validates it
func outputConfig(cmd *cobra.Command, cc common.CommandConfig) (common.CommandConfig, error) {
	cfg := getConfigFromContext(cmd.Context())
	if cc.OutputFormat == "" {
		cc.OutputFormat = cfg.App.DefaultFormat
	}
	cc.SupportedFormats = cfg.App.SupportedFormats
	if err := common.ValidateOutputFormat(cc.OutputFormat, cc.SupportedFormats); err != nil {
		return cc, err
	}
	return cc, nil
}

// run executes operation and prints its result through the formatter registry
func run[Output any](cmd *cobra.Command, e *env, cc common.CommandConfig, name string, operation common.OperationFunc[Output]) error {
	cc, err := outputConfig(cmd, cc)
	if err != nil {
		return err
	}
	return common.RunCommand(cmd.Context(), e.logger, cc, name, operation)
}
