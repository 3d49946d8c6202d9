package cli

import (
	"resumectl/internal/server"

	"github.com/spf13/cobra"
)

var serveFlags struct {
	host string
	port string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose analysis sessions over a local HTTP API",
	Long: `Start an HTTP gateway that hosts analysis sessions on behalf of scripts and
editor integrations. Each session is backed by the same workflow as
"resumectl session" and talks to the API with the stored token.

Available endpoints:
- POST   /sessions: Open a session and load resumes
- GET    /sessions/{id}: Session state
- POST   /sessions/{id}/resume: Select or clear the resume
- PUT    /sessions/{id}/job-description: Replace the draft
- POST   /sessions/{id}/analyze: Run the analysis
- POST   /sessions/{id}/save: Save the current result
- POST   /sessions/{id}/view: Load or leave a saved analysis
- DELETE /sessions/{id}/analyses/{analysisId}: Delete a saved analysis
- DELETE /sessions/{id}/resumes/{resumeId}: Delete a resume
- DELETE /sessions/{id}: Close the session
- GET    /health, /stats: Health and statistics`,
	Args: cobra.NoArgs,
	RunE: withEnv(runServe),
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.port, "port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.host, "host", "", "Host to bind to (default from config)")
}

func runServe(cmd *cobra.Command, args []string, e *env) error {
	if serveFlags.host != "" {
		e.cfg.Server.Host = serveFlags.host
	}
	if serveFlags.port != "" {
		e.cfg.Server.Port = serveFlags.port
	}

	ctx := cmd.Context()
	watcher := e.startTokenWatcher(ctx)
	defer stopTokenWatcher(watcher, e.logger)

	srv := server.NewServer(e.cfg, server.ServerConfigFrom(e.cfg, Version), e.newController, e.logger)
	srv.Middleware = e.om.HTTPMiddleware("resumectl.gateway")
	srv.Hits = e.metrics

	if addr := e.om.PrometheusAddr(); addr != "" {
		e.logger.Info("Prometheus metrics available", "addr", addr)
	}
	return srv.Start(ctx)
}
