package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/relmark/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the annotator over HTTP",
	Long: `Serve exposes the annotator over HTTP:

  POST /execute    envelope in, envelope out (ERROR envelopes return 200)
  GET  /metadata   META envelope describing the service
  GET  /schema     JSON Schema for LIF documents
  GET  /healthz    liveness
  GET  /metrics    Prometheus metrics

Requests are rate limited per client address.

Example:
  relmark serve --addr :8080
  curl -d 'She swam to Paris.' localhost:8080/execute`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		srv := server.New(a.pipeline, a.service.Metadata(),
			server.WithRateLimit(a.cfg.Server.RequestsPerSecond, a.cfg.Server.Burst),
			server.WithMaxBodySize(a.cfg.Server.MaxBodyBytes),
			server.WithLogger(a.logger))
		return srv.ListenAndServe(cmd.Context(), a.cfg.Server.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default: server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}
