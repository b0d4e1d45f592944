package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/vnykmshr/tempo/internal/observability"
	"github.com/vnykmshr/tempo/internal/server"
)

var (
	serverPort int
	serverHost string
	redisAddr  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server exposing per-key controls:

  POST /v1/debounce/{key}   debounce the request body under key
  POST /v1/throttle/{key}   throttle the request body under key
  GET  /v1/keys             list live keys
  GET  /healthz             health check
  GET  /metrics             Prometheus metrics

When redis.addr is set, throttling is coordinated across every instance
sharing that Redis. SIGINT or SIGTERM shuts the server down gracefully.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		level := appConfig.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err := observability.NewLogger(level, appConfig.Logging.Development)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		srv, err := server.New(appConfig, server.Options{
			Logger:  logger,
			Version: versionInfo.Version,
		})
		if err != nil {
			return err
		}

		logger.Info("Initializing server",
			zap.String("version", versionInfo.Version),
			zap.String("addr", appConfig.Server.Addr()),
			zap.String("redis", appConfig.Redis.Addr),
			zap.Duration("debounce_delay", appConfig.Control.DebounceDelay),
			zap.Duration("throttle_interval", appConfig.Control.ThrottleInterval),
			zap.String("throttle_policy", appConfig.Control.ThrottlePolicy))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "HTTP server port")
	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "HTTP server host")
	serveCmd.Flags().StringVar(&redisAddr, "redis-addr", "", "Redis address for cross-instance throttling")

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("redis.addr", serveCmd.Flags().Lookup("redis-addr"))
}
