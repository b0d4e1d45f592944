// Package cmd implements the tempo command line.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/vnykmshr/tempo/internal/config"
	"github.com/vnykmshr/tempo/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// appConfig is loaded before any subcommand runs.
	appConfig *config.Config

	// cliLogger is the console logger for short-lived commands.
	cliLogger = zap.NewNop()

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tempo",
	Short: "Debounce and throttle calls, locally or across instances",
	Long: `tempo wraps function calls in debounce and throttle controls.

Use "simulate" to replay a recorded call trace through a control, or
"serve" to expose per-key controls over HTTP.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; defaults and TEMPO_* environment variables apply)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig(cmd *cobra.Command, args []string) error {
	cliLogger = observability.NewCLILogger(verbose)

	cfg, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		return err
	}
	appConfig = cfg

	cliLogger.Debug("Configuration loaded",
		zap.String("file", viper.ConfigFileUsed()),
		zap.String("addr", cfg.Server.Addr()),
		zap.Bool("redis", cfg.Redis.Enabled()))
	return nil
}
