package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"newsrisk/internal/config"
	"newsrisk/internal/logger"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "newsrisk",
		Short: "Score news articles for anomalies and roll the risk up to brands",
		Long: `newsrisk - News anomaly fusion and brand risk scoring

Three independent detectors look at every article:
  • Location: does the headline location contradict the body?
  • Temporal: was the article published on a volume spike day?
  • Linguistic: is its sentiment/topic/length combination an outlier?

Their verdicts are fused into a NORMAL / REVIEW / RED FLAG label per article
and aggregated into a confidence-weighted risk score per organization.

Examples:
  # Score a corpus and rank organizations
  newsrisk score articles.csv --links links.csv

  # Evaluate the last run against its proxy labels
  newsrisk evaluate output/final_anomaly_results.csv

  # Browse archived runs
  newsrisk runs list`,
		SilenceUsage: true,
	}

	// Initialize configuration
	cobra.OnInitialize(initConfig)

	// Add persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.newsrisk.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: json or text")
	_ = viper.BindPFlag("app.debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	// Add subcommands
	rootCmd.AddCommand(NewScoreCmd())
	rootCmd.AddCommand(NewEvaluateCmd())
	rootCmd.AddCommand(NewLocationsCmd())
	rootCmd.AddCommand(NewRunsCmd())

	return rootCmd
}

// Execute runs the root command. Interrupts cancel the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("command failed", err)
		stop()
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logging := config.GetLogging()
	if err := logger.Configure(logging.Level, logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", "path", used)
	}
}
