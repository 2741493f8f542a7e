package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ingestion-gateway/internal/app"
	"ingestion-gateway/internal/config"
	"ingestion-gateway/internal/logger"
)

var (
	cfgFile      string
	outputFormat string
	credential   string
	logLevel     string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ingestctl",
	Short: "Move data between ClickHouse and CSV files",
	Long: `ingestctl runs the ingestion engine without the HTTP server.

It reads the same configuration as the server (config.yaml in ./configs or
the working directory, or --config) with environment overrides such as
STORE_HOST and TRANSFER_OUTPUT_DIR.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.Red("%v", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml or ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", string(OutputTable), "output format: table, json, yaml or csv")
	rootCmd.PersistentFlags().StringVar(&credential, "credential", "", "store credential, overrides store.password")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level written to stderr")
}

// openApp loads configuration and wires the engine. Callers close the app.
func openApp() (*app.App, error) {
	logger.SetupWriter(os.Stderr, logLevel, "console")

	cfg, err := config.LoadFrom(cfgFile)
	if err != nil {
		return nil, err
	}
	return app.New(cfg)
}

func outputter(cmd *cobra.Command) *Outputter {
	return NewOutputter(outputFormat, cmd.OutOrStdout())
}
