// Package cli implements the refscreener command line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"RefScreener/internal/app"
	"RefScreener/internal/config"
	"RefScreener/internal/logging"
)

var (
	cfgFile string
	verbose bool

	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "refscreener",
	Short: "Screen scholarly articles for retracted references",
	Long: `refscreener checks whether the references of a scholarly article have
been retracted, withdrawn, corrected, or flagged with an expression of
concern. Verdicts come from a bulk retraction dataset plus live provider
lookups, merged by severity.`,
	SilenceUsage: true,
}

// Execute runs the root command with signal-aware cancellation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $REFSCREENER_CONFIG, then ./refscreener.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(screenCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(exportCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("refscreener")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.refscreener")
	}

	viper.SetEnvPrefix("REFSCREENER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && cfgFile == "" {
		cfgFile = viper.ConfigFileUsed()
	}
}

func loadConfig() config.Config {
	cfg := config.Load(cfgFile)
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg
}

func buildApp(ctx context.Context) (*app.Application, error) {
	cfg := loadConfig()
	return app.New(ctx, cfg, logging.New(cfg.Logging.Level))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("refscreener " + version)
	},
}
