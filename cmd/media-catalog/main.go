package main

import (
	"os"

	"media-catalog/internal/logging"
	"media-catalog/internal/memory"
	"media-catalog/internal/startup"

	"github.com/spf13/cobra"
)

var (
	configFile string
	envFile    string
	logLevel   string

	cfg *startup.Config
)

var rootCmd = &cobra.Command{
	Use:   "media-catalog",
	Short: "Catalog a media tree as JSON",
	Long: `media-catalog scans a media directory, fingerprints every allowed file
and publishes a JSON catalog that the bundled HTTP API can query.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"Config file (any format viper reads)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"Environment file loaded before configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides LOG_LEVEL)")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations["skipConfig"] == "true" {
		return nil
	}

	if err := startup.LoadDotEnv(envFile); err != nil {
		return err
	}

	v, err := startup.NewViper(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		v.Set(startup.KeyLogLevel, logLevel)
	}

	if cfg, err = startup.LoadConfig(v); err != nil {
		return err
	}
	memory.Apply(cfg.MemoryLimit, cfg.MemoryRatio)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}
}
