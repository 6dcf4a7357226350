package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"executorjenkins/internal/config"
	"executorjenkins/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "executor-jenkins",
	Short:         "Run builds on a Jenkins server",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		configData = *cfg

		logger.Init(config.GetLogLevel())
		return nil
	},
}

var (
	configPath string
	configData config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
