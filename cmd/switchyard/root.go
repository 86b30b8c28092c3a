package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/railwayapp/switchyard/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "switchyard",
	Short: "Run multi-service applications locally",
	Long: `Switchyard loads an application manifest describing a set of services,
each either a source project to build or a container image to run, and
prepares them for a local run.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.switchyard.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "emit logs as JSON")

	cobra.CheckErr(viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level")))
	cobra.CheckErr(viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json")))
}

func initConfig() {
	used, err := config.Init(viper.GetViper(), cfgFile)
	cobra.CheckErr(err)
	if used != "" {
		fmt.Fprintln(os.Stderr, "Using config file:", used)
	}
}

func sourceLocation(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}
