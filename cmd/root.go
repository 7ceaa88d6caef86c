package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Version string // set in main

func mustFlagBool(cmd *cobra.Command, name string, required bool) bool {
	val, err := cmd.Flags().GetBool(name)
	if required && err != nil {
		fmt.Printf("error: %s\n", err)
		os.Exit(1)
	}
	return val
}

func mustFlagString(cmd *cobra.Command, name string, required bool) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		fmt.Printf("error: %s\n", err)
		os.Exit(1)
	}
	if val == "" {
		val = viper.GetString(name)
	}
	if required && val == "" {
		fmt.Printf("error: required flag --%s missing\n", name)
		os.Exit(1)
	}
	return val
}

func mustFlagInt(cmd *cobra.Command, name string, required bool) int {
	val, err := cmd.Flags().GetInt(name)
	if required && err != nil {
		fmt.Printf("error: %s\n", err)
		os.Exit(1)
	}
	return val
}

func newLogger(cmd *cobra.Command) logger.Logger {
	if mustFlagBool(cmd, "verbose", false) {
		return logger.NewConsoleLogger(logger.LevelTrace)
	}
	if mustFlagBool(cmd, "silent", false) {
		return logger.NewConsoleLogger(logger.LevelError)
	}
	return logger.NewConsoleLogger(logger.LevelInfo)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "draftforge",
	Short: "Schema driven draft editing service",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	viper.SetEnvPrefix("DRAFTFORGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().Bool("verbose", false, "turn on verbose logging")
	rootCmd.PersistentFlags().Bool("silent", false, "turn off all logging")
	rootCmd.PersistentFlags().String("api-url", "", "url to the remote draft backend")
	rootCmd.PersistentFlags().String("api-key", os.Getenv("DRAFTFORGE_API_KEY"), "bearer token for the remote draft backend")
	rootCmd.PersistentFlags().String("data-dir", ".", "directory for the offline database")
}
