package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	envFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "sigrelay",
	Short: "sigrelay - trading signal enhancement relay",
	Long: `sigrelay receives trading alerts over a webhook, adjusts their confidence
and position size from a table of validated patterns, keeps a rolling
history with aggregate stats, and offers an optional fundamental overlay
built from market indicators and news sentiment.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
