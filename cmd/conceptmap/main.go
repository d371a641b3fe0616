package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, Bad.Sprint("error: ")+err.Error())
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "conceptmap",
		Short: "conceptmap - interactive concept knowledge maps",
		Long: `conceptmap lays out a set of concepts and their relationships as a
force-directed graph you can pan, zoom, filter and explore. It runs in a
desktop window, in the terminal, or serves the map to browsers.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file (default ./conceptmap.yaml when present)")
	pf.StringP("data", "d", "", "concept file or directory")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")

	rootCmd.AddCommand(newViewCommand())
	rootCmd.AddCommand(newTUICommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newConfigCommand())
	return rootCmd
}
