// Package cmd defines the grove command line interface.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/grovekit/grove/internal/log"
)

var (
	flagVerbose bool
	flagJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "grove",
	Short: "Grove - document ingestion and retrieval-augmented answering",
	Long: `Grove ingests documents into searchable semantic chunks and answers
questions grounded in the most relevant chunks of your own corpus.

Run "grove serve" to start the HTTP API, or use "grove ingest" and
"grove query" directly from the terminal.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "log-json", false, "log in JSON format")
}

// newLogger builds the process logger from the persistent flags.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: flagJSON})
}
