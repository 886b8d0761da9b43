package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/aligator/gomsg"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:          "msgfile",
	Short:        "Inspect and convert Outlook .msg files",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		slog.SetDefault(slog.New(handler))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log what happens under the hood")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openMessage decodes the message at path and logs its warnings, so every
// subcommand surfaces partially read streams the same way.
func openMessage(path string) (*gomsg.Message, error) {
	message, err := gomsg.OpenFile(afero.NewOsFs(), path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	for _, warning := range message.Warnings {
		slog.Warn("incomplete stream", "file", path, "detail", warning)
	}
	return message, nil
}
