package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var extractDir string

var extractCmd = &cobra.Command{
	Use:   "extract <file.msg>",
	Short: "Write all attachments to disk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message, err := openMessage(args[0])
		if err != nil {
			return err
		}
		if len(message.Attachments) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No attachments.")
			return nil
		}
		if err := os.MkdirAll(extractDir, 0o755); err != nil {
			return err
		}

		seen := map[string]bool{}
		for index, attachment := range message.Attachments {
			if len(attachment.Data) == 0 {
				// Embedded messages carry no payload stream.
				slog.Warn("attachment has no payload, skipping", "name", attachment.Name())
				continue
			}
			name := filepath.Base(attachment.Name())
			if seen[name] {
				name = fmt.Sprintf("%d_%s", index, name)
			}
			seen[name] = true

			target := filepath.Join(extractDir, name)
			if err := os.WriteFile(target, attachment.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes)\n", target, len(attachment.Data))
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractDir, "output", "o", ".", "Directory the attachments are written to")
	rootCmd.AddCommand(extractCmd)
}
