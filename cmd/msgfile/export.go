package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-mbox"
	"github.com/spf13/cobra"

	"github.com/aligator/gomsg"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <file.msg> [more.msg ...]",
	Short: "Convert messages to .eml files or bundle them into one mbox",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch exportFormat {
		case "eml":
			return exportEML(cmd, args)
		case "mbox":
			return exportMbox(cmd, args)
		default:
			return fmt.Errorf("unknown format %q, use eml or mbox", exportFormat)
		}
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "eml", "Output format, eml or mbox")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Target directory for eml, target file for mbox")
	rootCmd.AddCommand(exportCmd)
}

// exportEML writes one .eml next to each input, or into the output
// directory when one is given.
func exportEML(cmd *cobra.Command, paths []string) error {
	for _, path := range paths {
		message, err := openMessage(path)
		if err != nil {
			return err
		}

		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".eml"
		target := filepath.Join(filepath.Dir(path), name)
		if exportOutput != "" {
			if err := os.MkdirAll(exportOutput, 0o755); err != nil {
				return err
			}
			target = filepath.Join(exportOutput, name)
		}

		file, err := os.Create(target)
		if err != nil {
			return err
		}
		if err := message.ComposeEML(file); err != nil {
			_ = file.Close()
			return fmt.Errorf("compose %s: %w", path, err)
		}
		if err := file.Close(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), target)
	}
	return nil
}

func exportMbox(cmd *cobra.Command, paths []string) error {
	target := exportOutput
	if target == "" {
		target = "messages.mbox"
	}
	file, err := os.Create(target)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := mbox.NewWriter(file)
	for _, path := range paths {
		message, err := openMessage(path)
		if err != nil {
			return err
		}
		messageWriter, err := writer.CreateMessage(mboxFrom(message), mboxDate(message))
		if err != nil {
			return fmt.Errorf("start mbox message for %s: %w", path, err)
		}
		if err := message.ComposeEML(messageWriter); err != nil {
			return fmt.Errorf("compose %s: %w", path, err)
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d messages)\n", target, len(paths))
	return nil
}

func mboxFrom(message *gomsg.Message) string {
	if message.Sender.Email != "" {
		return message.Sender.Email
	}
	return "MAILER-DAEMON"
}

func mboxDate(message *gomsg.Message) time.Time {
	if !message.SentAt.IsZero() {
		return message.SentAt
	}
	if !message.ReceivedAt.IsZero() {
		return message.ReceivedAt
	}
	return time.Now()
}
