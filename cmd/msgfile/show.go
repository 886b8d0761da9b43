package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aligator/gomsg"
)

var showCmd = &cobra.Command{
	Use:   "show <file.msg>",
	Short: "Print a summary of the message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message, err := openMessage(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Subject:  %s\n", message.Subject)
		fmt.Fprintf(out, "From:     %s\n", formatPerson(message.Sender))
		fmt.Fprintf(out, "To:       %s\n", formatRecipients(message.To(), message.DisplayTo))
		if line := formatRecipients(message.Cc(), message.DisplayCc); line != "" {
			fmt.Fprintf(out, "Cc:       %s\n", line)
		}
		if line := formatRecipients(message.Bcc(), message.DisplayBcc); line != "" {
			fmt.Fprintf(out, "Bcc:      %s\n", line)
		}
		if !message.SentAt.IsZero() {
			fmt.Fprintf(out, "Sent:     %s\n", message.SentAt.Format(time.RFC1123Z))
		}
		if !message.ReceivedAt.IsZero() {
			fmt.Fprintf(out, "Received: %s\n", message.ReceivedAt.Format(time.RFC1123Z))
		}
		for _, attachment := range message.Attachments {
			if attachment.MimeTag != "" {
				fmt.Fprintf(out, "Attached: %s (%s, %d bytes)\n", attachment.Name(), attachment.MimeTag, len(attachment.Data))
			} else {
				fmt.Fprintf(out, "Attached: %s (%d bytes)\n", attachment.Name(), len(attachment.Data))
			}
		}
		if message.Body != "" {
			fmt.Fprintf(out, "\n%s\n", message.Body)
		}
		return nil
	},
}

var jsonCmd = &cobra.Command{
	Use:   "json <file.msg>",
	Short: "Print the message as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		message, err := openMessage(args[0])
		if err != nil {
			return err
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(message)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(jsonCmd)
}

func formatPerson(person gomsg.Person) string {
	switch {
	case person.Name != "" && person.Email != "":
		return fmt.Sprintf("%s <%s>", person.Name, person.Email)
	case person.Email != "":
		return person.Email
	default:
		return person.Name
	}
}

// formatRecipients prefers the typed recipient table and falls back to the
// display string, which may name recipients the table does not carry.
func formatRecipients(recipients []gomsg.Recipient, display string) string {
	if len(recipients) == 0 {
		return display
	}
	parts := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		parts = append(parts, formatPerson(recipient.Person))
	}
	return strings.Join(parts, ", ")
}
