package main

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/spf13/cobra"

	"github.com/aligator/gomsg"
)

var (
	uploadHost     string
	uploadPort     int
	uploadUser     string
	uploadPassword string
	uploadMailbox  string
	uploadNoTLS    bool
	uploadInsecure bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file.msg> [more.msg ...]",
	Short: "Append messages to an IMAP mailbox",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if uploadHost == "" {
			return fmt.Errorf("--host is required")
		}

		client, err := dialIMAP()
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Logout().Wait(); err != nil {
				slog.Warn("imap logout failed", "err", err)
			}
		}()

		if err := ensureMailbox(client); err != nil {
			return err
		}

		for _, path := range args {
			message, err := openMessage(path)
			if err != nil {
				return err
			}
			if err := appendMessage(client, message); err != nil {
				return fmt.Errorf("upload %s: %w", path, err)
			}
			slog.Info("uploaded", "file", path, "mailbox", uploadMailbox)
		}
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadHost, "host", "", "IMAP server host")
	uploadCmd.Flags().IntVar(&uploadPort, "port", 993, "IMAP server port")
	uploadCmd.Flags().StringVarP(&uploadUser, "username", "u", "", "IMAP login name")
	uploadCmd.Flags().StringVarP(&uploadPassword, "password", "p", "", "IMAP password")
	uploadCmd.Flags().StringVar(&uploadMailbox, "mailbox", "INBOX", "Target mailbox")
	uploadCmd.Flags().BoolVar(&uploadNoTLS, "no-tls", false, "Connect without TLS, for local development servers")
	uploadCmd.Flags().BoolVar(&uploadInsecure, "insecure-skip-verify", false, "Skip TLS certificate verification")
	rootCmd.AddCommand(uploadCmd)
}

func dialIMAP() (*imapclient.Client, error) {
	address := net.JoinHostPort(uploadHost, strconv.Itoa(uploadPort))

	var (
		client *imapclient.Client
		err    error
	)
	if uploadNoTLS {
		client, err = imapclient.DialInsecure(address, nil)
	} else {
		options := &imapclient.Options{
			TLSConfig: &tls.Config{
				ServerName:         uploadHost,
				InsecureSkipVerify: uploadInsecure,
			},
		}
		client, err = imapclient.DialTLS(address, options)
	}
	if err != nil {
		return nil, fmt.Errorf("dial imap %s: %w", address, err)
	}

	if err := client.Login(uploadUser, uploadPassword).Wait(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("imap login failed: %w", err)
	}
	return client, nil
}

func ensureMailbox(client *imapclient.Client) error {
	if err := client.Create(uploadMailbox, nil).Wait(); err != nil {
		var respErr *imapv2.Error
		if errors.As(err, &respErr) && respErr.Code == imapv2.ResponseCodeAlreadyExists {
			return nil
		}
		return fmt.Errorf("ensure mailbox %s: %w", uploadMailbox, err)
	}
	slog.Info("mailbox created", "mailbox", uploadMailbox)
	return nil
}

func appendMessage(client *imapclient.Client, message *gomsg.Message) error {
	var buffer bytes.Buffer
	if err := message.ComposeEML(&buffer); err != nil {
		return err
	}

	var opts *imapv2.AppendOptions
	date := message.SentAt
	if date.IsZero() {
		date = message.ReceivedAt
	}
	if !date.IsZero() {
		opts = &imapv2.AppendOptions{Time: date}
	}

	cmd := client.Append(uploadMailbox, int64(buffer.Len()), opts)
	if _, err := cmd.Write(buffer.Bytes()); err != nil {
		_ = cmd.Close()
		return fmt.Errorf("append write: %w", err)
	}
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("append close: %w", err)
	}
	if _, err := cmd.Wait(); err != nil {
		return fmt.Errorf("append wait: %w", err)
	}
	return nil
}
