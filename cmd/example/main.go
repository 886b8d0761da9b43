package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/aligator/gomsg"
	"github.com/aligator/gomsg/cfb"
)

// main is just an example main to play with gomsg.
func main() {
	argsWithoutProg := os.Args[1:]
	if len(argsWithoutProg) <= 0 {
		fmt.Println("Please provide a filename.")
		os.Exit(1)
	}

	msgFile, err := os.Open(argsWithoutProg[0])
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	defer msgFile.Close()

	fsys, err := cfb.New(msgFile)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	fmt.Println("Streams and storages inside the container:")
	afero.Walk(fsys, "", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			fmt.Println(err)
			return err
		}
		fmt.Println(path, info.IsDir(), info.Size())
		return nil
	})

	message, err := gomsg.Build(fsys)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Subject:", message.Subject)
	fmt.Println("From:", message.Sender.Name, message.Sender.Email)
	for _, recipient := range message.Recipients {
		fmt.Println("Recipient:", recipient.Type, recipient.Name, recipient.Email)
	}
	for _, attachment := range message.Attachments {
		fmt.Println("Attachment:", attachment.Name(), len(attachment.Data), "bytes")
	}
	for _, warning := range message.Warnings {
		fmt.Println("Warning:", warning)
	}

	if message.Body != "" {
		fmt.Println("\nBody:\n\n" + message.Body)
	}
}
