package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/aligator/gomsg/cfb"
)

var treeCmd = &cobra.Command{
	Use:   "tree <file>",
	Short: "List the raw streams and storages of the container",
	Long: `List the raw streams and storages of the container.

This works on any compound file, not only on mail. Property streams show up
under their MAPI names, for example __substg1.0_0037001F for the subject.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer file.Close()

		fsys, err := cfb.New(file)
		if err != nil {
			return fmt.Errorf("open container: %w", err)
		}

		out := cmd.OutOrStdout()
		return afero.Walk(fsys, "", func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if path == "" {
				// The root storage has no name of its own.
				return nil
			}
			if info.IsDir() {
				fmt.Fprintf(out, "%s/\n", path)
				return nil
			}
			fmt.Fprintf(out, "%s (%d bytes)\n", path, info.Size())
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(treeCmd)
}
