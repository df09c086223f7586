package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/odvcencio/shelf/pkg/archive"
)

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file.tar.zst> <dir>",
		Short: "Extract a snapshot into an empty directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := os.ReadDir(args[1])
			if err == nil && len(entries) > 0 {
				return fmt.Errorf("%s is not empty", args[1])
			}
			if err != nil && !os.IsNotExist(err) {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			if err := os.MkdirAll(args[1], 0o755); err != nil {
				return err
			}
			if err := archive.Extract(f, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored into %s\n", args[1])
			return nil
		},
	}
}
