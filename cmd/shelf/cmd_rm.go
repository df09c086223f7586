package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRmCmd() *cobra.Command {
	var message string
	var noCommit bool

	cmd := &cobra.Command{
		Use:   "rm <collection> <id>",
		Short: "Delete a stored object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if err := a.requireInitialized(); err != nil {
				return err
			}
			s, err := a.storeFor(args[0])
			if err != nil {
				return err
			}

			if err := s.Delete(cmd.Context(), args[1], !noCommit, message); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s/%s\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message (default: generated)")
	cmd.Flags().BoolVar(&noCommit, "no-commit", false, "delete the object without committing")

	return cmd
}
