package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCommitCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "commit <collection> <id>...",
		Short: "Record the pending changes of the given objects",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if message == "" {
				return fmt.Errorf("commit message is required (-m)")
			}

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

			if err := s.Commit(cmd.Context(), args[1:], message); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "committed %d object(s)\n", len(args)-1)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")

	return cmd
}
