package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard <collection> <id>...",
		Short: "Throw away the pending changes of the given objects",
		Args:  cobra.MinimumNArgs(2),
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

			if err := s.Discard(cmd.Context(), args[1:]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "discarded changes to %d object(s)\n", len(args)-1)
			return nil
		},
	}
}
