package main

import (
	"github.com/spf13/cobra"

	"github.com/odvcencio/shelf/pkg/yamlcodec"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <collection> <id>",
		Short: "Print a stored object as YAML",
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

			rec, err := s.Read(args[1])
			if err != nil {
				return err
			}
			out, err := yamlcodec.Marshal(rec)
			if err != nil {
				return err
			}
			cmd.OutOrStdout().Write(out)
			return nil
		},
	}
}
