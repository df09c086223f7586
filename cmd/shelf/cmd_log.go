package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "List local commits not yet pushed to origin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if err := a.requireInitialized(); err != nil {
				return err
			}

			commits, err := a.ctl.ListLocalCommits(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(commits) == 0 {
				fmt.Fprintln(out, "origin is up to date")
				return nil
			}
			for _, c := range commits {
				short := c.Hash
				if len(short) > 8 {
					short = short[:8]
				}
				fmt.Fprintf(out, "%s %s %s %s\n", short, c.Time.Format("2006-01-02 15:04"), c.Author, c.Message)
			}
			return nil
		},
	}
}
