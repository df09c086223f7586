package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Clone the configured origin into the working directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			if a.ctl.IsInitialized() {
				if a.ctl.IsUsingRemoteURLs(a.cfg.Remote.Origin, a.cfg.Remote.Upstream) && !force {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is already initialized\n", a.cfg.WorkDir)
					return nil
				}
				if !force {
					return fmt.Errorf("%s exists but tracks different remotes; re-run with --force to re-clone (local changes are lost)", a.cfg.WorkDir)
				}
			}

			if err := a.ctl.ForceInitialize(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cloned %s into %s\n", a.cfg.Remote.Origin, a.cfg.WorkDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "wipe the working directory and re-clone")

	return cmd
}
