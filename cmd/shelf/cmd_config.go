package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/odvcencio/shelf/pkg/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the settings file",
	}
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSetCmd())
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the settings file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultPath()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Fprintf(cmd.OutOrStdout(), "no settings file at %s\n", path)
					return nil
				}
				return err
			}
			cmd.OutOrStdout().Write(data)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one setting and save the file",
		Long: `Set one setting and save the file.

Keys: workdir, remote.origin, remote.upstream, remote.username,
author.name, author.email, sync_interval_seconds`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultPath()
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			key, value := args[0], args[1]
			switch key {
			case "workdir":
				cfg.WorkDir = value
			case "remote.origin":
				cfg.Remote.Origin = value
			case "remote.upstream":
				cfg.Remote.Upstream = value
			case "remote.username":
				cfg.Remote.Username = value
			case "author.name":
				cfg.Author.Name = value
			case "author.email":
				cfg.Author.Email = value
			case "sync_interval_seconds":
				n, err := strconv.Atoi(value)
				if err != nil {
					return fmt.Errorf("sync_interval_seconds: %w", err)
				}
				cfg.SyncIntervalSeconds = n
			default:
				return fmt.Errorf("unknown setting %q", key)
			}

			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "set %s in %s\n", key, path)
			return nil
		},
	}
}
