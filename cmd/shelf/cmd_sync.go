package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/odvcencio/shelf/pkg/gitctl"
)

func newSyncCmd() *cobra.Command {
	var sshKey string
	var sshPassphrase string
	var watch bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the working directory with origin (pull then push)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			// The notifier is fixed at construction, so build a fresh
			// controller that reports each status on stdout.
			ctl, err := gitctl.New(gitctl.Options{
				WorkDir:     a.cfg.WorkDir,
				OriginURL:   a.cfg.Remote.Origin,
				UpstreamURL: a.cfg.Remote.Upstream,
				Notifier: gitctl.NotifierFunc(func(s gitctl.RemoteStatus) {
					fmt.Fprintln(cmd.OutOrStdout(), describeStatus(s))
				}),
			})
			if err != nil {
				return err
			}
			ctl.SetIdentity(a.cfg.Author.Name, a.cfg.Author.Email)
			if a.cfg.Remote.Username != "" {
				ctl.SetAuth(a.cfg.Remote.Username, os.Getenv("SHELF_PASSWORD"))
			}
			if sshKey != "" {
				if err := ctl.SetSSHKey(sshKey, sshPassphrase); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			if !watch {
				return ctl.Synchronize(ctx)
			}

			interval := time.Duration(a.cfg.SyncIntervalSeconds) * time.Second
			if interval <= 0 {
				interval = time.Minute
			}
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				if err := ctl.Synchronize(ctx); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "sync: %v\n", err)
				}
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().StringVar(&sshKey, "ssh-key", "", "path to an SSH private key for remote auth")
	cmd.Flags().StringVar(&sshPassphrase, "ssh-passphrase", "", "passphrase for --ssh-key")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep syncing on the configured interval until interrupted")

	return cmd
}

func describeStatus(s gitctl.RemoteStatus) string {
	switch {
	case s.HasLocalChanges:
		return "sync skipped: uncommitted local changes (commit or discard first)"
	case s.IsOffline:
		return "sync skipped: remote unreachable"
	case s.NeedsPassword:
		return "sync skipped: origin needs a password (set SHELF_PASSWORD)"
	case s.IsMisconfigured:
		return "sync failed: repository is misconfigured"
	case s.IsPulling:
		return "pulling from origin..."
	case s.IsPushing:
		return "pushing to origin..."
	case s.StatusRelativeToLocal == "diverged":
		return "sync stopped: local and origin histories diverged"
	case s.StatusRelativeToLocal == "updated":
		return "up to date with origin"
	default:
		return "sync in progress"
	}
}
