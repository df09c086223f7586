package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/odvcencio/shelf/pkg/store"
	"github.com/odvcencio/shelf/pkg/yamlcodec"
)

func newPutCmd() *cobra.Command {
	var message string
	var noCommit bool

	cmd := &cobra.Command{
		Use:   "put <collection> [file]",
		Short: "Store a YAML object read from a file or stdin",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			if err := a.requireInitialized(); err != nil {
				return err
			}

			var data []byte
			if len(args) == 2 {
				data, err = os.ReadFile(args[1])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			var rec Record
			if err := yamlcodec.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("parse object: %w", err)
			}
			id := rec.ObjectID()
			if id == "" {
				return fmt.Errorf("object has no string \"id\" field")
			}

			s, err := a.storeFor(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			verb := "created"
			err = s.Create(ctx, rec, !noCommit, message)
			var taken *store.IDTakenError
			if errors.As(err, &taken) {
				verb = "updated"
				err = s.Update(ctx, id, rec, !noCommit, message)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s/%s\n", verb, args[0], id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message (default: generated)")
	cmd.Flags().BoolVar(&noCommit, "no-commit", false, "write the object without committing")

	return cmd
}
