package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	// glog registers its flags on the default FlagSet; parse it empty so
	// logging is configured before any command runs.
	flag.CommandLine.Parse(nil)

	root := &cobra.Command{
		Use:   "shelf",
		Short: "Versioned YAML object store backed by git",
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newPutCmd())
	root.AddCommand(newGetCmd())
	root.AddCommand(newRmCmd())
	root.AddCommand(newLsCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newCommitCmd())
	root.AddCommand(newDiscardCmd())
	root.AddCommand(newLogCmd())
	root.AddCommand(newSyncCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newBackupCmd())
	root.AddCommand(newRestoreCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("shelf 0.1.0-dev")
		},
	}
}
