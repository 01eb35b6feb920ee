// Package commands implements the scribectl CLI, the user-facing client
// for a ScribeFS cluster.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scribefs/scribefs/pkg/client"
)

var (
	// Version is injected at build time.
	Version = "dev"

	// Global flags.
	nameNodeAddr string
	identity     string
)

var rootCmd = &cobra.Command{
	Use:   "scribectl",
	Short: "scribectl - ScribeFS command-line client",
	Long: `scribectl talks to a ScribeFS cluster: create and edit files at
word level, manage access, take checkpoints, and organize folders.

The identity flag names the user every operation runs as; it defaults
to $USER. Ownership and access checks are enforced against it.

Use "scribectl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&nameNodeAddr, "namenode", "localhost:5000", "name node address")
	rootCmd.PersistentFlags().StringVarP(&identity, "user", "u", "", "identity to operate as (default: $USER)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(fileinfoCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(copyCmd)
	rootCmd.AddCommand(addAccessCmd)
	rootCmd.AddCommand(remAccessCmd)
	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(requestsCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(denyCmd)
	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(checkpointCmd)
	rootCmd.AddCommand(viewCheckpointCmd)
	rootCmd.AddCommand(revertCmd)
	rootCmd.AddCommand(checkpointsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("scribectl %s\n", Version)
	},
}

// newClient builds the client for the flags in effect.
func newClient() (*client.Client, error) {
	user := identity
	if user == "" {
		user = os.Getenv("USER")
	}
	if user == "" {
		return nil, fmt.Errorf("no identity: pass --user or set $USER")
	}
	return client.New(user, nameNodeAddr), nil
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}
