package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addAccessWrite bool

var addAccessCmd = &cobra.Command{
	Use:   "add-access <file> <user>",
	Short: "Grant a user access to your file",
	Long: `Grant a user access to a file you own.

By default the grant is read-only; --write grants read and write.

Examples:
  scribectl add-access notes.txt bob
  scribectl add-access notes.txt carol --write`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.AddAccess(cmd.Context(), args[0], args[1], addAccessWrite); err != nil {
			return err
		}
		fmt.Printf("granted %s access to %s\n", args[1], args[0])
		return nil
	},
}

func init() {
	addAccessCmd.Flags().BoolVar(&addAccessWrite, "write", false, "grant write access (default: read-only)")
}

var remAccessCmd = &cobra.Command{
	Use:   "rem-access <file> <user>",
	Short: "Revoke a user's access to your file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.RemAccess(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("revoked %s's access to %s\n", args[1], args[0])
		return nil
	},
}

var requestCmd = &cobra.Command{
	Use:   "request <file>",
	Short: "Ask a file's owner for access",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.RequestAccess(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("access request sent for %s\n", args[0])
		return nil
	},
}

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "List pending access requests for your files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		pending, err := c.ViewRequests(cmd.Context())
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Println("no pending access requests")
			return nil
		}
		for _, line := range pending {
			fmt.Println(line)
		}
		return nil
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve <file> <user>",
	Short: "Approve a pending access request (grants read access)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.ApproveRequest(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("approved %s's request for %s\n", args[1], args[0])
		return nil
	},
}

var denyCmd = &cobra.Command{
	Use:   "deny <file> <user>",
	Short: "Deny a pending access request",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.DenyRequest(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("denied %s's request for %s\n", args[1], args[0])
		return nil
	},
}
