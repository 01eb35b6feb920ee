package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <folder>",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.CreateFolder(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("created folder %s\n", args[0])
		return nil
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls <folder>",
	Short: "List a folder's entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		entries, err := c.ViewFolder(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("folder is empty")
			return nil
		}
		for _, e := range entries {
			fmt.Println(e)
		}
		return nil
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <file> <folder>",
	Short: "Move a file into a folder (owner only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Move(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("moved %s into %s\n", args[0], args[1])
		return nil
	},
}
