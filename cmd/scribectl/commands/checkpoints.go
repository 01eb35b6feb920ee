package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint <file> <tag>",
	Short: "Snapshot a file's current content under a tag",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Checkpoint(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("checkpoint %s created for %s\n", args[1], args[0])
		return nil
	},
}

var viewCheckpointCmd = &cobra.Command{
	Use:   "view-checkpoint <file> <tag>",
	Short: "Print a checkpoint's content",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		body, err := c.ViewCheckpoint(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(string(body))
		return nil
	},
}

var revertCmd = &cobra.Command{
	Use:   "revert <file> <tag>",
	Short: "Restore a file's content from a checkpoint",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Revert(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("reverted %s to checkpoint %s\n", args[0], args[1])
		return nil
	},
}

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints <file>",
	Short: "List a file's checkpoint tags",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		tags, err := c.ListCheckpoints(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(tags) == 0 {
			fmt.Println("no checkpoints")
			return nil
		}
		for _, tag := range tags {
			fmt.Println(tag)
		}
		return nil
	},
}
