package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scribefs/scribefs/pkg/sentence"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register your identity with the name node",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Register(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("registered as %s\n", c.Identity())
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create <file>",
	Short: "Create an empty file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Create(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("created %s\n", args[0])
		return nil
	},
}

var readCmd = &cobra.Command{
	Use:   "read <file>",
	Short: "Print a file's content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		body, err := c.Read(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(string(body))
		return nil
	},
}

var writeCmd = &cobra.Command{
	Use:   "write <file> <sentence-index> <word-index>:<word> [<word-index>:<word>...]",
	Short: "Insert words into one sentence",
	Long: `Insert words into one sentence of a file.

Each edit is "<word-index>:<word>": the word is inserted at that
position within the sentence, as the sentence stands after the previous
edit in the batch. The whole batch commits atomically under the
sentence lock.

Examples:
  # Append a first sentence to an empty file
  scribectl write notes.txt 0 0:Hello 1:world.

  # Insert a word into the second sentence
  scribectl write notes.txt 1 2:quickly`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		sentenceIndex, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad sentence index %q", args[1])
		}

		edits := make([]sentence.Edit, 0, len(args)-2)
		for _, arg := range args[2:] {
			idxStr, word, ok := strings.Cut(arg, ":")
			if !ok {
				return fmt.Errorf("bad edit %q: want <word-index>:<word>", arg)
			}
			wordIndex, err := strconv.Atoi(idxStr)
			if err != nil {
				return fmt.Errorf("bad word index in %q", arg)
			}
			edits = append(edits, sentence.Edit{WordIndex: wordIndex, Word: word})
		}

		if err := c.Write(cmd.Context(), args[0], sentenceIndex, edits); err != nil {
			return err
		}
		fmt.Printf("committed %d edit(s) to %s\n", len(edits), args[0])
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <file>",
	Short: "Delete a file (owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	},
}

var undoCmd = &cobra.Command{
	Use:   "undo <file>",
	Short: "Undo the last content change (a second undo redoes)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Undo(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("undo applied to %s\n", args[0])
		return nil
	},
}

var copyCmd = &cobra.Command{
	Use:   "copy <src> <dst>",
	Short: "Copy a file (the copy belongs to you)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Copy(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("copied %s to %s\n", args[0], args[1])
		return nil
	},
}
