package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scribefs/scribefs/internal/cli/output"
)

var viewOutputFormat string

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "List every file in the cluster",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(viewOutputFormat)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		files, err := c.View(cmd.Context())
		if err != nil {
			return err
		}

		if format != output.FormatTable {
			return output.Print(os.Stdout, format, files)
		}
		if len(files) == 0 {
			fmt.Println("no files")
			return nil
		}
		table := output.NewTableData("NAME", "OWNER", "WORDS", "CHARS")
		for _, f := range files {
			table.AddRow(f.Name, f.Owner, strconv.Itoa(f.Words), strconv.Itoa(f.Chars))
		}
		return output.PrintTable(os.Stdout, table)
	},
}

func init() {
	viewCmd.Flags().StringVarP(&viewOutputFormat, "output", "o", "table", "output format (table, json, yaml)")
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List registered users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		users, err := c.Users(cmd.Context())
		if err != nil {
			return err
		}
		for _, u := range users {
			fmt.Println(u)
		}
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show a file's metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		info, err := c.Info(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Print(info)
		return nil
	},
}

var fileinfoCmd = &cobra.Command{
	Use:   "fileinfo <file>",
	Short: "Show a file's extended metadata and access list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		info, err := c.FileInfo(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Print(info)
		return nil
	},
}

var streamCmd = &cobra.Command{
	Use:   "stream <file>",
	Short: "Stream a file word by word",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		words, err := c.Stream(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(words, " "))
		return nil
	},
}
