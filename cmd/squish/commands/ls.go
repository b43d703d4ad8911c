package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:     "ls <archive>",
	Aliases: []string{"l"},
	Short:   "List contents of a squashfs archive",
	Long: `List the contents of a squashfs archive in long format,
as produced by unsquashfs -llc.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		return newArchiveManager().List(cmd.Context(), args[0], func(line string) {
			fmt.Fprintln(out, line)
		})
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
