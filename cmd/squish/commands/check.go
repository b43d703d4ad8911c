package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:     "check <file>",
	Aliases: []string{"c"},
	Short:   "Verify a file against its .sha256 checksum",
	Long: `Verify a file against the .sha256 companion written by "squish build".

The checksum file must sit next to the target and contain an entry for
it; verification runs through sha256sum -c.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newArchiveManager().VerifyChecksum(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Checksum OK: %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
