package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/squishfs/squish/pkg/deps"
)

var unmountCmd = &cobra.Command{
	Use:     "unmount <archive> [mount-point]",
	Aliases: []string{"um"},
	Short:   "Unmount a squashfs archive",
	Long: `Unmount a squashfs archive mounted by any squish invocation.

The mount point is taken from the tracking record unless given
explicitly. Auto-created mount directories are cleaned up after a
successful unmount; explicitly chosen directories are left in place.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := deps.RequirePlatform(); err != nil {
			return err
		}

		mountPoint := ""
		if len(args) == 2 {
			mountPoint = args[1]
		}

		if err := newMountManager().Unmount(cmd.Context(), args[0], mountPoint); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Unmounted %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(unmountCmd)
}
