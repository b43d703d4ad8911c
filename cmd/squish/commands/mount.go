package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/squishfs/squish/pkg/deps"
)

var mountCmd = &cobra.Command{
	Use:     "mount <archive> [mount-point]",
	Aliases: []string{"m"},
	Short:   "Mount a squashfs archive",
	Long: `Mount a squashfs archive with squashfuse.

Without a mount point, the archive is mounted under ./mounts/<name>,
where <name> is the archive filename with its extensions stripped.
Auto-created mount directories are removed again on unmount.

Examples:
  # Mount under ./mounts/data
  squish mount data.sqsh

  # Mount at an explicit directory
  squish mount data.sqsh /mnt/data`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := deps.RequirePlatform(); err != nil {
			return err
		}

		mountPoint := ""
		if len(args) == 2 {
			mountPoint = args[1]
		}

		rec, err := newMountManager().Mount(cmd.Context(), args[0], mountPoint)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Mounted %s at %s\n", rec.ArchivePath, rec.MountPoint)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mountCmd)
}
