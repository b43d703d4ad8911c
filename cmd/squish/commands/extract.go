package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/squishfs/squish/pkg/archive"
)

var extractFlags struct {
	output    string
	xattrMode string
	progress  bool
}

var extractCmd = &cobra.Command{
	Use:     "extract <archive>",
	Aliases: []string{"ex"},
	Short:   "Extract a squashfs archive",
	Long: `Extract the contents of a squashfs archive with unsquashfs.

Without -o, contents land in ./squashfs-root. Extended-attribute
handling follows the configured xattr mode; override it per run with
--xattr-mode all, user-only, or none.

Examples:
  # Extract into ./squashfs-root
  squish extract data.sqsh

  # Extract into a directory, skipping xattrs
  squish extract -o restored --xattr-mode none data.sqsh`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := archive.ExtractOptions{
			Archive:   args[0],
			OutputDir: extractFlags.output,
			XattrMode: extractFlags.xattrMode,
		}
		if extractFlags.progress {
			opts.Progress = cmd.ErrOrStderr()
		}

		dest, err := newArchiveManager().Extract(cmd.Context(), opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Extracted %s to %s\n", args[0], dest)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractFlags.output, "output", "o", "", "Output directory (default: ./squashfs-root)")
	extractCmd.Flags().StringVar(&extractFlags.xattrMode, "xattr-mode", "", "Extended attribute handling: all, user-only, or none")
	extractCmd.Flags().BoolVarP(&extractFlags.progress, "progress", "P", false, "Show extraction progress")

	rootCmd.AddCommand(extractCmd)
}
