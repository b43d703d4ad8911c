package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/squishfs/squish/internal/cli/prompt"
	"github.com/squishfs/squish/pkg/archive"
	"github.com/squishfs/squish/pkg/errdefs"
)

var buildFlags struct {
	output      string
	excludes    []string
	excludeFile string
	wildcards   bool
	regex       bool
	compression string
	blockSize   string
	processors  int
	progress    bool
	force       bool
}

var buildCmd = &cobra.Command{
	Use:     "build <source>...",
	Aliases: []string{"b"},
	Short:   "Create a squashfs archive",
	Long: `Create a squashfs archive from one or more sources with mksquashfs.

Without -o, the output name is derived from the source name; when that
file already exists (or multiple sources are given), a dated
archive-YYYYMMDD-nn.sqsh name is used instead. A .sha256 checksum file
is written next to the archive; verify it later with "squish check".

Examples:
  # Pack a directory into photos.sqsh
  squish build photos/

  # Pick the output name and exclude caches
  squish build -o backup.sqsh -w -e "*.cache" home/`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := archive.BuildOptions{
			Sources:     args,
			Output:      buildFlags.output,
			Excludes:    buildFlags.excludes,
			ExcludeFile: buildFlags.excludeFile,
			Wildcards:   buildFlags.wildcards,
			Regex:       buildFlags.regex,
			Compression: buildFlags.compression,
			BlockSize:   buildFlags.blockSize,
			Processors:  buildFlags.processors,
		}
		if buildFlags.progress {
			opts.Progress = cmd.ErrOrStderr()
		}

		mgr := newArchiveManager()
		output, err := mgr.Build(cmd.Context(), opts)

		var exists *errdefs.OutputExistsError
		if errors.As(err, &exists) {
			if err := confirmOverwrite(exists.Path); err != nil {
				return err
			}
			if err := os.Remove(exists.Path); err != nil {
				return err
			}
			// Stale checksum would no longer match the new archive.
			_ = os.Remove(archive.ChecksumFile(exists.Path))
			opts.Output = exists.Path
			output, err = mgr.Build(cmd.Context(), opts)
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", output)
		return nil
	},
}

func confirmOverwrite(path string) error {
	if buildFlags.force {
		return nil
	}
	ok, err := prompt.Confirm(fmt.Sprintf("Output %s exists, overwrite", path), false)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &errdefs.OutputExistsError{Path: path}
		}
		return err
	}
	if !ok {
		return &errdefs.OutputExistsError{Path: path}
	}
	return nil
}

func init() {
	buildCmd.Flags().StringVarP(&buildFlags.output, "output", "o", "", "Output archive file (default: derived from source)")
	buildCmd.Flags().StringArrayVarP(&buildFlags.excludes, "exclude", "e", nil, "Exclude pattern (repeatable)")
	buildCmd.Flags().StringVarP(&buildFlags.excludeFile, "exclude-file", "f", "", "File with exclude patterns")
	buildCmd.Flags().BoolVarP(&buildFlags.wildcards, "wildcards", "w", false, "Enable wildcard matching for excludes")
	buildCmd.Flags().BoolVarP(&buildFlags.regex, "regex", "r", false, "Enable regex matching for excludes")
	buildCmd.Flags().StringVarP(&buildFlags.compression, "compression", "c", "", "Compression algorithm (default: zstd)")
	buildCmd.Flags().StringVarP(&buildFlags.blockSize, "block-size", "b", "", "Block size (default: 1M)")
	buildCmd.Flags().IntVarP(&buildFlags.processors, "processors", "p", 0, "Number of processors (default: auto)")
	buildCmd.Flags().BoolVarP(&buildFlags.progress, "progress", "P", false, "Show build progress")
	buildCmd.Flags().BoolVar(&buildFlags.force, "force", false, "Overwrite an existing output without asking")

	rootCmd.AddCommand(buildCmd)
}
