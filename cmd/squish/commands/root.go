// Package commands implements the squish CLI commands.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/squishfs/squish/internal/logger"
	"github.com/squishfs/squish/pkg/archive"
	"github.com/squishfs/squish/pkg/config"
	"github.com/squishfs/squish/pkg/executor"
	"github.com/squishfs/squish/pkg/mount"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	cfg     *config.Config
	verbose bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "squish",
	Short: "SquashFS archive helper",
	Long: `squish wraps the squashfs toolchain for everyday archive work:
mounting archives with squashfuse, building them with mksquashfs,
extracting and listing contents, and verifying checksums.

Mounts are tracked across invocations, so any squish process can
unmount an archive mounted by another.

Use "squish [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if verbose {
			loaded.Verbose = true
			loaded.Logging.Level = "DEBUG"
		}
		cfg = loaded
		return logger.Init(cfg.Logging)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	// Hide the default completion command (we provide our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func newMountManager() *mount.Manager {
	return mount.NewManager(cfg, executor.New())
}

func newArchiveManager() *archive.Manager {
	return archive.NewManager(cfg, executor.New())
}
