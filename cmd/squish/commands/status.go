package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/squishfs/squish/internal/cli/output"
	"github.com/squishfs/squish/pkg/mount"
)

var statusFormat string

// mountStatus is one tracked mount for display.
type mountStatus struct {
	Archive     string `json:"archive" yaml:"archive"`
	MountPoint  string `json:"mount_point" yaml:"mount_point"`
	State       string `json:"state" yaml:"state"`
	AutoCreated bool   `json:"auto_created" yaml:"auto_created"`
	CreatedAt   string `json:"created_at" yaml:"created_at"`
}

type mountStatusList []mountStatus

func (l mountStatusList) Headers() []string {
	return []string{"ARCHIVE", "MOUNT POINT", "STATE", "CREATED"}
}

func (l mountStatusList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, s := range l {
		rows = append(rows, []string{s.Archive, s.MountPoint, s.State, s.CreatedAt})
	}
	return rows
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tracked mounts",
	Long: `Display every mount tracked by squish, across all invocations.

A record whose mount point no longer looks mounted is reported as
stale; the next mount or unmount of that archive clears it.

Examples:
  # Table of tracked mounts
  squish status

  # Output as JSON
  squish status -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(statusFormat)
		if err != nil {
			return err
		}

		records := newMountManager().Records()
		statuses := make(mountStatusList, 0, len(records))
		for _, rec := range records {
			state := "mounted"
			if !mount.LooksMounted(rec.MountPoint) {
				state = "stale"
			}
			statuses = append(statuses, mountStatus{
				Archive:     rec.ArchivePath,
				MountPoint:  rec.MountPoint,
				State:       state,
				AutoCreated: rec.AutoCreated,
				CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
			})
		}

		if len(statuses) == 0 && format == output.FormatTable {
			fmt.Fprintln(cmd.OutOrStdout(), "No tracked mounts")
			return nil
		}
		return output.Print(cmd.OutOrStdout(), format, statuses)
	},
}

func init() {
	statusCmd.Flags().StringVarP(&statusFormat, "output", "o", "table", "Output format (table|json|yaml)")

	rootCmd.AddCommand(statusCmd)
}
