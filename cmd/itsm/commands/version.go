package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command
func NewVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := map[string]string{
				"version":    version,
				"commit":     commit,
				"built":      date,
				"go_version": runtime.Version(),
				"platform":   runtime.GOOS + "/" + runtime.GOARCH,
			}

			if handled, err := renderStructured(info); handled {
				return err
			}

			fmt.Printf("itsm version %s (commit: %s, built: %s)\n", version, commit, date)
			fmt.Printf("go version: %s, platform: %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)

			return nil
		},
	}
}
