package commands

import (
	"os"
	"sort"
	"strings"

	"github.com/fivetwenty-io/itsm/pkg/itsmclient"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewProvidersCommand creates the providers command
func NewProvidersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List registered adapters per capability",
		RunE: func(cmd *cobra.Command, args []string) error {
			providers := itsmclient.Providers()

			if handled, err := renderStructured(providers); handled {
				return err
			}

			capabilities := make([]string, 0, len(providers))
			for capability := range providers {
				capabilities = append(capabilities, capability)
			}

			sort.Strings(capabilities)

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Capability", "Providers")

			for _, capability := range capabilities {
				_ = table.Append(capability, strings.Join(providers[capability], ", "))
			}

			_ = table.Render()

			return nil
		},
	}
}
