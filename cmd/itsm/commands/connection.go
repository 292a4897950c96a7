package commands

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/itsm/pkg/itsm"
	"github.com/fivetwenty-io/itsm/pkg/itsmclient"
	"github.com/spf13/cobra"
)

// NewConnectionCommand creates the connection command group
func NewConnectionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connection",
		Short: "Verify connectivity and credentials",
	}

	cmd.AddCommand(newConnectionTestCommand())

	return cmd
}

func newConnectionTestCommand() *cobra.Command {
	var (
		provider   string
		capability string
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Connect to the provider and validate credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg := clientConfig()

			var connector itsm.Connector

			var err error

			switch capability {
			case itsm.CapabilityWiki:
				connector, err = itsmclient.NewWikiProvider(provider, cfg)
			case itsm.CapabilityIncidentManager:
				connector, err = itsmclient.NewIncidentManager(provider, cfg)
			default:
				connector, err = itsmclient.NewIssueTracker(provider, cfg)
			}

			if err != nil {
				return err
			}

			defer func() { _ = connector.Close() }()

			if err := connector.Connect(ctx); err != nil {
				return fmt.Errorf("connection test failed: %w", err)
			}

			fmt.Println("Connection OK")

			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "provider name (defaults to the capability's environment variable)")
	cmd.Flags().StringVar(&capability, "capability", itsm.CapabilityIssueTracker,
		"capability to test (issue_tracker, wiki, incidents)")

	return cmd
}
