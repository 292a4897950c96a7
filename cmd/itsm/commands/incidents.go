package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/fivetwenty-io/itsm/pkg/itsm"
	"github.com/fivetwenty-io/itsm/pkg/itsmclient"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewIncidentCommand creates the incident command group
func NewIncidentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "incident",
		Aliases: []string{"incidents"},
		Short:   "Work with incidents",
	}

	cmd.AddCommand(newIncidentGetCommand())
	cmd.AddCommand(newIncidentCreateCommand())
	cmd.AddCommand(newIncidentSearchCommand())
	cmd.AddCommand(newIncidentResolveCommand())
	cmd.AddCommand(newIncidentEscalateCommand())
	cmd.AddCommand(newIncidentCommentCommand())
	cmd.AddCommand(newIncidentLinkCommand())
	cmd.AddCommand(newIncidentSLACommand())

	return cmd
}

func incidentManager(provider string) (itsm.IncidentManager, error) {
	return itsmclient.NewIncidentManager(provider, clientConfig())
}

func renderIncident(incident *itsm.Incident) error {
	if handled, err := renderStructured(incident); handled {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")

	_ = table.Append("Key", incident.Key)
	_ = table.Append("Summary", incident.Summary)
	_ = table.Append("Severity", string(incident.Severity))
	_ = table.Append("Status", incident.Status)
	_ = table.Append("Service", incident.Service)
	_ = table.Append("Assignee", incident.Assignee)
	_ = table.Append("Reporter", incident.Reporter)
	_ = table.Append("Labels", formatLabels(incident.Labels))
	_ = table.Append("Created", formatTime(incident.CreatedAt))
	_ = table.Append("Resolved", formatTime(incident.ResolvedAt))
	_ = table.Append("Resolution", incident.Resolution)
	_ = table.Append("Linked Issues", formatLabels(incident.LinkedIssues))
	_ = table.Append("URL", incident.URL)

	if incident.Description != "" {
		_ = table.Append("Description", truncateCell(incident.Description, 200))
	}

	_ = table.Render()

	return nil
}

func newIncidentGetCommand() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "get INCIDENT_KEY",
		Short: "Display a single incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			incidents, err := incidentManager(provider)
			if err != nil {
				return err
			}
			defer func() { _ = incidents.Close() }()

			incident, err := incidents.GetIncident(context.Background(), args[0])
			if err != nil {
				return err
			}

			if incident == nil {
				return fmt.Errorf("incident %s not found", args[0])
			}

			return renderIncident(incident)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "incident manager provider")

	return cmd
}

func newIncidentCreateCommand() *cobra.Command {
	var (
		provider    string
		description string
		severity    string
		service     string
		labels      []string
	)

	cmd := &cobra.Command{
		Use:   "create SUMMARY",
		Short: "Create a new incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			incidents, err := incidentManager(provider)
			if err != nil {
				return err
			}
			defer func() { _ = incidents.Close() }()

			incident, err := incidents.CreateIncident(context.Background(), &itsm.IncidentCreateRequest{
				Summary:     args[0],
				Description: description,
				Severity:    itsm.Severity(severity),
				Service:     service,
				Labels:      labels,
			})
			if err != nil {
				return err
			}

			return renderIncident(incident)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "incident manager provider")
	cmd.Flags().StringVarP(&description, "description", "d", "", "incident description")
	cmd.Flags().StringVar(&severity, "severity", string(itsm.SeverityMedium),
		"severity (critical, high, medium, low, info)")
	cmd.Flags().StringVar(&service, "service", "", "affected service or component")
	cmd.Flags().StringSliceVar(&labels, "label", nil, "label to apply (repeatable)")

	return cmd
}

func newIncidentSearchCommand() *cobra.Command {
	var (
		provider string
		query    string
		status   string
		severity string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search incidents by filters or query",
		RunE: func(cmd *cobra.Command, args []string) error {
			incidents, err := incidentManager(provider)
			if err != nil {
				return err
			}
			defer func() { _ = incidents.Close() }()

			found, err := incidents.SearchIncidents(context.Background(), &itsm.IncidentSearchOptions{
				Query:    query,
				Status:   status,
				Severity: itsm.Severity(severity),
				Limit:    limit,
			})
			if err != nil {
				return err
			}

			if handled, err := renderStructured(found); handled {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Key", "Severity", "Status", "Summary", "Service")

			for i := range found {
				incident := &found[i]
				_ = table.Append(incident.Key, string(incident.Severity), incident.Status,
					truncateCell(incident.Summary, 60), incident.Service)
			}

			_ = table.Render()

			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "incident manager provider")
	cmd.Flags().StringVarP(&query, "query", "q", "", "text or provider-native query")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&severity, "severity", "", "filter by severity")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of results")

	return cmd
}

func newIncidentResolveCommand() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "resolve INCIDENT_KEY RESOLUTION",
		Short: "Resolve an incident with resolution notes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			incidents, err := incidentManager(provider)
			if err != nil {
				return err
			}
			defer func() { _ = incidents.Close() }()

			result, err := incidents.ResolveIncident(context.Background(), args[0], args[1])
			if err != nil {
				return err
			}

			return renderResult(result)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "incident manager provider")

	return cmd
}

func newIncidentEscalateCommand() *cobra.Command {
	var (
		provider string
		reason   string
	)

	cmd := &cobra.Command{
		Use:   "escalate INCIDENT_KEY SEVERITY",
		Short: "Raise an incident's severity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			incidents, err := incidentManager(provider)
			if err != nil {
				return err
			}
			defer func() { _ = incidents.Close() }()

			result, err := incidents.EscalateIncident(context.Background(), args[0],
				itsm.Severity(args[1]), reason)
			if err != nil {
				return err
			}

			return renderResult(result)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "incident manager provider")
	cmd.Flags().StringVar(&reason, "reason", "", "reason for escalation")

	return cmd
}

func newIncidentCommentCommand() *cobra.Command {
	var (
		provider string
		internal bool
	)

	cmd := &cobra.Command{
		Use:   "comment INCIDENT_KEY BODY",
		Short: "Add a comment to an incident",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			incidents, err := incidentManager(provider)
			if err != nil {
				return err
			}
			defer func() { _ = incidents.Close() }()

			result, err := incidents.AddComment(context.Background(), args[0], args[1], internal)
			if err != nil {
				return err
			}

			return renderResult(result)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "incident manager provider")
	cmd.Flags().BoolVar(&internal, "internal", false, "hide the comment from customers")

	return cmd
}

func newIncidentLinkCommand() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "link INCIDENT_KEY ISSUE_KEY",
		Short: "Link an incident to an issue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			incidents, err := incidentManager(provider)
			if err != nil {
				return err
			}
			defer func() { _ = incidents.Close() }()

			result, err := incidents.LinkToIssue(context.Background(), args[0], args[1])
			if err != nil {
				return err
			}

			return renderResult(result)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "incident manager provider")

	return cmd
}

func newIncidentSLACommand() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "sla INCIDENT_KEY",
		Short: "Show SLA status for an incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			incidents, err := incidentManager(provider)
			if err != nil {
				return err
			}
			defer func() { _ = incidents.Close() }()

			statuses, err := incidents.GetSLAStatus(context.Background(), args[0])
			if err != nil {
				return err
			}

			if handled, err := renderStructured(statuses); handled {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Name", "Elapsed (s)", "Remaining (s)", "Breached", "Paused")

			for _, status := range statuses {
				_ = table.Append(status.Name,
					strconv.Itoa(status.Elapsed), strconv.Itoa(status.Remaining),
					strconv.FormatBool(status.Breached), strconv.FormatBool(status.Paused))
			}

			_ = table.Render()

			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "incident manager provider")

	return cmd
}
