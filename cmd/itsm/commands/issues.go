package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/fivetwenty-io/itsm/pkg/itsm"
	"github.com/fivetwenty-io/itsm/pkg/itsmclient"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewIssueCommand creates the issue command group
func NewIssueCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "issue",
		Aliases: []string{"issues"},
		Short:   "Work with issues and tickets",
	}

	cmd.AddCommand(newIssueGetCommand())
	cmd.AddCommand(newIssueCreateCommand())
	cmd.AddCommand(newIssueSearchCommand())
	cmd.AddCommand(newIssueTransitionCommand())
	cmd.AddCommand(newIssueCommentCommand())
	cmd.AddCommand(newIssueLinkCommand())
	cmd.AddCommand(newIssueLabelCommand())

	return cmd
}

func issueTracker(provider string) (itsm.IssueTracker, error) {
	return itsmclient.NewIssueTracker(provider, clientConfig())
}

func renderIssue(issue *itsm.Issue) error {
	if handled, err := renderStructured(issue); handled {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")

	_ = table.Append("Key", issue.Key)
	_ = table.Append("Summary", issue.Summary)
	_ = table.Append("Type", issue.IssueType)
	_ = table.Append("Status", issue.Status)
	_ = table.Append("Priority", issue.Priority)
	_ = table.Append("Assignee", issue.Assignee)
	_ = table.Append("Reporter", issue.Reporter)
	_ = table.Append("Labels", formatLabels(issue.Labels))
	_ = table.Append("Created", formatTime(issue.CreatedAt))
	_ = table.Append("Updated", formatTime(issue.UpdatedAt))
	_ = table.Append("URL", issue.URL)

	if issue.Description != "" {
		_ = table.Append("Description", truncateCell(issue.Description, 200))
	}

	_ = table.Render()

	return nil
}

func renderResult(result *itsm.Result) error {
	if handled, err := renderStructured(result); handled {
		return err
	}

	if !result.Success() {
		return fmt.Errorf("%s", result.Message)
	}

	fmt.Println(result.Message)

	if result.ResourceURL != "" {
		fmt.Println(result.ResourceURL)
	}

	return nil
}

func newIssueGetCommand() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "get ISSUE_KEY",
		Short: "Display a single issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, err := issueTracker(provider)
			if err != nil {
				return err
			}
			defer func() { _ = tracker.Close() }()

			issue, err := tracker.GetIssue(context.Background(), args[0])
			if err != nil {
				return err
			}

			if issue == nil {
				return fmt.Errorf("issue %s not found", args[0])
			}

			return renderIssue(issue)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "issue tracker provider")

	return cmd
}

func newIssueCreateCommand() *cobra.Command {
	var (
		provider    string
		project     string
		issueType   string
		description string
		labels      []string
		parentKey   string
		priority    string
		assignee    string
	)

	cmd := &cobra.Command{
		Use:   "create SUMMARY",
		Short: "Create a new issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, err := issueTracker(provider)
			if err != nil {
				return err
			}
			defer func() { _ = tracker.Close() }()

			issue, err := tracker.CreateIssue(context.Background(), &itsm.IssueCreateRequest{
				Summary:     args[0],
				Description: description,
				IssueType:   issueType,
				Project:     project,
				Labels:      labels,
				ParentKey:   parentKey,
				Priority:    priority,
				Assignee:    assignee,
			})
			if err != nil {
				return err
			}

			return renderIssue(issue)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "issue tracker provider")
	cmd.Flags().StringVar(&project, "project", "", "project key (overrides the configured default)")
	cmd.Flags().StringVar(&issueType, "type", "Task", "issue type")
	cmd.Flags().StringVarP(&description, "description", "d", "", "issue description")
	cmd.Flags().StringSliceVar(&labels, "label", nil, "label to apply (repeatable)")
	cmd.Flags().StringVar(&parentKey, "parent", "", "parent issue key for subtasks")
	cmd.Flags().StringVar(&priority, "priority", "", "priority name")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee account ID or email")

	return cmd
}

func newIssueSearchCommand() *cobra.Command {
	var (
		provider   string
		maxResults int
	)

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search issues with a provider-native query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, err := issueTracker(provider)
			if err != nil {
				return err
			}
			defer func() { _ = tracker.Close() }()

			issues, err := tracker.Search(context.Background(), args[0], &itsm.IssueSearchOptions{
				MaxResults: maxResults,
			})
			if err != nil {
				return err
			}

			if handled, err := renderStructured(issues); handled {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Key", "Type", "Status", "Summary", "Assignee")

			for i := range issues {
				issue := &issues[i]
				_ = table.Append(issue.Key, issue.IssueType, issue.Status,
					truncateCell(issue.Summary, 60), issue.Assignee)
			}

			_ = table.Render()

			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "issue tracker provider")
	cmd.Flags().IntVar(&maxResults, "max-results", 50, "maximum number of results")

	return cmd
}

func newIssueTransitionCommand() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "transition ISSUE_KEY STATUS",
		Short: "Move an issue to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, err := issueTracker(provider)
			if err != nil {
				return err
			}
			defer func() { _ = tracker.Close() }()

			result, err := tracker.Transition(context.Background(), args[0], args[1])
			if err != nil {
				return err
			}

			return renderResult(result)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "issue tracker provider")

	return cmd
}

func newIssueCommentCommand() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "comment ISSUE_KEY BODY",
		Short: "Add a comment to an issue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, err := issueTracker(provider)
			if err != nil {
				return err
			}
			defer func() { _ = tracker.Close() }()

			result, err := tracker.Comment(context.Background(), args[0], args[1])
			if err != nil {
				return err
			}

			return renderResult(result)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "issue tracker provider")

	return cmd
}

func newIssueLinkCommand() *cobra.Command {
	var (
		provider string
		linkType string
	)

	cmd := &cobra.Command{
		Use:   "link SOURCE_KEY TARGET_KEY",
		Short: "Link two issues together",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, err := issueTracker(provider)
			if err != nil {
				return err
			}
			defer func() { _ = tracker.Close() }()

			result, err := tracker.LinkIssues(context.Background(), args[0], args[1], linkType)
			if err != nil {
				return err
			}

			return renderResult(result)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "issue tracker provider")
	cmd.Flags().StringVar(&linkType, "type", "Relates", "link type (Relates, Blocks, Clones, ...)")

	return cmd
}

func newIssueLabelCommand() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "label ISSUE_KEY LABEL...",
		Short: "Add labels to an issue",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, err := issueTracker(provider)
			if err != nil {
				return err
			}
			defer func() { _ = tracker.Close() }()

			result, err := tracker.AddLabels(context.Background(), args[0], args[1:])
			if err != nil {
				return err
			}

			return renderResult(result)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "issue tracker provider")

	return cmd
}
