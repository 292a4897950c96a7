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

// NewPageCommand creates the page command group
func NewPageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "page",
		Aliases: []string{"pages"},
		Short:   "Work with wiki pages",
	}

	cmd.AddCommand(newPageGetCommand())
	cmd.AddCommand(newPageCreateCommand())
	cmd.AddCommand(newPageUpdateCommand())
	cmd.AddCommand(newPageAppendCommand())
	cmd.AddCommand(newPageSearchCommand())

	return cmd
}

func wikiProvider(provider string) (itsm.WikiProvider, error) {
	return itsmclient.NewWikiProvider(provider, clientConfig())
}

func renderPage(page *itsm.Page, withContent bool) error {
	if handled, err := renderStructured(page); handled {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")

	_ = table.Append("ID", page.ID)
	_ = table.Append("Title", page.Title)
	_ = table.Append("Space", page.Space)
	_ = table.Append("Version", strconv.Itoa(page.Version))
	_ = table.Append("Author", page.Author)
	_ = table.Append("Updated", formatTime(page.UpdatedAt))
	_ = table.Append("URL", page.URL)

	_ = table.Render()

	if withContent && page.Content != "" {
		fmt.Println()
		fmt.Println(page.Content)
	}

	return nil
}

func newPageGetCommand() *cobra.Command {
	var (
		provider    string
		space       string
		title       string
		withContent bool
	)

	cmd := &cobra.Command{
		Use:   "get [PAGE_ID]",
		Short: "Display a page by ID, or by space and title",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wiki, err := wikiProvider(provider)
			if err != nil {
				return err
			}
			defer func() { _ = wiki.Close() }()

			ctx := context.Background()

			var page *itsm.Page

			switch {
			case len(args) == 1:
				page, err = wiki.GetPage(ctx, args[0])
			case space != "" && title != "":
				page, err = wiki.GetPageByPath(ctx, space, title)
			default:
				return fmt.Errorf("provide a page ID, or both --space and --title")
			}

			if err != nil {
				return err
			}

			if page == nil {
				return fmt.Errorf("page not found")
			}

			return renderPage(page, withContent)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "wiki provider")
	cmd.Flags().StringVar(&space, "space", "", "space key for title lookup")
	cmd.Flags().StringVar(&title, "title", "", "page title for title lookup")
	cmd.Flags().BoolVar(&withContent, "content", false, "print the page body")

	return cmd
}

func newPageCreateCommand() *cobra.Command {
	var (
		provider string
		space    string
		content  string
		parentID string
	)

	cmd := &cobra.Command{
		Use:   "create TITLE",
		Short: "Create a new page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wiki, err := wikiProvider(provider)
			if err != nil {
				return err
			}
			defer func() { _ = wiki.Close() }()

			page, err := wiki.CreatePage(context.Background(), &itsm.PageCreateRequest{
				Title:    args[0],
				Content:  content,
				Space:    space,
				ParentID: parentID,
			})
			if err != nil {
				return err
			}

			return renderPage(page, false)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "wiki provider")
	cmd.Flags().StringVar(&space, "space", "", "space key (overrides the configured default)")
	cmd.Flags().StringVar(&content, "content", "", "page body in storage format")
	cmd.Flags().StringVar(&parentID, "parent", "", "parent page ID")

	return cmd
}

func newPageUpdateCommand() *cobra.Command {
	var (
		provider string
		title    string
	)

	cmd := &cobra.Command{
		Use:   "update PAGE_ID CONTENT",
		Short: "Replace a page's content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wiki, err := wikiProvider(provider)
			if err != nil {
				return err
			}
			defer func() { _ = wiki.Close() }()

			page, err := wiki.UpdatePage(context.Background(), args[0], &itsm.PageUpdateRequest{
				Content: args[1],
				Title:   title,
			})
			if err != nil {
				return err
			}

			return renderPage(page, false)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "wiki provider")
	cmd.Flags().StringVar(&title, "title", "", "new page title")

	return cmd
}

func newPageAppendCommand() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "append PAGE_ID CONTENT",
		Short: "Append content to a page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wiki, err := wikiProvider(provider)
			if err != nil {
				return err
			}
			defer func() { _ = wiki.Close() }()

			page, err := wiki.AppendToPage(context.Background(), args[0], args[1])
			if err != nil {
				return err
			}

			return renderPage(page, false)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "wiki provider")

	return cmd
}

func newPageSearchCommand() *cobra.Command {
	var (
		provider string
		space    string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search pages by text or provider-native query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wiki, err := wikiProvider(provider)
			if err != nil {
				return err
			}
			defer func() { _ = wiki.Close() }()

			pages, err := wiki.Search(context.Background(), args[0], &itsm.PageSearchOptions{
				Space: space,
				Limit: limit,
			})
			if err != nil {
				return err
			}

			if handled, err := renderStructured(pages); handled {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("ID", "Title", "Space", "Version", "Updated")

			for i := range pages {
				page := &pages[i]
				_ = table.Append(page.ID, truncateCell(page.Title, 60), page.Space,
					strconv.Itoa(page.Version), formatTime(page.UpdatedAt))
			}

			_ = table.Render()

			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "wiki provider")
	cmd.Flags().StringVar(&space, "space", "", "limit results to a space")
	cmd.Flags().IntVar(&limit, "limit", 25, "maximum number of results")

	return cmd
}
