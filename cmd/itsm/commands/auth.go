package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/fivetwenty-io/itsm/internal/auth"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// NewAuthCommand creates the auth command group
func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored credentials",
		Long:  "Store, inspect, and remove API credentials in the OS keyring",
	}

	cmd.AddCommand(newAuthLoginCommand())
	cmd.AddCommand(newAuthLogoutCommand())
	cmd.AddCommand(newAuthStatusCommand())

	return cmd
}

func newAuthLoginCommand() *cobra.Command {
	var (
		baseURL string
		email   string
		token   string
		service string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store credentials in the OS keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(os.Stdin)

			if baseURL == "" {
				baseURL = viper.GetString("base-url")
			}

			if baseURL == "" {
				fmt.Print("Base URL (e.g. https://yourcompany.atlassian.net): ")
				baseURL, _ = reader.ReadString('\n')
				baseURL = strings.TrimSpace(baseURL)
			}

			if baseURL == "" {
				return fmt.Errorf("base URL is required")
			}

			if email == "" {
				email = viper.GetString("email")
			}

			if email == "" {
				fmt.Print("Email: ")
				email, _ = reader.ReadString('\n')
				email = strings.TrimSpace(email)
			}

			if email == "" {
				return fmt.Errorf("email is required")
			}

			if token == "" {
				fmt.Print("API token: ")

				byteToken, err := term.ReadPassword(int(syscall.Stdin))
				if err != nil {
					return fmt.Errorf("failed to read API token: %w", err)
				}

				token = strings.TrimSpace(string(byteToken))

				fmt.Println()
			}

			if token == "" {
				return fmt.Errorf("API token is required")
			}

			resolver := auth.NewResolver(auth.WithService(service))

			err := resolver.Save(&auth.Credentials{
				BaseURL:  strings.TrimRight(baseURL, "/"),
				Email:    email,
				APIToken: token,
			})
			if err != nil {
				return fmt.Errorf("failed to store credentials: %w", err)
			}

			fmt.Println("Credentials stored in the OS keyring")

			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "API base URL")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&token, "token", "", "API token (prompted when omitted)")
	cmd.Flags().StringVar(&service, "service", "", "keyring service name")

	return cmd
}

func newAuthLogoutCommand() *cobra.Command {
	var service string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials from the OS keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver := auth.NewResolver(auth.WithService(service))

			if err := resolver.Delete(); err != nil {
				return fmt.Errorf("failed to remove credentials: %w", err)
			}

			fmt.Println("Stored credentials removed")

			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "keyring service name")

	return cmd
}

func newAuthStatusCommand() *cobra.Command {
	var service string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which credentials resolve and from which values",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver := auth.NewResolver(auth.WithService(service))

			creds, err := resolver.Resolve(viper.GetString("base-url"), viper.GetString("email"), "")
			if err != nil {
				return err
			}

			status := map[string]string{
				"base_url":  creds.BaseURL,
				"email":     creds.Email,
				"api_token": Masked,
			}

			if handled, err := renderStructured(status); handled {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Field", "Value")

			_ = table.Append("Base URL", creds.BaseURL)
			_ = table.Append("Email", creds.Email)
			_ = table.Append("API Token", Masked)

			_ = table.Render()

			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "keyring service name")

	return cmd
}
