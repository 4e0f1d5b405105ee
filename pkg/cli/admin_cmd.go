package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthCmd(client *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication commands",
	}

	var secret string
	tokenCmd := &cobra.Command{
		Use:   "token <name>",
		Short: "Exchange credentials for a bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := client.IssueToken(cmd.Context(), args[0], secret)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&secret, "secret", "", "principal secret")
	_ = tokenCmd.MarkFlagRequired("secret")

	cmd.AddCommand(tokenCmd)
	return cmd
}

func newPrincipalCmd(client *Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "principal",
		Short: "Manage principals (admin)",
	}

	var (
		typ     string
		secret  string
		isAdmin bool
	)
	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a principal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := client.CreatePrincipal(cmd.Context(), args[0], typ, secret, isAdmin)
			if err != nil {
				return err
			}
			return printJSON(created)
		},
	}
	createCmd.Flags().StringVar(&typ, "type", "user", "principal type (user or service_principal)")
	createCmd.Flags().StringVar(&secret, "secret", "", "principal secret")
	createCmd.Flags().BoolVar(&isAdmin, "admin", false, "grant the admin flag")
	_ = createCmd.MarkFlagRequired("secret")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List principals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			principals, err := client.ListPrincipals(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(principals)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a principal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.DeletePrincipal(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(createCmd, listCmd, deleteCmd)
	return cmd
}

func newGrantCmd(client *Client) *cobra.Command {
	var (
		databases []string
		tables    []string
		columns   []string
	)
	cmd := &cobra.Command{
		Use:   "grant <principal>",
		Short: "Add a permission grant to a principal (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(databases)+len(tables)+len(columns) == 0 {
				return fmt.Errorf("at least one of --database, --table, or --column is required")
			}
			return client.AddGrant(cmd.Context(), args[0], databases, tables, columns)
		},
	}
	cmd.Flags().StringSliceVar(&databases, "database", nil, "database to grant (repeatable, \"*\" for all)")
	cmd.Flags().StringSliceVar(&tables, "table", nil, "table to grant (repeatable, \"*\" for all)")
	cmd.Flags().StringSliceVar(&columns, "column", nil, "column to grant (repeatable, \"*\" for all)")
	return cmd
}

func newAuditCmd(client *Client) *cobra.Command {
	var (
		principal string
		status    string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List audit log entries (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := client.ListAudit(cmd.Context(), principal, status, limit)
			if err != nil {
				return err
			}
			return printJSON(entries)
		},
	}
	cmd.Flags().StringVar(&principal, "principal", "", "filter by principal name")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (executed, denied, failed)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum entries to return")
	return cmd
}

func newRefreshCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rebuild the schema index (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := client.RefreshSchema(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}
