// Package cli implements the genbictl command-line interface.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		host  string
		token string
	)

	rootCmd := &cobra.Command{
		Use:           "genbictl",
		Short:         "Query gateway CLI",
		Long:          "Command-line interface for the natural-language query gateway.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&host, "host", "http://localhost:8080", "API host URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer token (falls back to GENBI_TOKEN)")

	client := NewClient(host, token)
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		// Precedence: flag > environment.
		if !cmd.Flags().Changed("host") {
			if v := os.Getenv("GENBI_HOST"); v != "" {
				host = v
			}
		}
		if !cmd.Flags().Changed("token") {
			if v := os.Getenv("GENBI_TOKEN"); v != "" {
				token = v
			}
		}
		client.BaseURL = host
		client.Token = token
	}

	rootCmd.AddCommand(newAuthCmd(client))
	rootCmd.AddCommand(newAskCmd(client))
	rootCmd.AddCommand(newSchemaCmd(client))
	rootCmd.AddCommand(newSuggestCmd(client))
	rootCmd.AddCommand(newPrincipalCmd(client))
	rootCmd.AddCommand(newGrantCmd(client))
	rootCmd.AddCommand(newAuditCmd(client))
	rootCmd.AddCommand(newRefreshCmd(client))

	return rootCmd
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
