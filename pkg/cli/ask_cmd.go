package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(client *Client) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a natural-language question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			result, err := client.Ask(cmd.Context(), question)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(result)
			}
			printQueryResult(cmd, result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON response")
	return cmd
}

func printQueryResult(cmd *cobra.Command, r *QueryResult) {
	out := cmd.OutOrStdout()
	switch r.Status {
	case "EXECUTED":
		fmt.Fprintf(out, "SQL: %s\n", r.SQL)
		fmt.Fprintf(out, "Confidence: %.2f\n\n", r.Confidence)
		fmt.Fprintln(out, strings.Join(r.Columns, "\t"))
		for _, row := range r.Rows {
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = fmt.Sprint(v)
			}
			fmt.Fprintln(out, strings.Join(cells, "\t"))
		}
	case "DENIED":
		fmt.Fprintf(out, "Denied: %s (%s)\n", r.Message, r.ReasonCode)
		if r.SQL != "" {
			fmt.Fprintf(out, "Candidate SQL: %s\n", r.SQL)
		}
	default:
		fmt.Fprintf(out, "Failed: %s\n", r.Error)
	}
}

func newSchemaCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Show the schema visible to the caller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := client.Schema(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(schema)
		},
	}
}

func newSuggestCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest",
		Short: "List suggested questions for the caller's grants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			suggestions, err := client.Suggest(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range suggestions {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}
