package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"datafood/internal/compiler"
	"datafood/internal/domain"
)

func newQueryCmd(client *Client) *cobra.Command {
	var (
		file    string
		explain bool
		dialect string
	)

	cmd := &cobra.Command{
		Use:   "query -f request.{json,yaml}",
		Short: "Run an analytics request on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := loadRequest(file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			if explain {
				plan, err := client.Explain(cmd.Context(), q, dialect)
				if err != nil {
					return err
				}
				if getOutputFormat(cmd) == "json" {
					return PrintJSON(cmd.OutOrStdout(), plan)
				}
				printPlan(cmd.OutOrStdout(), *plan)
				return nil
			}

			rows, err := client.Query(cmd.Context(), q)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), map[string]any{"data": rows})
			}

			columns := rowColumns(resultLabels(q.ToDomain()), rows)
			PrintTable(cmd.OutOrStdout(), columns, rowsToTable(columns, rows))
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "(%d rows)\n", len(rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Request file (JSON or YAML, - for stdin)")
	cmd.Flags().BoolVar(&explain, "explain", false, "Show the server's SQL instead of running it")
	cmd.Flags().StringVar(&dialect, "dialect", "", "With --explain, render for this dialect instead of the server's")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// resultLabels compiles req locally to recover the server's column order,
// which JSON objects do not carry.
func resultLabels(req domain.AnalyticsRequest) []string {
	q, err := compiler.New(nil).Compile(req)
	if err != nil {
		return nil
	}
	return q.Labels()
}
