package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"datafood/internal/api"
	"datafood/internal/compiler"
	"datafood/internal/service/analytics"
)

func newCompileCmd() *cobra.Command {
	var (
		file    string
		dialect string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "compile -f request.{json,yaml}",
		Short: "Compile an analytics request to SQL without a server",
		Long: "Validate and compile an analytics request locally and print the SQL,\n" +
			"its bound arguments and any fields the compiler dropped.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := loadRequest(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			d, err := compiler.GetDialect(dialect)
			if err != nil {
				return err
			}

			logger := slog.New(slog.DiscardHandler)
			if verbose {
				logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
			}
			// Explain never touches the executor.
			plan, err := analytics.NewService(nil, d, logger).Explain(cmd.Context(), q.ToDomain())
			if err != nil {
				return err
			}

			resp := api.NewExplainResponse(plan)
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), resp)
			}
			printPlan(cmd.OutOrStdout(), resp)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Request file (JSON or YAML, - for stdin)")
	cmd.Flags().StringVar(&dialect, "dialect", "postgres", "SQL dialect (postgres, mysql, sqlite, duckdb)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log dropped fragments to stderr")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// printPlan writes the SQL followed by argument and ignored-fragment tables.
func printPlan(w io.Writer, p api.ExplainResponse) {
	_, _ = fmt.Fprintf(w, "-- dialect: %s\n%s;\n", p.Dialect, p.SQL)

	if len(p.Args) > 0 {
		_, _ = fmt.Fprintln(w)
		rows := make([][]string, len(p.Args))
		for i, a := range p.Args {
			rows[i] = []string{strconv.Itoa(i + 1), formatCell(a), fmt.Sprintf("%T", a)}
		}
		PrintTable(w, []string{"arg", "value", "type"}, rows)
	}

	if len(p.Ignored) > 0 {
		_, _ = fmt.Fprintln(w)
		rows := make([][]string, len(p.Ignored))
		for i, ig := range p.Ignored {
			rows[i] = []string{ig.Kind, strconv.Itoa(ig.Index), ig.Field, ig.Reason}
		}
		PrintTable(w, []string{"ignored", "index", "field", "reason"}, rows)
	}
}
