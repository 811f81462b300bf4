package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var optionKinds = []string{"channels", "stores", "sale_status", "products"}

func newOptionsCmd(client *Client) *cobra.Command {
	return &cobra.Command{
		Use:       "options <channels|stores|sale_status|products>",
		Short:     "List the values offered to filter pickers",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: optionKinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			out := cmd.OutOrStdout()
			asJSON := getOutputFormat(cmd) == "json"

			switch kind {
			case "channels", "sale_status":
				names, err := client.StringOptions(cmd.Context(), kind)
				if err != nil {
					return err
				}
				if asJSON {
					return PrintJSON(out, names)
				}
				rows := make([][]string, len(names))
				for i, n := range names {
					rows[i] = []string{n}
				}
				PrintTable(out, []string{"name"}, rows)
			case "stores", "products":
				items, err := client.IDNameOptions(cmd.Context(), kind)
				if err != nil {
					return err
				}
				if asJSON {
					return PrintJSON(out, items)
				}
				rows := make([][]string, len(items))
				for i, it := range items {
					rows[i] = []string{strconv.FormatInt(it.ID, 10), it.Name}
				}
				PrintTable(out, []string{"id", "name"}, rows)
			default:
				return fmt.Errorf("unknown option list %q", kind)
			}
			return nil
		},
	}
}
