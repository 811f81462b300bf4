package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// CommandEntry describes one leaf command.
type CommandEntry struct {
	Path  string      `json:"path"`
	Short string      `json:"short"`
	Args  string      `json:"args,omitempty"`
	Flags []FlagEntry `json:"flags,omitempty"`
}

// FlagEntry describes one local flag of a command.
type FlagEntry struct {
	Name     string `json:"name"`
	Short    string `json:"shorthand,omitempty"`
	Type     string `json:"type"`
	Default  string `json:"default,omitempty"`
	Usage    string `json:"usage,omitempty"`
	Required bool   `json:"required,omitempty"`
}

func newCommandsCmd() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "commands",
		Short: "List every CLI command with its flags",
		Long:  "Walk the command tree offline and list each command with its arguments and flags.",
		Example: `  datafood commands
  datafood commands --filter profile -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries := walkCommands(cmd.Root(), "")
			if filter != "" {
				needle := strings.ToLower(filter)
				var kept []CommandEntry
				for _, e := range entries {
					if strings.Contains(strings.ToLower(e.Path+" "+e.Short), needle) {
						kept = append(kept, e)
					}
				}
				entries = kept
			}

			if getOutputFormat(cmd) == "json" {
				if entries == nil {
					entries = []CommandEntry{}
				}
				return PrintJSON(cmd.OutOrStdout(), entries)
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.Path, e.Args, e.Short})
			}
			PrintTable(cmd.OutOrStdout(), []string{"path", "args", "description"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Substring match on command path and description")
	return cmd
}

// walkCommands collects the leaf commands under cmd, depth first.
func walkCommands(cmd *cobra.Command, parent string) []CommandEntry {
	var entries []CommandEntry
	for _, child := range cmd.Commands() {
		if child.Hidden || child.Name() == "help" || child.Name() == "completion" {
			continue
		}
		path := child.Name()
		if parent != "" {
			path = parent + " " + path
		}
		if child.HasSubCommands() {
			entries = append(entries, walkCommands(child, path)...)
			continue
		}

		var args string
		if use := strings.Fields(child.Use); len(use) > 1 {
			args = strings.Join(use[1:], " ")
		}
		entries = append(entries, CommandEntry{
			Path:  path,
			Short: child.Short,
			Args:  args,
			Flags: collectFlags(child),
		})
	}
	return entries
}

func collectFlags(cmd *cobra.Command) []FlagEntry {
	var flags []FlagEntry
	cmd.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden || f.Name == "help" {
			return
		}
		entry := FlagEntry{
			Name:    f.Name,
			Short:   f.Shorthand,
			Type:    f.Value.Type(),
			Default: f.DefValue,
			Usage:   f.Usage,
		}
		if ann := f.Annotations[cobra.BashCompOneRequiredFlag]; len(ann) > 0 && ann[0] == "true" {
			entry.Required = true
		}
		flags = append(flags, entry)
	})
	return flags
}
