package cmd

import (
	"fmt"
	"strings"

	"github.com/PolarWolf314/kete/internal/tools"
	"github.com/PolarWolf314/kete/internal/ui"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools [name]",
	Short: "List the available tools",
	Long: `Lists the tools kete provides, grouped by what they work on, with the
commands that run them. Give a tool name to show just that tool.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting tools command")
		registry := tools.Default()

		if len(args) == 1 {
			t, ok := registry.Lookup(args[0])
			if !ok {
				return reportError(fmt.Errorf("no tool named %q", args[0]))
			}
			fmt.Print(formatTool(t))
			return nil
		}

		var last tools.Kind
		for _, t := range registry.All() {
			if t.Kind() != last {
				fmt.Println(ui.Highlight.Sprint(t.Kind()))
				last = t.Kind()
			}
			fmt.Print(formatTool(t))
		}
		return nil
	},
}

func formatTool(t tools.Tool) string {
	cmds := make([]string, len(t.Commands()))
	for i, c := range t.Commands() {
		cmds[i] = ui.Code.Sprint("kete " + c)
	}
	return fmt.Sprintf("  %-20s %s\n  %-20s %s\n", t.Name(), t.Description(), "", strings.Join(cmds, ", "))
}
