package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sandevgo/tusknet/internal/providers/driver"
	"github.com/sandevgo/tusknet/internal/providers/parser"
	"github.com/sandevgo/tusknet/internal/service/ui"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List supported device types",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		p := parser.New()

		fmt.Fprintln(out, ui.TitleStyle.Render("DEVICE TYPES"))
		for _, tag := range driver.Tags() {
			d, _ := driver.Lookup(tag)
			fmt.Fprintf(out, "  %-20s %-7s %-4d %s\n",
				ui.UsageStyle.Render(tag), d.Transport, d.DefaultPort(), ui.DescStyle.Render(d.Family))

			if commands := p.Supported(tag); len(commands) > 0 {
				fmt.Fprintf(out, "  %-20s %s\n", "", ui.DescStyle.Render("parsed: "+strings.Join(commands, ", ")))
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)
}
