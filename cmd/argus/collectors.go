// cmd/argus/collectors.go
package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"argus/internal/platform/registry"
)

var collectorsCmd = &cobra.Command{
	Use:   "collectors",
	Short: "List the registered collectors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := setup(cmd)
		if err != nil {
			return err
		}

		data := [][]string{{"Name", "Enabled", "Targets", "Entities", "Network", "Priority", "Description"}}
		for _, meta := range registry.Global().AllMetadata() {
			targets := make([]string, 0, len(meta.TargetTypes))
			for _, t := range meta.TargetTypes {
				targets = append(targets, string(t))
			}
			entities := make([]string, 0, len(meta.EntityTypes))
			for _, e := range meta.EntityTypes {
				entities = append(entities, string(e))
			}
			cc := cfg.CollectorConfig(meta.Name)
			data = append(data, []string{
				meta.Name,
				strconv.FormatBool(cc.Enabled),
				strings.Join(targets, ","),
				strings.Join(entities, ","),
				strconv.FormatBool(meta.Network),
				strconv.Itoa(cc.Priority),
				meta.Description,
			})
		}

		table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), table)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "argus %s (commit %s, built %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.AddCommand(collectorsCmd)
	rootCmd.AddCommand(versionCmd)
}
