package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Jlo00/colonyNetwork/pkg/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with network profiles",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [profile.yaml]",
		Short: "Validate a network profile and print its effective settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := settings()
			if len(args) == 1 {
				cfg.ProfilePath = args[0]
			}
			profile, err := loadProfile(cfg)
			if err != nil {
				return err
			}
			policy, err := profile.PolicyTable()
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(profile)
			}
			renderProfile(profile, len(policy.Functions()))
			return nil
		},
	})
	return cmd
}

func renderProfile(p *config.NetworkProfile, functions int) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Setting", "Value"})
	tw.AppendRows([]table.Row{
		{"schema_version", p.SchemaVersion},
		{"fee_inverse", p.FeeInverse},
		{"meta token", fmt.Sprintf("%s (%s, %d decimals)", p.MetaColony.Token.Symbol, p.MetaColony.Token.Name, p.MetaColony.Token.Decimals)},
		{"mining stream", p.Mining.Stream},
		{"governed functions", functions},
	})
	tw.Render()
}
