package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/cmdpane/internal/appconfig"
)

func newExamplesCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "examples",
		Short: "List the example commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			for i, example := range cfg.Examples {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%3d  %-18s %s\n", i+1, example.Label, example.Command); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	return cmd
}
