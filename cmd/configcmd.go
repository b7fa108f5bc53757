package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configValidate string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Flags().Changed("validate") {
			if err := cfg.Validate(configValidate); err != nil {
				return err
			}
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return eris.Wrap(err, "config: encode yaml")
		}
		return eris.Wrap(enc.Close(), "config: flush yaml")
	},
}

func init() {
	configCmd.Flags().StringVar(&configValidate, "validate", "", "validate for a mode first: serve, snapshot, or empty for dashboard commands")
	rootCmd.AddCommand(configCmd)
}
