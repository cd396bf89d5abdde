package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective pipeline configuration as YAML",
	Long: `Config merges the config file, SCANOCR_* environment variables and
defaults, and prints the result in the config file format. The output can be
saved as scanocr.yaml and edited.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := pipelineConfig()
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encoding configuration: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
