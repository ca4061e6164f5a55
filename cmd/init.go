package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/scene-clarify/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize clarify configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to pick a model provider, quality tier and session backend, and writes a .clarify.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
