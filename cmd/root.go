package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/scene-clarify/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "clarify",
	Short: "Scene-grounded answers to ambiguous questions about images",
	Long: `Clarify describes an image as a structured scene, then answers questions
about it. When a question could refer to several things in the picture it
asks which one you mean before answering, and keeps the conversation
focused on that choice. It runs as a CLI, an HTTP server, an MCP server
for AI agents, or a Telegram bot.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		syncLogger()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
