package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/scene-clarify/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing scene extraction and clarifying question answering as tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(context.Background())
		if err != nil {
			return err
		}
		defer a.Close()

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "clarify MCP server started on stdio (provider=%s, model=%s)\n", a.cfg.Provider, a.cfg.Model)

		srv := mcpserver.NewServer(a.svc, a.extractor)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
