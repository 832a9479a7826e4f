package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/reportqa/internal/adapters/driving/mcp"
	"github.com/custodia-labs/reportqa/internal/metrics"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Serve the report corpus to AI assistants over the Model Context Protocol.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Serve the "ask" and "list_reports" tools and the reportqa://reports
resources. The server speaks JSON-RPC on stdio unless --port is given, in
which case it serves streamable HTTP on /mcp with a /healthz readiness check.

  reportqa mcp serve
  reportqa mcp serve --port 8080 --metrics-addr :9090

Register the stdio form with an assistant as:

  {"mcpServers": {"reportqa": {"command": "reportqa", "args": ["mcp", "serve"]}}}`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().String("metrics-addr", "", "Address for the Prometheus /metrics endpoint (empty = disabled)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	port, err := flags.GetInt("port")
	if err != nil {
		return err
	}
	metricsAddr, err := flags.GetString("metrics-addr")
	if err != nil {
		return err
	}

	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close() //nolint:errcheck

	server, err := mcp.NewServerWithVersion(&mcp.Ports{Asker: rt.Asker, Catalog: rt.Catalog}, version)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	background(ctx, "prompt watcher", rt.Prompts.Watch)
	if metricsAddr != "" {
		background(ctx, "metrics server", func(ctx context.Context) error {
			return metrics.Serve(ctx, metricsAddr)
		})
	}

	if port <= 0 {
		return server.Run(ctx)
	}
	// Stdout carries JSON-RPC in stdio mode, so this is printed only here.
	addr := fmt.Sprintf(":%d", port)
	fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s/mcp (health: /healthz)\n", addr)
	return server.RunHTTP(ctx, addr)
}
