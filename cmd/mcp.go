package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentic-research/resgrid/internal/mcpserver"
)

func newMCPCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve list_resources, count_resources and reload over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			srv := mcpserver.New(s.engine, s.tree, s.origins(), s.reload, Version, opts.logger)
			opts.logger.Info("serving MCP on stdio")
			return srv.ServeStdio()
		},
	}
}
