package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/diverge/internal/mcptools"
)

func newMCPCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run as an MCP server on stdio",
		Long: `Run as a Model Context Protocol server on stdin/stdout, exposing the
propose_solutions and list_backends tools. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.pipeline()
			if err != nil {
				return err
			}
			defer p.Close()
			go a.drainProgress(p.Progress())

			return mcptools.RunStdio(ctx, mcptools.NewServer(p, p.Config().Roles()))
		},
	}
}
