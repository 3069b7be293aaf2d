package main

import (
	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	ConfigPath string
	Verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "diverge",
		Short: "Propose diverse solutions to a problem using several LLM backends",
		Long: `diverge asks one model for distinct perspectives on a problem, has a roster
of models brainstorm candidate solutions from each perspective in parallel,
and asks a judge model to reduce the candidates to a short, diverse list.

When the judge fails, alternate judges are tried, then the top candidates
are returned as-is. With no candidates at all, fallback backends are asked
for solutions directly.

Backends are OpenRouter model ids by default. Prefix an id with
"anthropic:" or "gemini:" to route it to that provider instead.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to a config file (default: ./diverge.yml when present)")
	root.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newProposeCmd(flags),
		newServeCmd(flags),
		newMCPCmd(flags),
		newConfigCmd(flags),
		newInitCmd(),
		newVersionCmd(),
	)
	return root
}
