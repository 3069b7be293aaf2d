package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dusk-indust/diverge/internal/export"
	"github.com/dusk-indust/diverge/internal/httpapi"
	"github.com/dusk-indust/diverge/internal/orchestrator"
)

type proposeFlags struct {
	File    string
	Format  string
	Server  string
	NoColor bool
	Quiet   bool
}

func newProposeCmd(flags *globalFlags) *cobra.Command {
	pf := &proposeFlags{}

	cmd := &cobra.Command{
		Use:   "propose [problem...]",
		Short: "Propose solutions for a problem",
		Long: `Run the full pipeline for one problem and print the final solutions.

The problem is taken from the arguments, from --file, or from stdin when
neither is given. Progress is written to stderr. With --server the run
happens on a remote 'diverge serve' instance and progress is streamed back.`,
		Example: `  diverge propose "reduce cold-start latency of our lambda functions"
  diverge propose --file problem.txt --format markdown > solutions.md
  echo "plan a team offsite" | diverge propose --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			problem, err := readProblem(args, pf.File, cmd.InOrStdin())
			if err != nil {
				return err
			}
			format, err := export.ParseFormat(pf.Format)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := export.Options{Color: !pf.NoColor && !color.NoColor}
			progress := func(ev orchestrator.ProgressEvent) {
				if !pf.Quiet {
					fmt.Fprintln(cmd.ErrOrStderr(), orchestrator.FormatProgress(ev))
				}
			}

			if pf.Server != "" {
				res, err := httpapi.NewClient(pf.Server, nil).Stream(ctx, problem, progress)
				if err != nil {
					return err
				}
				return export.Write(cmd.OutOrStdout(), res, format, opts)
			}

			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.pipeline()
			if err != nil {
				return err
			}

			done := make(chan struct{})
			go func() {
				defer close(done)
				for ev := range p.Progress() {
					progress(ev)
				}
			}()

			res, runErr := p.Run(ctx, problem)
			p.Close()
			<-done
			if runErr != nil {
				return runErr
			}

			return export.Write(cmd.OutOrStdout(), res, format, opts)
		},
	}

	cmd.Flags().StringVarP(&pf.File, "file", "f", "", "read the problem from a file (- for stdin)")
	cmd.Flags().StringVarP(&pf.Format, "format", "o", string(export.FormatText),
		"output format: "+strings.Join(formatNames(), ", "))
	cmd.Flags().StringVar(&pf.Server, "server", "", "run on a remote 'diverge serve' instance at this URL")
	cmd.Flags().BoolVar(&pf.NoColor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVarP(&pf.Quiet, "quiet", "q", false, "do not print progress")
	return cmd
}

// readProblem returns the problem text from args, the named file, or stdin,
// in that order of preference.
func readProblem(args []string, file string, stdin io.Reader) (string, error) {
	if len(args) > 0 && file != "" {
		return "", errors.New("give the problem as arguments or with --file, not both")
	}

	var text string
	switch {
	case len(args) > 0:
		text = strings.Join(args, " ")
	case file != "" && file != "-":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading problem: %w", err)
		}
		text = string(data)
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading problem from stdin: %w", err)
		}
		text = string(data)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", orchestrator.ErrEmptyProblem
	}
	return text, nil
}

func formatNames() []string {
	names := make([]string, len(export.Formats))
	for i, f := range export.Formats {
		names[i] = string(f)
	}
	return names
}
