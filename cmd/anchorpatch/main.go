package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sokinpui/anchorpatch/anchorpatch"
	"github.com/sokinpui/anchorpatch/cli"
	"github.com/sokinpui/anchorpatch/internal/tui"
	"github.com/sokinpui/anchorpatch/internal/ui"
	"github.com/sokinpui/anchorpatch/model"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := cli.ParseArgs()
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	app, err := anchorpatch.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		return 1
	}
	defer app.Close()

	var summary model.Summary
	if cfg.Interactive() {
		m := tui.New(app)
		p := tea.NewProgram(m)
		m.SetProgram(p)
		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
			return 1
		}
		if summary, err = m.Summary(); err != nil {
			return 1
		}
	} else {
		// Modes that print to stdout and should not run the TUI.
		summary, err = app.Execute(context.Background())
		if err != nil {
			var detailed *anchorpatch.DetailedError
			if errors.As(err, &detailed) {
				fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", detailed.Stack)
			}
			ui.Error("Error: %v", err)
			return 1
		}
		ui.PrintSummary(os.Stdout, title(cfg), summary)
		report(cfg, summary)
	}

	if !summary.OK() {
		return 1
	}
	return 0
}

// report prints a one-line outcome to stderr.
func report(cfg *cli.Config, s model.Summary) {
	switch {
	case !s.OK():
		ui.Warning("%d file(s) failed", len(s.Failed)+invalidChecks(s))
	case cfg.DryRun:
		ui.Info("Dry run: nothing was written.")
	case (cfg.Undo || cfg.Redo) && len(s.Patched) > 0:
		ui.Success("Restored %d file(s).", len(s.Patched))
	}
}

func invalidChecks(s model.Summary) int {
	n := 0
	for _, c := range s.Checks {
		if !c.Valid {
			n++
		}
	}
	return n
}

func title(cfg *cli.Config) string {
	switch {
	case cfg.Undo:
		return "Undo Summary"
	case cfg.Redo:
		return "Redo Summary"
	case len(cfg.Check) > 0:
		return "Check Report"
	case cfg.DryRun:
		return "Dry Run"
	default:
		return "Patch Summary"
	}
}
