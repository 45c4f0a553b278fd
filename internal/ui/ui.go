package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/sokinpui/anchorpatch/model"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PathColor    = color.New(color.FgYellow)
	AddColor     = color.New(color.FgGreen)
	DelColor     = color.New(color.FgRed)
)

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(os.Stderr, format+"\n", a...)
}

// --- Summaries ---

// PrintSummary writes the result of a patch, undo or redo run to w.
func PrintSummary(w io.Writer, title string, s model.Summary) {
	HeaderColor.Fprintf(w, "\n--- %s ---\n", title)

	if s.Diff != "" {
		PrintDiff(w, s.Diff)
	}

	if len(s.Patched) == 0 && len(s.Unchanged) == 0 && len(s.Failed) == 0 && len(s.Checks) == 0 {
		InfoColor.Fprintln(w, "No files were touched.")
		return
	}

	if len(s.Patched) > 0 {
		SuccessColor.Fprintf(w, "%s:\n", s.Message)
		for _, f := range s.Patched {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}
	if len(s.Unchanged) > 0 {
		InfoColor.Fprintf(w, "Unchanged %d file(s):\n", len(s.Unchanged))
		for _, f := range s.Unchanged {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}
	if len(s.Failed) > 0 {
		ErrorColor.Fprintf(w, "Failed to process %d file(s):\n", len(s.Failed))
		for _, f := range s.Failed {
			fmt.Fprintf(w, "  - %s [%s]\n", f.Path, f.Stage)
			fmt.Fprintf(w, "      %s\n", f.Reason)
		}
	}
	if len(s.Checks) > 0 {
		PrintChecks(w, s.Checks)
	}
}

// PrintChecks writes the --check report.
func PrintChecks(w io.Writer, checks []model.Check) {
	for _, c := range checks {
		PathColor.Fprintf(w, "%s", c.Path)
		if c.Grammar != "" {
			fmt.Fprintf(w, " (%s, %s)\n", c.Format, c.Grammar)
		} else {
			fmt.Fprintf(w, " (%s)\n", c.Format)
		}
		if c.Balance != "" {
			fmt.Fprintf(w, "  %s\n", c.Balance)
		}
		if c.Valid {
			SuccessColor.Fprintln(w, "  valid")
		} else {
			ErrorColor.Fprintf(w, "  invalid: %s\n", c.Error)
		}
	}
}

// PrintDiff writes a unified diff with added and removed lines colored.
func PrintDiff(w io.Writer, diff string) {
	start := 0
	for i := 0; i <= len(diff); i++ {
		if i < len(diff) && diff[i] != '\n' {
			continue
		}
		line := diff[start:i]
		start = i + 1
		switch {
		case len(line) >= 3 && (line[:3] == "+++" || line[:3] == "---"):
			HeaderColor.Fprintln(w, line)
		case len(line) > 0 && line[0] == '+':
			AddColor.Fprintln(w, line)
		case len(line) > 0 && line[0] == '-':
			DelColor.Fprintln(w, line)
		case len(line) > 1 && line[:2] == "@@":
			InfoColor.Fprintln(w, line)
		case i < len(diff) || line != "":
			fmt.Fprintln(w, line)
		}
	}
}
