package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/sokinpui/anchorpatch/engine"
)

// ErrHelp is returned when -h or --help was requested.
var ErrHelp = pflag.ErrHelp

// Config holds all the command-line flag values.
type Config struct {
	File   string
	Format string

	Start       []string
	StartFrom   int
	StartBefore bool
	WidenTo     string
	End         []string
	EndFrom     int
	EndAfter    bool
	SkipPast    []string
	Strict      bool

	Replacement     string
	ReplacementFile string
	// ReplacementSet is true when --replacement was given, even as "".
	ReplacementSet bool
	CodeBlock      bool

	Descriptor string
	DryRun     bool
	Check      []string
	Undo       bool
	Redo       bool

	NoAnimation bool
	Verbose     bool
	LogFile     string
	StateDir    string
	LookupDirs  []string
}

// Interactive reports whether the run should use the TUI.
func (c *Config) Interactive() bool {
	return !c.NoAnimation && !c.DryRun && len(c.Check) == 0
}

// ParseFlags defines and parses command-line flags using pflag.
func ParseFlags(args []string, output io.Writer) (*Config, error) {
	cfg := &Config{}
	flags := pflag.NewFlagSet("anchorpatch", pflag.ContinueOnError)
	flags.SetOutput(output)

	// Target
	flags.StringVarP(&cfg.File, "file", "f", "", "File to patch.")
	flags.StringVar(&cfg.Format, "format", "", "Document format: json or source-text (default: from the file extension).")
	flags.StringSliceVarP(&cfg.LookupDirs, "lookup-dir", "l", nil, "Directories to resolve relative file paths against (default: current directory).")

	// Anchors
	flags.StringArrayVarP(&cfg.Start, "start", "s", nil, "Start anchor literal. Repeat to give fallbacks in priority order.")
	flags.IntVar(&cfg.StartFrom, "start-from", 0, "Byte offset to start searching for the start anchor.")
	flags.BoolVar(&cfg.StartBefore, "start-before", false, "Start the region before the start anchor instead of after it.")
	flags.StringVar(&cfg.WidenTo, "widen-to", "", "Move the region start left to the nearest preceding occurrence of this literal.")
	flags.StringArrayVarP(&cfg.End, "end", "e", nil, "End anchor literal. Repeat to give fallbacks in priority order.")
	flags.IntVar(&cfg.EndFrom, "end-from", 0, "Byte offset to start searching for the end anchor.")
	flags.BoolVar(&cfg.EndAfter, "end-after", false, "End the region after the end anchor instead of before it.")
	flags.StringArrayVar(&cfg.SkipPast, "skip-past", nil, "Move the region end right past this literal. Repeatable.")
	flags.BoolVar(&cfg.Strict, "strict", false, "Reject anchors that occur more than once.")

	// Replacement
	flags.StringVarP(&cfg.Replacement, "replacement", "r", "", "Replacement text. Read from stdin or the clipboard when no replacement flag is given.")
	flags.StringVarP(&cfg.ReplacementFile, "replacement-file", "R", "", "Read the replacement text from a file.")
	flags.BoolVarP(&cfg.CodeBlock, "code-block", "c", false, "Use the first fenced code block of the replacement source.")

	// Modes
	flags.StringVarP(&cfg.Descriptor, "descriptor", "d", "", "YAML file listing patches to apply.")
	flags.BoolVarP(&cfg.DryRun, "dry-run", "n", false, "Print a unified diff instead of writing.")
	flags.StringSliceVar(&cfg.Check, "check", nil, "Report delimiter balance and validity of the given files.")
	flags.BoolVarP(&cfg.Undo, "undo", "u", false, "Undo the last operation.")
	flags.BoolVar(&cfg.Redo, "redo", false, "Redo the last undone operation.")

	// Output
	flags.BoolVar(&cfg.NoAnimation, "no-animation", false, "Disable loading spinner and progress updates.")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Log each pipeline stage to stderr.")
	flags.StringVar(&cfg.LogFile, "log-file", "", "Write JSON diagnostics to this file.")
	flags.StringVar(&cfg.StateDir, "state-dir", "", "History directory (default: .anchorpatch at the git root).")

	flags.Usage = func() {
		fmt.Fprintln(output, "Usage: anchorpatch [flags]")
		fmt.Fprintln(output, "\nReplace the text between two anchors in a JSON or source file, and only write it if the result still parses.")
		fmt.Fprintln(output, "\nExample: anchorpatch -f c.json -s '\"a\": 1,' -e '\"b\": 2}' -r ' \"c\": 3,'")
		fmt.Fprintln(output, "\nFlags:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	cfg.ReplacementSet = flags.Changed("replacement")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseArgs parses the process arguments.
func ParseArgs() (*Config, error) {
	return ParseFlags(os.Args[1:], os.Stderr)
}

// Validate checks that exactly one mode is selected and that the inline
// patch flags are complete.
func (c *Config) Validate() error {
	modes := 0
	for _, on := range []bool{c.Undo, c.Redo, c.Descriptor != "", len(c.Check) > 0, c.File != ""} {
		if on {
			modes++
		}
	}
	switch {
	case c.Undo && c.Redo:
		return errors.New("--undo and --redo are mutually exclusive")
	case modes == 0:
		return errors.New("nothing to do: give --file, --descriptor, --check, --undo or --redo")
	case modes > 1:
		return errors.New("--file, --descriptor, --check, --undo and --redo are mutually exclusive")
	}

	if c.DryRun && (c.Undo || c.Redo || len(c.Check) > 0) {
		return errors.New("--dry-run only applies to --file and --descriptor")
	}
	if c.Format != "" {
		if _, err := engine.ParseFormat(c.Format); err != nil {
			return fmt.Errorf("--format: %w", err)
		}
	}

	if c.File == "" {
		if c.inlineFlagsSet() {
			return errors.New("anchor and replacement flags require --file")
		}
		return nil
	}

	if len(c.Start) == 0 {
		return errors.New("--file requires at least one --start anchor")
	}
	if len(c.End) == 0 {
		return errors.New("--file requires at least one --end anchor")
	}
	if c.ReplacementSet && c.ReplacementFile != "" {
		return errors.New("--replacement and --replacement-file are mutually exclusive")
	}
	if c.StartFrom < 0 || c.EndFrom < 0 {
		return errors.New("--start-from and --end-from must not be negative")
	}
	return nil
}

func (c *Config) inlineFlagsSet() bool {
	return len(c.Start) > 0 || len(c.End) > 0 ||
		c.StartFrom != 0 || c.EndFrom != 0 ||
		c.StartBefore || c.EndAfter ||
		c.WidenTo != "" || len(c.SkipPast) > 0 || c.Strict ||
		c.ReplacementSet || c.ReplacementFile != "" || c.CodeBlock
}
