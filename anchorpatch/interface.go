package anchorpatch

import (
	"context"
	"fmt"

	"github.com/sokinpui/anchorpatch/cli"
	"github.com/sokinpui/anchorpatch/engine"
	"github.com/sokinpui/anchorpatch/internal/syntax"
	"github.com/sokinpui/anchorpatch/model"
)

// Config for using anchorpatch as a library.
type Config struct {
	// Render a diff without writing.
	DryRun bool
	// History directory. Empty means .anchorpatch at the git root.
	StateDir string
}

// Patch replaces the text between the first of start and the first of end
// following it, and returns the patched text only if it still parses as
// format.
func Patch(text string, format engine.Format, start, end []string, replacement string) (string, error) {
	eng := engine.New(engine.WithParsers(syntax.Lookup))
	res, err := eng.Apply(engine.NewDocument(text, format), engine.Patch{
		Start:       engine.Anchor{Candidates: start},
		End:         engine.Anchor{Candidates: end},
		Replacement: replacement,
	})
	if err != nil {
		return text, err
	}
	return res.Document.Text, nil
}

// ApplyDescriptor applies a YAML descriptor file to disk and returns a
// summary of the files touched.
func ApplyDescriptor(ctx context.Context, path string, config Config) (model.Summary, error) {
	app, err := New(&cli.Config{
		Descriptor:  path,
		DryRun:      config.DryRun,
		StateDir:    config.StateDir,
		NoAnimation: true,
	})
	if err != nil {
		return model.Summary{}, fmt.Errorf("failed to initialize anchorpatch app: %w", err)
	}
	defer app.Close()
	return app.Execute(ctx)
}
