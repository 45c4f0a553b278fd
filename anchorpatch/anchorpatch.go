package anchorpatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/sokinpui/anchorpatch/cli"
	"github.com/sokinpui/anchorpatch/engine"
	"github.com/sokinpui/anchorpatch/internal/descriptor"
	"github.com/sokinpui/anchorpatch/internal/fs"
	"github.com/sokinpui/anchorpatch/internal/logging"
	"github.com/sokinpui/anchorpatch/internal/nvim"
	"github.com/sokinpui/anchorpatch/internal/patcher"
	"github.com/sokinpui/anchorpatch/internal/source"
	"github.com/sokinpui/anchorpatch/internal/state"
	"github.com/sokinpui/anchorpatch/internal/syntax"
	"github.com/sokinpui/anchorpatch/model"
)

// ProgressUpdate is a callback function to report progress.
type ProgressUpdate func(current, total int)

// App orchestrates the entire application logic.
type App struct {
	cfg              *cli.Config
	engine           *engine.Engine
	logger           *zap.Logger
	pathResolver     *fs.PathResolver
	sourceProvider   *source.SourceProvider
	progressCallback ProgressUpdate
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error { return e.Err }

// New creates a new App instance.
func New(cfg *cli.Config) (*App, error) {
	logger, err := logging.New(cfg.Verbose, cfg.LogFile)
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:            cfg,
		engine:         engine.New(engine.WithLogger(logger), engine.WithParsers(syntax.Lookup)),
		logger:         logger,
		pathResolver:   fs.NewPathResolver(cfg.LookupDirs),
		sourceProvider: source.New(),
	}, nil
}

// Close flushes the diagnostics logger.
func (a *App) Close() {
	_ = a.logger.Sync()
}

// SetProgressCallback sets a function to be called for progress updates.
func (a *App) SetProgressCallback(cb ProgressUpdate) {
	a.progressCallback = cb
}

// Execute executes the main application logic based on parsed flags.
func (a *App) Execute(ctx context.Context) (summary model.Summary, err error) {
	// Centralized panic recovery.
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	switch {
	case a.cfg.Undo:
		summary, err = a.undoLastOperation()
	case a.cfg.Redo:
		summary, err = a.redoLastOperation()
	case len(a.cfg.Check) > 0:
		summary, err = a.check()
	case a.cfg.Descriptor != "":
		summary, err = a.applyDescriptor(ctx)
	default:
		summary, err = a.applyInline(ctx)
	}
	if err != nil {
		return model.Summary{}, err
	}
	relativizeSummaryPaths(&summary)
	return summary, nil
}

// applyInline patches --file with the anchors given as flags.
func (a *App) applyInline(ctx context.Context) (model.Summary, error) {
	replacement, err := a.replacement()
	if err != nil {
		return model.Summary{}, err
	}

	format, err := a.format(a.cfg.Format)
	if err != nil {
		return model.Summary{}, err
	}

	start := engine.Anchor{
		Candidates: a.cfg.Start,
		From:       a.cfg.StartFrom,
		Strict:     a.cfg.Strict,
		WidenTo:    a.cfg.WidenTo,
	}
	if a.cfg.StartBefore {
		start.Boundary = engine.BoundaryBefore
	}
	end := engine.Anchor{
		Candidates: a.cfg.End,
		From:       a.cfg.EndFrom,
		Strict:     a.cfg.Strict,
		SkipPast:   a.cfg.SkipPast,
	}
	if a.cfg.EndAfter {
		end.Boundary = engine.BoundaryAfter
	}

	job := patcher.Job{
		Path:   a.pathResolver.Resolve(a.cfg.File),
		Format: format,
		Patch:  engine.Patch{Start: start, End: end, Replacement: replacement},
	}
	return a.run(ctx, []patcher.Job{job})
}

// replacement reads the replacement text from the flag, the file, or
// stdin/clipboard, in that order. With --code-block the fenced block
// tagged with the target's language wins.
func (a *App) replacement() (string, error) {
	var content string
	switch {
	case a.cfg.ReplacementSet:
		content = a.cfg.Replacement
	case a.cfg.ReplacementFile != "":
		data, err := os.ReadFile(a.cfg.ReplacementFile)
		if err != nil {
			return "", fmt.Errorf("failed to read replacement file: %w", err)
		}
		content = string(data)
	default:
		var err error
		content, err = a.sourceProvider.GetContent()
		if err != nil {
			return "", err
		}
	}

	if a.cfg.CodeBlock {
		block, err := descriptor.CodeBlockFor([]byte(content), a.cfg.File)
		if err != nil {
			return "", fmt.Errorf("failed to extract replacement: %w", err)
		}
		content = block
	}
	return content, nil
}

func (a *App) format(name string) (engine.Format, error) {
	if name == "" {
		return "", nil
	}
	return engine.ParseFormat(name)
}

// applyDescriptor runs every patch listed in a descriptor file.
func (a *App) applyDescriptor(ctx context.Context) (model.Summary, error) {
	file, err := descriptor.Load(a.cfg.Descriptor)
	if err != nil {
		return model.Summary{}, err
	}
	override, err := a.format(a.cfg.Format)
	if err != nil {
		return model.Summary{}, err
	}

	jobs := make([]patcher.Job, 0, len(file.Patches))
	for _, e := range file.Patches {
		format := e.DocumentFormat()
		if override != "" {
			format = override
		}
		jobs = append(jobs, patcher.Job{
			Path:   a.pathResolver.Resolve(e.File),
			Format: format,
			Patch:  e.Patch(),
		})
	}
	return a.run(ctx, jobs)
}

func (a *App) run(ctx context.Context, jobs []patcher.Job) (model.Summary, error) {
	opts := []patcher.Option{
		patcher.WithLogger(a.logger),
		patcher.WithDryRun(a.cfg.DryRun),
	}
	if a.progressCallback != nil {
		a.progressCallback(0, len(jobs))
		opts = append(opts, patcher.WithProgress(func(done, total int) {
			a.progressCallback(done, total)
		}))
	}
	if !a.cfg.DryRun {
		history, err := a.history()
		if err != nil {
			return model.Summary{}, err
		}
		opts = append(opts, patcher.WithHistory(history))
		if r := nvim.FromEnv(); r != nil {
			opts = append(opts, patcher.WithRefresh(r.Refresh))
		}
	}
	return patcher.New(a.engine, opts...).Run(ctx, jobs), nil
}

// check reports delimiter balance and validity for each --check file.
func (a *App) check() (model.Summary, error) {
	var summary model.Summary
	override, err := a.format(a.cfg.Format)
	if err != nil {
		return summary, err
	}
	for _, p := range a.cfg.Check {
		path := a.pathResolver.Resolve(p)
		c := model.Check{Path: path}
		if g := syntax.ForPath(path); g != nil {
			c.Grammar = g.Name()
		}

		doc, err := fs.ReadDocument(path, override)
		if err != nil {
			c.Error = err.Error()
			summary.Checks = append(summary.Checks, c)
			continue
		}
		c.Format = string(doc.Format)
		c.Balance = engine.Balance(doc.Text).String()
		if err := engine.Verify(doc, syntax.Lookup); err != nil {
			c.Error = err.Error()
		} else {
			c.Valid = true
		}
		summary.Checks = append(summary.Checks, c)
	}
	summary.Message = fmt.Sprintf("Checked %d file(s)", len(summary.Checks))
	return summary, nil
}

func (a *App) history() (*state.Manager, error) {
	var (
		m   *state.Manager
		err error
	)
	if a.cfg.StateDir != "" {
		m, err = state.NewAt(a.cfg.StateDir)
	} else {
		m, err = state.New()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize state manager: %w", err)
	}
	return m, nil
}

// undoLastOperation handles the undo logic.
func (a *App) undoLastOperation() (model.Summary, error) {
	history, err := a.history()
	if err != nil {
		return model.Summary{}, err
	}
	summary, err := history.Undo()
	if errors.Is(err, state.ErrNothingToUndo) {
		return model.Summary{Message: "No operation to undo."}, nil
	}
	if err != nil {
		return model.Summary{}, err
	}
	a.refresh(summary.Patched)
	return summary, nil
}

// redoLastOperation handles the redo logic.
func (a *App) redoLastOperation() (model.Summary, error) {
	history, err := a.history()
	if err != nil {
		return model.Summary{}, err
	}
	summary, err := history.Redo()
	if errors.Is(err, state.ErrNothingToRedo) {
		return model.Summary{Message: "No operation to redo."}, nil
	}
	if err != nil {
		return model.Summary{}, err
	}
	a.refresh(summary.Patched)
	return summary, nil
}

func (a *App) refresh(paths []string) {
	if err := nvim.FromEnv().Refresh(paths); err != nil {
		a.logger.Warn("editor refresh failed", zap.Error(err))
	}
}

// relativizeSummaryPaths converts absolute file paths in a summary to be
// relative to the current working directory for cleaner display.
func relativizeSummaryPaths(summary *model.Summary) {
	wd, err := os.Getwd()
	if err != nil {
		return
	}

	rel := func(p string) string {
		r, err := filepath.Rel(wd, p)
		if err != nil {
			return p // Fallback to absolute path
		}
		return r
	}

	for i, p := range summary.Patched {
		summary.Patched[i] = rel(p)
	}
	for i, p := range summary.Unchanged {
		summary.Unchanged[i] = rel(p)
	}
	for i := range summary.Failed {
		summary.Failed[i].Path = rel(summary.Failed[i].Path)
	}
	for i := range summary.Checks {
		summary.Checks[i].Path = rel(summary.Checks[i].Path)
	}
}
