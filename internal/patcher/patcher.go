// Package patcher applies anchor patches to files on disk: it reads each
// target, runs the engine, and either previews or commits the result.
package patcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sokinpui/anchorpatch/engine"
	"github.com/sokinpui/anchorpatch/internal/fs"
	"github.com/sokinpui/anchorpatch/internal/state"
	"github.com/sokinpui/anchorpatch/model"
)

// Job is one patch against one file. An empty Format is detected from the
// file extension.
type Job struct {
	Path   string
	Format engine.Format
	Patch  engine.Patch
}

// Recorder stores committed changes for undo.
type Recorder interface {
	Record(changes []state.Change) (state.HistoryEntry, error)
}

// Patcher runs jobs file by file.
type Patcher struct {
	engine   *engine.Engine
	history  Recorder
	logger   *zap.Logger
	dryRun   bool
	progress func(done, total int)
	refresh  func(paths []string) error
}

// Option configures a Patcher.
type Option func(*Patcher)

// WithHistory records every committed run.
func WithHistory(r Recorder) Option {
	return func(p *Patcher) { p.history = r }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Patcher) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithDryRun renders a diff instead of writing.
func WithDryRun(dryRun bool) Option {
	return func(p *Patcher) { p.dryRun = dryRun }
}

// WithProgress is called after each file.
func WithProgress(fn func(done, total int)) Option {
	return func(p *Patcher) { p.progress = fn }
}

// WithRefresh is called with the written paths after a commit, e.g. to
// reload editor buffers.
func WithRefresh(fn func(paths []string) error) Option {
	return func(p *Patcher) { p.refresh = fn }
}

// New creates a Patcher.
func New(eng *engine.Engine, opts ...Option) *Patcher {
	p := &Patcher{engine: eng, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type fileJobs struct {
	path    string
	format  engine.Format
	patches []engine.Patch
}

// group collects jobs per file, keeping the order files first appear in
// and the order of patches within each file.
func group(jobs []Job) []*fileJobs {
	var files []*fileJobs
	byPath := make(map[string]*fileJobs)
	for _, j := range jobs {
		f, ok := byPath[j.Path]
		if !ok {
			f = &fileJobs{path: j.Path}
			byPath[j.Path] = f
			files = append(files, f)
		}
		if f.format == "" {
			f.format = j.Format
		}
		f.patches = append(f.patches, j.Patch)
	}
	return files
}

// Run applies jobs. Each file is all or nothing and files are independent:
// a rejected file is reported in the summary and the rest still proceed.
func (p *Patcher) Run(ctx context.Context, jobs []Job) model.Summary {
	var summary model.Summary
	var changes []state.Change

	files := group(jobs)
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			summary.Failed = append(summary.Failed, model.Failure{
				Path: f.path, Stage: engine.StagePending.String(), Reason: err.Error(),
			})
			continue
		}

		change, diff, err := p.runFile(f)
		switch {
		case err != nil:
			summary.Failed = append(summary.Failed, model.Failure{
				Path: f.path, Stage: stageName(err), Reason: err.Error(),
			})
		case change == nil:
			summary.Unchanged = append(summary.Unchanged, f.path)
		default:
			summary.Patched = append(summary.Patched, f.path)
			summary.Diff += diff
			if !p.dryRun {
				changes = append(changes, *change)
			}
		}

		if p.progress != nil {
			p.progress(i+1, len(files))
		}
	}

	if p.dryRun {
		summary.Message = fmt.Sprintf("Dry run: %d file(s) would change", len(summary.Patched))
		return summary
	}
	summary.Message = fmt.Sprintf("Patched %d file(s)", len(summary.Patched))
	if len(changes) == 0 {
		return summary
	}

	if p.history != nil {
		entry, err := p.history.Record(changes)
		if err != nil {
			p.logger.Warn("could not record history", zap.Error(err))
			summary.Message += "; history not recorded: " + err.Error()
		} else {
			p.logger.Debug("history recorded", zap.String("entry", entry.ID), zap.Int("files", len(changes)))
		}
	}
	if p.refresh != nil {
		if err := p.refresh(summary.Patched); err != nil {
			p.logger.Warn("editor refresh failed", zap.Error(err))
		}
	}
	return summary
}

// commitError marks failures that happened after the engine accepted the
// patch.
type commitError struct{ err error }

func (e *commitError) Error() string { return e.err.Error() }
func (e *commitError) Unwrap() error { return e.err }

func stageName(err error) string {
	if _, ok := err.(*commitError); ok {
		return engine.StageCommitted.String()
	}
	return engine.StageOf(err).String()
}

// runFile returns a nil change when the patches leave the file as it was.
func (p *Patcher) runFile(f *fileJobs) (*state.Change, string, error) {
	log := p.logger.With(zap.String("path", f.path))

	doc, err := fs.ReadDocument(f.path, f.format)
	if err != nil {
		return nil, "", err
	}

	res, err := p.engine.ApplyAll(doc, f.patches...)
	if err != nil {
		log.Debug("file rejected", zap.Error(err))
		return nil, "", err
	}
	if !res.Changed {
		log.Debug("file unchanged")
		return nil, "", nil
	}

	change := &state.Change{Path: f.path, Before: []byte(doc.Text), After: []byte(res.Document.Text)}
	if p.dryRun {
		return change, Diff(f.path, doc.Text, res.Document.Text), nil
	}

	if err := fs.WriteDocument(res.Document); err != nil {
		return nil, "", &commitError{err: err}
	}
	log.Debug("file committed", zap.Int("patches", len(f.patches)))
	return change, "", nil
}
