package engine

import (
	"errors"

	"go.uber.org/zap"
)

// Stage is a step of the patch state machine.
type Stage int

const (
	StagePending Stage = iota
	StageLocated
	StageValidated
	StageApplied
	StageVerified
	StageCommitted
	StageRejected
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageLocated:
		return "located"
	case StageValidated:
		return "validated"
	case StageApplied:
		return "applied"
	case StageVerified:
		return "verified"
	case StageCommitted:
		return "committed"
	default:
		return "rejected"
	}
}

const snippetRadius = 24

// Result is the outcome of a patch. On failure Document is the original
// input and Stage is StageRejected.
type Result struct {
	Document   Document
	Region     Region
	StartMatch Match
	EndMatch   Match
	Stage      Stage
	Changed    bool
}

// BatchResult is the outcome of ApplyAll.
type BatchResult struct {
	Document Document
	Results  []Result
	Changed  bool
}

// Engine runs patches. It keeps no state between calls and is safe for
// concurrent use.
type Engine struct {
	logger  *zap.Logger
	parsers ParserLookup
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for debug tracing of each stage.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithParsers sets the parser lookup used to verify source-text documents.
func WithParsers(lookup ParserLookup) Option {
	return func(e *Engine) { e.parsers = lookup }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply runs one patch through the pipeline.
func (e *Engine) Apply(doc Document, p Patch) (Result, error) {
	res, err := e.apply(doc, p)
	if err != nil {
		e.logger.Debug("patch rejected",
			zap.String("path", doc.Path),
			zap.Stringer("stage", StageOf(err)),
			zap.Error(err))
		return Result{Document: doc, Stage: StageRejected}, err
	}
	return res, nil
}

// ApplyAll applies patches in order, each against the output of the
// previous one. The batch is all or nothing: on the first failure the
// original document is returned along with the failing patch's error.
func (e *Engine) ApplyAll(doc Document, patches ...Patch) (BatchResult, error) {
	current := doc
	results := make([]Result, 0, len(patches))
	changed := false
	for i, p := range patches {
		res, err := e.Apply(current, p)
		if err != nil {
			var pe *PatchError
			if errors.As(err, &pe) {
				pe.Index = i
			}
			return BatchResult{Document: doc}, err
		}
		results = append(results, res)
		changed = changed || res.Changed
		current = res.Document
	}
	return BatchResult{Document: current, Results: results, Changed: changed}, nil
}

func (e *Engine) apply(doc Document, p Patch) (Result, error) {
	log := e.logger.With(zap.String("path", doc.Path), zap.String("format", string(doc.Format)))

	region, start, end, err := Resolve(doc.Text, p)
	if err != nil {
		return Result{}, &PatchError{Stage: StageLocated, Err: err, Snippet: locateSnippet(doc.Text, err)}
	}
	log.Debug("anchors located",
		zap.String("start", start.Candidate),
		zap.Int("start_candidate", start.Index),
		zap.String("end", end.Candidate),
		zap.Int("end_candidate", end.Index),
		zap.Int("region_start", region.Start),
		zap.Int("region_end", region.End))

	if err := ValidateRegion(doc.Format, p.Replacement); err != nil {
		pos := -1
		var ue *UnbalancedRegionError
		if errors.As(err, &ue) {
			ue.Position += region.Start
			pos = ue.Position
		}
		candidate := Splice(doc.Text, region, p.Replacement)
		return Result{}, &PatchError{Stage: StageValidated, Err: err, Snippet: Snippet(candidate, pos, snippetRadius)}
	}

	patched := Splice(doc.Text, region, p.Replacement)
	log.Debug("region applied", zap.Int("replaced", region.Len()), zap.Int("inserted", len(p.Replacement)))

	if err := VerifyPatch(doc, doc.withText(patched), e.parsers); err != nil {
		var invalid *PostPatchInvalidError
		snippet := ""
		if errors.As(err, &invalid) && invalid.Position >= 0 {
			snippet = Snippet(patched, invalid.Position, snippetRadius)
		}
		return Result{}, &PatchError{Stage: StageVerified, Err: err, Snippet: snippet}
	}

	return Result{
		Document:   doc.withText(patched),
		Region:     region,
		StartMatch: start,
		EndMatch:   end,
		Stage:      StageCommitted,
		Changed:    patched != doc.Text,
	}, nil
}

func locateSnippet(text string, err error) string {
	var amb *AmbiguousAnchorError
	if errors.As(err, &amb) && len(amb.Offsets) > 1 {
		return Snippet(text, amb.Offsets[1], snippetRadius)
	}
	var inv *InvertedRegionError
	if errors.As(err, &inv) {
		return Snippet(text, inv.End, snippetRadius)
	}
	var nf *AnchorNotFoundError
	if errors.As(err, &nf) {
		return Snippet(text, min(max(nf.From, 0), len(text)), snippetRadius)
	}
	return ""
}
