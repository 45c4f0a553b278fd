package engine

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Sentinel errors. Every typed error below unwraps to one of them so callers
// can use errors.Is without caring about the details.
var (
	ErrAnchorNotFound   = errors.New("anchor not found")
	ErrAmbiguousAnchor  = errors.New("ambiguous anchor")
	ErrInvertedRegion   = errors.New("region start is after region end")
	ErrUnbalancedRegion = errors.New("unbalanced region")
	ErrPostPatchInvalid = errors.New("patched document is invalid")
	ErrIO               = errors.New("io failure")
)

// AnchorNotFoundError reports that none of the candidates matched at or after From.
type AnchorNotFoundError struct {
	Candidates []string
	From       int
}

func (e *AnchorNotFoundError) Error() string {
	return fmt.Sprintf("anchor not found: none of %q found at or after offset %d", e.Candidates, e.From)
}

func (e *AnchorNotFoundError) Unwrap() error { return ErrAnchorNotFound }

// AmbiguousAnchorError is returned in strict mode when the matched candidate
// occurs more than once in the search window.
type AmbiguousAnchorError struct {
	Candidate string
	Offsets   []int
}

func (e *AmbiguousAnchorError) Error() string {
	shown := e.Offsets
	suffix := ""
	if len(shown) > 5 {
		shown = shown[:5]
		suffix = ", ..."
	}
	parts := make([]string, len(shown))
	for i, off := range shown {
		parts[i] = fmt.Sprint(off)
	}
	return fmt.Sprintf("ambiguous anchor %q: %d occurrences at offsets [%s%s]",
		e.Candidate, len(e.Offsets), strings.Join(parts, ", "), suffix)
}

func (e *AmbiguousAnchorError) Unwrap() error { return ErrAmbiguousAnchor }

// InvertedRegionError means the end edge resolved before the start edge.
type InvertedRegionError struct {
	Start, End int
}

func (e *InvertedRegionError) Error() string {
	return fmt.Sprintf("region start %d is after region end %d", e.Start, e.End)
}

func (e *InvertedRegionError) Unwrap() error { return ErrInvertedRegion }

// UnbalancedRegionError reports a structural problem in the replacement text.
// Position is a byte offset into the validated text; errors returned by
// Engine.Apply are rebased onto the patched document.
type UnbalancedRegionError struct {
	Position int
	Reason   string
}

func (e *UnbalancedRegionError) Error() string {
	return fmt.Sprintf("unbalanced region at offset %d: %s", e.Position, e.Reason)
}

func (e *UnbalancedRegionError) Unwrap() error { return ErrUnbalancedRegion }

// PostPatchInvalidError is the verification failure reported by a Parser.
// Position is the byte offset of the offending input, or -1 when the parser
// could not tell. Line and Column are 1-based and zero when unknown.
type PostPatchInvalidError struct {
	Position int
	Line     int
	Column   int
	Message  string
}

func (e *PostPatchInvalidError) Error() string {
	if e.Position < 0 {
		return fmt.Sprintf("patched document is invalid: %s", e.Message)
	}
	return fmt.Sprintf("patched document is invalid at offset %d (line %d, column %d): %s",
		e.Position, e.Line, e.Column, e.Message)
}

func (e *PostPatchInvalidError) Unwrap() error { return ErrPostPatchInvalid }

// PatchError wraps any failure of a patch with the stage it failed in.
// Index is the position of the patch within an ApplyAll batch.
type PatchError struct {
	Stage   Stage
	Index   int
	Err     error
	Snippet string
}

func (e *PatchError) Error() string {
	msg := fmt.Sprintf("patch %d rejected at %s: %v", e.Index, e.Stage, e.Err)
	if e.Snippet != "" {
		msg += fmt.Sprintf(" near `%s`", e.Snippet)
	}
	return msg
}

func (e *PatchError) Unwrap() error { return e.Err }

// StageOf returns the stage a patch failed at, or StageRejected when err is
// not a PatchError.
func StageOf(err error) Stage {
	var pe *PatchError
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return StageRejected
}

// Snippet returns a single-line excerpt of text around pos with a `|`
// marking the position. radius is measured in bytes and widened to rune
// boundaries.
func Snippet(text string, pos, radius int) string {
	if pos < 0 || pos > len(text) {
		return ""
	}
	lo := pos - radius
	if lo < 0 {
		lo = 0
	}
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	hi := pos + radius
	if hi > len(text) {
		hi = len(text)
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}

	flatten := strings.NewReplacer("\r", `\r`, "\n", `\n`, "\t", `\t`)
	var b strings.Builder
	if lo > 0 {
		b.WriteString("...")
	}
	b.WriteString(flatten.Replace(text[lo:pos]))
	b.WriteString("|")
	b.WriteString(flatten.Replace(text[pos:hi]))
	if hi < len(text) {
		b.WriteString("...")
	}
	return b.String()
}

// lineColumn converts a byte offset to a 1-based line and column.
func lineColumn(text string, pos int) (int, int) {
	if pos < 0 {
		return 0, 0
	}
	if pos > len(text) {
		pos = len(text)
	}
	line := 1 + strings.Count(text[:pos], "\n")
	col := pos - strings.LastIndex(text[:pos], "\n")
	return line, col
}
