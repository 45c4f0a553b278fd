package engine

import "strings"

// Boundary selects which side of an anchor match becomes the region edge.
type Boundary int

const (
	// BoundaryDefault is After for start anchors and Before for end anchors,
	// so the anchors themselves are kept and only the text between them is
	// replaced.
	BoundaryDefault Boundary = iota
	BoundaryBefore
	BoundaryAfter
)

func (b Boundary) String() string {
	switch b {
	case BoundaryBefore:
		return "before"
	case BoundaryAfter:
		return "after"
	default:
		return "default"
	}
}

// ParseBoundary converts "before", "after" or "" to a Boundary.
func ParseBoundary(name string) (Boundary, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return BoundaryDefault, true
	case "before":
		return BoundaryBefore, true
	case "after":
		return BoundaryAfter, true
	}
	return BoundaryDefault, false
}

// Anchor locates one edge of a region.
type Anchor struct {
	// Candidates are tried in order; the first one present wins.
	Candidates []string
	// From is the byte offset the search starts at.
	From int
	// Boundary picks the match side used as the edge.
	Boundary Boundary
	// Strict rejects a candidate that occurs more than once at or after From.
	Strict bool
	// WidenTo moves the edge left to the closest preceding occurrence of
	// this literal, e.g. "{" to take in the enclosing object.
	WidenTo string
	// SkipPast moves the edge right past each literal in turn.
	SkipPast []string
}

// Candidates builds an anchor from a priority ordered list of literals.
func Candidates(c ...string) Anchor {
	return Anchor{Candidates: c}
}

// Match describes which candidate an anchor resolved to and where.
type Match struct {
	Candidate string
	// Index is the candidate's position in Anchor.Candidates.
	Index  int
	Offset int
	End    int
}

// Locate finds the first candidate of a that occurs at or after a.From.
// Candidates are tried in priority order, not by position in the text.
func Locate(text string, a Anchor) (Match, error) {
	if a.From < 0 || a.From > len(text) {
		return Match{}, &AnchorNotFoundError{Candidates: a.Candidates, From: a.From}
	}
	window := text[a.From:]
	for i, candidate := range a.Candidates {
		if candidate == "" {
			continue
		}
		idx := strings.Index(window, candidate)
		if idx < 0 {
			continue
		}
		if a.Strict {
			if offsets := occurrences(text, candidate, a.From); len(offsets) > 1 {
				return Match{}, &AmbiguousAnchorError{Candidate: candidate, Offsets: offsets}
			}
		}
		off := a.From + idx
		return Match{Candidate: candidate, Index: i, Offset: off, End: off + len(candidate)}, nil
	}
	return Match{}, &AnchorNotFoundError{Candidates: a.Candidates, From: a.From}
}

// occurrences lists every offset of needle at or after from, overlaps included.
func occurrences(text, needle string, from int) []int {
	var offsets []int
	for pos := from; pos <= len(text); {
		idx := strings.Index(text[pos:], needle)
		if idx < 0 {
			break
		}
		offsets = append(offsets, pos+idx)
		pos += idx + 1
	}
	return offsets
}

// edge turns a match into a region edge and applies WidenTo and SkipPast.
func edge(text string, m Match, a Anchor, fallback Boundary) (int, error) {
	b := a.Boundary
	if b == BoundaryDefault {
		b = fallback
	}
	pos := m.Offset
	if b == BoundaryAfter {
		pos = m.End
	}

	if a.WidenTo != "" {
		idx := strings.LastIndex(text[:pos], a.WidenTo)
		if idx < 0 {
			return 0, &AnchorNotFoundError{Candidates: []string{a.WidenTo}, From: pos}
		}
		pos = idx
	}
	for _, lit := range a.SkipPast {
		if lit == "" {
			continue
		}
		idx := strings.Index(text[pos:], lit)
		if idx < 0 {
			return 0, &AnchorNotFoundError{Candidates: []string{lit}, From: pos}
		}
		pos += idx + len(lit)
	}
	return pos, nil
}
