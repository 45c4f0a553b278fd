package engine

// Region is the half-open byte range [Start, End) of a document.
type Region struct {
	Start int
	End   int
}

// Len returns the number of bytes covered.
func (r Region) Len() int { return r.End - r.Start }

// Text returns the region's slice of text.
func (r Region) Text(text string) string { return text[r.Start:r.End] }

// Patch asks for the text between Start and End to be replaced.
type Patch struct {
	Start       Anchor
	End         Anchor
	Replacement string
}

// Resolve locates both anchors of p in text. The end anchor is searched
// from the later of its own From, the end of the start match and the start
// edge, so it can never resolve inside the start anchor.
func Resolve(text string, p Patch) (Region, Match, Match, error) {
	start, err := Locate(text, p.Start)
	if err != nil {
		return Region{}, Match{}, Match{}, err
	}
	startEdge, err := edge(text, start, p.Start, BoundaryAfter)
	if err != nil {
		return Region{}, start, Match{}, err
	}

	endAnchor := p.End
	endAnchor.From = max(endAnchor.From, start.End, startEdge)
	end, err := Locate(text, endAnchor)
	if err != nil {
		return Region{}, start, Match{}, err
	}
	endEdge, err := edge(text, end, p.End, BoundaryBefore)
	if err != nil {
		return Region{}, start, end, err
	}

	if startEdge > endEdge {
		return Region{}, start, end, &InvertedRegionError{Start: startEdge, End: endEdge}
	}
	return Region{Start: startEdge, End: endEdge}, start, end, nil
}

// Splice replaces r in text. It does not validate anything.
func Splice(text string, r Region, replacement string) string {
	return text[:r.Start] + replacement + text[r.End:]
}
