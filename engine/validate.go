package engine

import "fmt"

// ValidateRegion checks the text about to fill a region.
//
// For JSON the text must not leave a string open: unescaped quotes pair up
// and no backslash is left dangling at the end. For source text no brace,
// bracket or paren may close more than has been opened so far.
func ValidateRegion(format Format, text string) error {
	if format == FormatJSON {
		return validateQuotes(text)
	}
	return validateNesting(text)
}

func validateQuotes(text string) error {
	inString := false
	escaped := false
	openAt, escapeAt := -1, -1
	for i := 0; i < len(text); i++ {
		if escaped {
			escaped = false
			continue
		}
		switch text[i] {
		case '\\':
			escaped = true
			escapeAt = i
		case '"':
			if !inString {
				openAt = i
			}
			inString = !inString
		}
	}
	if escaped {
		return &UnbalancedRegionError{Position: escapeAt, Reason: "dangling backslash"}
	}
	if inString {
		return &UnbalancedRegionError{Position: openAt, Reason: "unterminated string"}
	}
	return nil
}

var closers = map[byte]byte{'}': '{', ']': '[', ')': '('}

func validateNesting(text string) error {
	depth := map[byte]int{}
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '{', '[', '(':
			depth[c]++
		case '}', ']', ')':
			open := closers[c]
			depth[open]--
			if depth[open] < 0 {
				return &UnbalancedRegionError{
					Position: i,
					Reason:   fmt.Sprintf("%q closes more than it opens", c),
				}
			}
		}
	}
	return nil
}

// BalanceReport holds the net count of each delimiter kind; positive means
// more openers than closers.
type BalanceReport struct {
	Braces   int
	Brackets int
	Parens   int
}

// Balance counts braces, brackets and parens without looking at strings or
// comments.
func Balance(text string) BalanceReport {
	var r BalanceReport
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			r.Braces++
		case '}':
			r.Braces--
		case '[':
			r.Brackets++
		case ']':
			r.Brackets--
		case '(':
			r.Parens++
		case ')':
			r.Parens--
		}
	}
	return r
}

func (r BalanceReport) Balanced() bool {
	return r.Braces == 0 && r.Brackets == 0 && r.Parens == 0
}

func (r BalanceReport) String() string {
	state := "BALANCED"
	if !r.Balanced() {
		state = "UNBALANCED"
	}
	return fmt.Sprintf("braces: %d, brackets: %d, parens: %d (%s)", r.Braces, r.Brackets, r.Parens, state)
}
