package engine

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Parser is the opaque format check used by the verification pass. A
// failing Parse should return a *PostPatchInvalidError; other errors are
// wrapped into one without a position.
type Parser interface {
	Parse(text string) error
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(text string) error

func (f ParserFunc) Parse(text string) error { return f(text) }

// ParserLookup returns the parser for a source-text document, or nil to
// fall back to the delimiter balance check.
type ParserLookup func(doc Document) Parser

// JSONParser verifies a complete JSON value with nothing after it.
var JSONParser Parser = ParserFunc(parseJSON)

// BalanceParser verifies that every brace, bracket and paren is closed and
// nothing is closed twice.
var BalanceParser Parser = ParserFunc(parseBalance)

func parseJSON(text string) error {
	data := []byte(text)
	if json.Valid(data) {
		return nil
	}
	var v any
	err := json.Unmarshal(data, &v)
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		// Offset counts the bytes read including the offending one.
		pos := int(syntaxErr.Offset) - 1
		if pos < 0 {
			pos = 0
		}
		line, col := lineColumn(text, pos)
		return &PostPatchInvalidError{Position: pos, Line: line, Column: col, Message: syntaxErr.Error()}
	}
	if err == nil {
		err = errors.New("invalid JSON")
	}
	return &PostPatchInvalidError{Position: -1, Message: err.Error()}
}

func parseBalance(text string) error {
	if err := validateNesting(text); err != nil {
		var ue *UnbalancedRegionError
		errors.As(err, &ue)
		line, col := lineColumn(text, ue.Position)
		return &PostPatchInvalidError{Position: ue.Position, Line: line, Column: col, Message: ue.Reason}
	}
	if r := Balance(text); !r.Balanced() {
		line, col := lineColumn(text, len(text))
		return &PostPatchInvalidError{
			Position: len(text),
			Line:     line,
			Column:   col,
			Message:  fmt.Sprintf("unclosed delimiters at end of input: %s", r),
		}
	}
	return nil
}

// Verify parses the whole document in its declared format.
func Verify(doc Document, lookup ParserLookup) error {
	return verifyWith(sourceParsers(doc, lookup)[0], doc.Text)
}

// VerifyPatch verifies patched, the result of patching original. A source
// grammar that already rejects original cannot judge the patch, so the
// balance check takes over. When every check rejects original, only an
// unchanged document passes.
func VerifyPatch(original, patched Document, lookup ParserLookup) error {
	var first error
	for _, parser := range sourceParsers(patched, lookup) {
		err := verifyWith(parser, patched.Text)
		if err == nil {
			return nil
		}
		if first == nil {
			first = err
		}
		if verifyWith(parser, original.Text) == nil {
			return err
		}
	}
	if patched.Text == original.Text {
		return nil
	}
	return first
}

// sourceParsers lists the checks for doc, strictest first.
func sourceParsers(doc Document, lookup ParserLookup) []Parser {
	if doc.Format == FormatJSON {
		return []Parser{JSONParser}
	}
	if lookup != nil {
		if p := lookup(doc); p != nil {
			return []Parser{p, BalanceParser}
		}
	}
	return []Parser{BalanceParser}
}

func verifyWith(parser Parser, text string) error {
	err := parser.Parse(text)
	if err == nil {
		return nil
	}
	var invalid *PostPatchInvalidError
	if errors.As(err, &invalid) {
		return invalid
	}
	return &PostPatchInvalidError{Position: -1, Message: err.Error()}
}
