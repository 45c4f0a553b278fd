package engine

import (
	"errors"
	"testing"
)

func TestValidateRegion(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		text    string
		wantPos int // -1 means valid
	}{
		{"json empty", FormatJSON, ``, -1},
		{"json paired quotes", FormatJSON, `"a": "b", "c": [1, 2]`, -1},
		{"json escaped quote inside string", FormatJSON, `"say \"hi\""`, -1},
		{"json escaped backslash before quote", FormatJSON, `"path\\"`, -1},
		{"json unescaped content inside a string field", FormatJSON, `He said \"hi\"`, -1},
		{"json closers are not counted", FormatJSON, `1}], {"id": 2`, -1},
		{"json unterminated string", FormatJSON, `"a": "b`, 5},
		{"json dangling backslash", FormatJSON, `"a": 1 \`, 7},
		{"source balanced", FormatSourceText, `{ a: [1, (2)] }`, -1},
		{"source openers only", FormatSourceText, `{ a: [`, -1},
		{"source closes too much", FormatSourceText, `a: 1 }`, 5},
		{"source closes wrong kind", FormatSourceText, `{ a: 1 ]`, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegion(tt.format, tt.text)
			if tt.wantPos < 0 {
				if err != nil {
					t.Fatalf("ValidateRegion() = %v, want nil", err)
				}
				return
			}
			var ue *UnbalancedRegionError
			if !errors.As(err, &ue) {
				t.Fatalf("ValidateRegion() = %v, want UnbalancedRegionError", err)
			}
			if ue.Position != tt.wantPos {
				t.Errorf("position = %d, want %d (%s)", ue.Position, tt.wantPos, ue.Reason)
			}
		})
	}
}

func TestBalance(t *testing.T) {
	r := Balance(`function f() { return [1, 2]; }`)
	if !r.Balanced() {
		t.Errorf("expected balanced, got %s", r)
	}

	r = Balance(`const x = { a: [1, 2) `)
	want := BalanceReport{Braces: 1, Brackets: 1, Parens: -1}
	if r != want {
		t.Errorf("Balance() = %+v, want %+v", r, want)
	}
	if r.String() != "braces: 1, brackets: 1, parens: -1 (UNBALANCED)" {
		t.Errorf("String() = %q", r.String())
	}
}
