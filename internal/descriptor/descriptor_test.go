package descriptor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/anchorpatch/engine"
)

const curriculumFix = `
patches:
  - file: data/curriculum/c.json
    start: '"id": "c6"'
    start_boundary: before
    widen_to: "{"
    end: ['"id": "c7"', "],"]
    end_boundary: before
    strict: true
    replacement: |
      {"id": "c6", "title": "Loops"},
  - file: data/practiceProblems.ts
    format: source-text
    start: ["id: 'p3',"]
    end: "\n};"
    skip_past: [","]
    replacement_file: fix.ts
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(curriculumFix))
	require.NoError(t, err)
	require.Len(t, f.Patches, 2)

	first := f.Patches[0]
	assert.Equal(t, Literals{`"id": "c6"`}, first.Start)
	assert.Equal(t, Literals{`"id": "c7"`, "],"}, first.End)
	require.NotNil(t, first.Replacement)
	assert.Equal(t, "{\"id\": \"c6\", \"title\": \"Loops\"},\n", *first.Replacement)

	p := first.Patch()
	assert.Equal(t, engine.BoundaryBefore, p.Start.Boundary)
	assert.Equal(t, "{", p.Start.WidenTo)
	assert.True(t, p.Start.Strict)
	assert.True(t, p.End.Strict)
	assert.Equal(t, engine.Format(""), first.DocumentFormat())

	second := f.Patches[1]
	assert.Equal(t, "fix.ts", second.ReplacementFile)
	assert.Nil(t, second.Replacement)
	assert.Equal(t, engine.FormatSourceText, second.DocumentFormat())
	assert.Equal(t, []string{","}, second.Patch().End.SkipPast)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", ""},
		{"no patches", "patches: []"},
		{"missing file", "patches:\n  - start: a\n    end: b\n    replacement: x\n"},
		{"missing start", "patches:\n  - file: a.json\n    end: b\n    replacement: x\n"},
		{"missing end", "patches:\n  - file: a.json\n    start: a\n    replacement: x\n"},
		{"no replacement", "patches:\n  - file: a.json\n    start: a\n    end: b\n"},
		{"two replacements", "patches:\n  - file: a.json\n    start: a\n    end: b\n    replacement: x\n    replacement_file: y\n"},
		{"bad boundary", "patches:\n  - file: a.json\n    start: a\n    start_boundary: middle\n    end: b\n    replacement: x\n"},
		{"bad format", "patches:\n  - file: a.json\n    format: xml\n    start: a\n    end: b\n    replacement: x\n"},
		{"anchor mapping", "patches:\n  - file: a.json\n    start: {x: 1}\n    end: b\n    replacement: x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "descriptor:")
		})
	}
}

func TestParseEmptyReplacementIsAllowed(t *testing.T) {
	f, err := Parse([]byte("patches:\n  - file: a.json\n    start: a\n    end: b\n    replacement: \"\"\n"))
	require.NoError(t, err)
	require.NotNil(t, f.Patches[0].Replacement)
	assert.Equal(t, "", f.Patches[0].Patch().Replacement)
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fix.ts"), []byte("\n  estimatedTime: 2,"), 0644))
	path := filepath.Join(dir, "fix.yaml")
	require.NoError(t, os.WriteFile(path, []byte(curriculumFix), 0644))

	f, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "data", "curriculum", "c.json"), f.Patches[0].File)
	second := f.Patches[1]
	assert.Equal(t, filepath.Join(dir, "fix.ts"), second.ReplacementFile)
	require.NotNil(t, second.Replacement)
	assert.Equal(t, "\n  estimatedTime: 2,", second.Patch().Replacement)
}

func TestLoadMissingReplacementFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fix.yaml")
	require.NoError(t, os.WriteFile(path, []byte(curriculumFix), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read replacement")
}

func TestCodeBlockFor(t *testing.T) {
	md := "Here is the fix:\n\n```json\n{\"id\": \"c6\"},\n```\n\nAnd the data file:\n\n```typescript\nestimatedTime: 2,\n```\n"

	blocks, err := ExtractCodeBlocks([]byte(md))
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "json", blocks[0].Lang)
	assert.Equal(t, "typescript", blocks[1].Lang)

	got, err := CodeBlockFor([]byte(md), "curriculum.json")
	require.NoError(t, err)
	assert.Equal(t, `{"id": "c6"},`, got)

	got, err = CodeBlockFor([]byte(md), "data/practiceProblems.ts")
	require.NoError(t, err)
	assert.Equal(t, "estimatedTime: 2,", got)

	got, err = CodeBlockFor([]byte(md), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, `{"id": "c6"},`, got, "falls back to the first block")

	_, err = CodeBlockFor([]byte("no fences here"), "a.json")
	assert.ErrorIs(t, err, ErrNoCodeBlock)
}
