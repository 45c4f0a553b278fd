package anchorpatch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokinpui/anchorpatch/anchorpatch"
	"github.com/sokinpui/anchorpatch/cli"
	"github.com/sokinpui/anchorpatch/engine"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// chdir changes the working directory for the duration of the test
// (equivalent to testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestPatch(t *testing.T) {
	got, err := anchorpatch.Patch(`{"a": 1, "b": 2}`, engine.FormatJSON,
		[]string{`"a": 1,`}, []string{`"b": 2}`}, ` "c": 3,`)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1, "c": 3,"b": 2}`, got)

	got, err = anchorpatch.Patch(`{"a": 1, "b": 2}`, engine.FormatJSON,
		[]string{`"missing"`}, []string{`}`}, "x")
	assert.ErrorIs(t, err, engine.ErrAnchorNotFound)
	assert.Equal(t, `{"a": 1, "b": 2}`, got)
}

func TestExecuteInlineUndoRedo(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	stateDir := filepath.Join(dir, ".anchorpatch")
	writeFile(t, "c.json", `{"a": 1, "b": 2}`)

	run := func(cfg *cli.Config) {
		t.Helper()
		cfg.StateDir = stateDir
		cfg.NoAnimation = true
		app, err := anchorpatch.New(cfg)
		require.NoError(t, err)
		defer app.Close()
		summary, err := app.Execute(context.Background())
		require.NoError(t, err)
		require.Empty(t, summary.Failed)
	}

	run(&cli.Config{
		File:           "c.json",
		Start:          []string{`"a": 1,`},
		End:            []string{`"b": 2}`},
		Replacement:    ` "c": 3,`,
		ReplacementSet: true,
	})
	assert.Equal(t, `{"a": 1, "c": 3,"b": 2}`, readFile(t, "c.json"))

	run(&cli.Config{Undo: true})
	assert.Equal(t, `{"a": 1, "b": 2}`, readFile(t, "c.json"))

	run(&cli.Config{Redo: true})
	assert.Equal(t, `{"a": 1, "c": 3,"b": 2}`, readFile(t, "c.json"))
}

func TestExecuteReportsRejectedFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, "c.json", `{"x": "ab}cd"}`)

	app, err := anchorpatch.New(&cli.Config{
		File:           "c.json",
		Start:          []string{`"x": `},
		End:            []string{`}`},
		Replacement:    `"ab`,
		ReplacementSet: true,
		StateDir:       filepath.Join(dir, ".anchorpatch"),
	})
	require.NoError(t, err)
	summary, err := app.Execute(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Failed, 1)
	assert.Equal(t, "c.json", summary.Failed[0].Path)
	assert.Equal(t, "validated", summary.Failed[0].Stage)
	assert.False(t, summary.OK())
	assert.Equal(t, `{"x": "ab}cd"}`, readFile(t, "c.json"))
}

func TestExecuteCodeBlockReplacementFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, "p.ts", "export const p = {\n  id: 'p3',\n};\n")
	writeFile(t, "answer.md", "Add the field:\n\n```ts\n estimatedTime: 2,\n```\n")

	app, err := anchorpatch.New(&cli.Config{
		File:            "p.ts",
		Start:           []string{"id: 'p3',"},
		End:             []string{"\n};"},
		ReplacementFile: "answer.md",
		CodeBlock:       true,
		StateDir:        filepath.Join(dir, ".anchorpatch"),
	})
	require.NoError(t, err)
	summary, err := app.Execute(context.Background())
	require.NoError(t, err)
	require.Empty(t, summary.Failed)
	assert.Equal(t, "export const p = {\n  id: 'p3', estimatedTime: 2,\n};\n", readFile(t, "p.ts"))
}

func TestApplyDescriptorDryRun(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, "c.json", "{\"a\": 1, \"b\": 2}\n")
	writeFile(t, "fix.yaml", "patches:\n  - file: c.json\n    start: '\"a\": 1,'\n    end: '\"b\": 2}'\n    replacement: ' \"c\": 3,'\n")

	summary, err := anchorpatch.ApplyDescriptor(context.Background(), "fix.yaml", anchorpatch.Config{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"c.json"}, summary.Patched)
	assert.Contains(t, summary.Diff, `+{"a": 1, "c": 3,"b": 2}`)
	assert.Equal(t, "{\"a\": 1, \"b\": 2}\n", readFile(t, "c.json"))
	_, err = os.Stat(filepath.Join(dir, ".anchorpatch"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "dry run created history")
}

func TestExecuteCheck(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, "good.json", `{"a": [1, 2]}`)
	writeFile(t, "bad.ts", "export const x = [{ id: 1 ];\n")

	app, err := anchorpatch.New(&cli.Config{Check: []string{"good.json", "bad.ts", "missing.json"}})
	require.NoError(t, err)
	summary, err := app.Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Checks, 3)

	assert.True(t, summary.Checks[0].Valid)
	assert.Equal(t, "braces: 0, brackets: 0, parens: 0 (BALANCED)", summary.Checks[0].Balance)

	assert.False(t, summary.Checks[1].Valid)
	assert.Equal(t, "source-text", summary.Checks[1].Format)
	assert.Equal(t, "typescript", summary.Checks[1].Grammar)
	assert.Empty(t, summary.Checks[0].Grammar)
	assert.Equal(t, "braces: 1, brackets: 0, parens: 0 (UNBALANCED)", summary.Checks[1].Balance)

	assert.False(t, summary.Checks[2].Valid)
	assert.NotEmpty(t, summary.Checks[2].Error)
	assert.False(t, summary.OK())
}

func TestExecuteCheckUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, "a.json", `{"a": 1}`)

	app, err := anchorpatch.New(&cli.Config{Check: []string{"a.json"}, Format: "yaml"})
	require.NoError(t, err)
	_, err = app.Execute(context.Background())
	assert.ErrorContains(t, err, `unknown format "yaml"`)
}

func TestExecuteUndoWithoutHistory(t *testing.T) {
	dir := t.TempDir()
	app, err := anchorpatch.New(&cli.Config{Undo: true, StateDir: filepath.Join(dir, ".anchorpatch")})
	require.NoError(t, err)
	summary, err := app.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "No operation to undo.", summary.Message)
}
