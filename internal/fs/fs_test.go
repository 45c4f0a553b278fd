package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sokinpui/anchorpatch/engine"
)

func TestReadDocumentDetectsFormat(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "curriculum.json")
	tsPath := filepath.Join(dir, "practiceProblems.ts")
	if err := os.WriteFile(jsonPath, []byte(`{"a": 1}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tsPath, []byte("export const x = 1;\n"), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := ReadDocument(jsonPath, "")
	if err != nil {
		t.Fatalf("ReadDocument() = %v", err)
	}
	if doc.Format != engine.FormatJSON || doc.Text != `{"a": 1}` || doc.Path != jsonPath {
		t.Errorf("unexpected document %+v", doc)
	}

	doc, err = ReadDocument(tsPath, "")
	if err != nil {
		t.Fatalf("ReadDocument() = %v", err)
	}
	if doc.Format != engine.FormatSourceText {
		t.Errorf("format = %q, want source-text", doc.Format)
	}

	doc, err = ReadDocument(tsPath, engine.FormatJSON)
	if err != nil {
		t.Fatalf("ReadDocument() = %v", err)
	}
	if doc.Format != engine.FormatJSON {
		t.Errorf("override ignored, format = %q", doc.Format)
	}
}

func TestReadDocumentMissingFileIsIOError(t *testing.T) {
	_, err := ReadDocument(filepath.Join(t.TempDir(), "nope.json"), "")
	if !errors.Is(err, engine.ErrIO) {
		t.Fatalf("ReadDocument() = %v, want ErrIO", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("underlying not-exist error lost: %v", err)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.json")
	if err := os.WriteFile(path, []byte("old"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := WriteDocument(engine.Document{Path: path, Text: "new"}); err != nil {
		t.Fatalf("WriteDocument() = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new" {
		t.Errorf("content = %q, want new", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("perm = %v, want 0600", info.Mode().Perm())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestWriteFileAtomicMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "c.json")
	err := WriteFileAtomic(path, []byte("x"), 0644)
	if !errors.Is(err, engine.ErrIO) {
		t.Fatalf("WriteFileAtomic() = %v, want ErrIO", err)
	}
	if Exists(path) {
		t.Errorf("file was created")
	}
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	if err := os.WriteFile(path, []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile() = %v", err)
	}
	if want := Hash([]byte("abc")); got != want {
		t.Errorf("HashFile() = %s, want %s", got, want)
	}
	if len(got) != 64 {
		t.Errorf("digest length = %d, want 64", len(got))
	}
	if Hash([]byte("abd")) == got {
		t.Errorf("different content hashed equal")
	}
}

func TestPathResolver(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	if err := os.WriteFile(filepath.Join(b, "x.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	r := NewPathResolver([]string{a, b})

	if got := r.Resolve("x.json"); got != filepath.Join(b, "x.json") {
		t.Errorf("Resolve(existing) = %s", got)
	}
	if got := r.Resolve("y.json"); got != filepath.Join(a, "y.json") {
		t.Errorf("Resolve(missing) = %s", got)
	}
	if got := r.ResolveExisting("y.json"); got != "" {
		t.Errorf("ResolveExisting(missing) = %s", got)
	}
}
