// Package descriptor loads patch descriptors: YAML files listing which
// file to patch, the anchors bounding the region and its replacement.
package descriptor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sokinpui/anchorpatch/engine"
)

// Literals is a list of anchor candidates. In YAML it is either a single
// string or a sequence of strings.
type Literals []string

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (l *Literals) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = Literals{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*l = list
		return nil
	}
	return fmt.Errorf("line %d: anchor must be a string or a list of strings", node.Line)
}

// Entry is one patch of a descriptor file.
type Entry struct {
	File   string `yaml:"file"`
	Format string `yaml:"format,omitempty"`

	Start         Literals `yaml:"start"`
	StartFrom     int      `yaml:"start_from,omitempty"`
	StartBoundary string   `yaml:"start_boundary,omitempty"`
	WidenTo       string   `yaml:"widen_to,omitempty"`

	End         Literals `yaml:"end"`
	EndFrom     int      `yaml:"end_from,omitempty"`
	EndBoundary string   `yaml:"end_boundary,omitempty"`
	SkipPast    Literals `yaml:"skip_past,omitempty"`

	Strict bool `yaml:"strict,omitempty"`

	Replacement     *string `yaml:"replacement,omitempty"`
	ReplacementFile string  `yaml:"replacement_file,omitempty"`
}

// File is a parsed descriptor.
type File struct {
	Patches []Entry `yaml:"patches"`
}

// Validate checks every entry.
func (f File) Validate() error {
	if len(f.Patches) == 0 {
		return fmt.Errorf("descriptor: no patches")
	}
	for i, e := range f.Patches {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("descriptor: patch %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks that an entry names a file, both anchors and exactly one
// replacement source.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.File) == "" {
		return fmt.Errorf("file is required")
	}
	if !hasLiteral(e.Start) {
		return fmt.Errorf("start anchor is required")
	}
	if !hasLiteral(e.End) {
		return fmt.Errorf("end anchor is required")
	}
	if e.Replacement != nil && e.ReplacementFile != "" {
		return fmt.Errorf("replacement and replacement_file are mutually exclusive")
	}
	if e.Replacement == nil && e.ReplacementFile == "" {
		return fmt.Errorf("one of replacement or replacement_file is required")
	}
	if e.StartFrom < 0 || e.EndFrom < 0 {
		return fmt.Errorf("start_from and end_from must not be negative")
	}
	if _, ok := engine.ParseBoundary(e.StartBoundary); !ok {
		return fmt.Errorf("invalid start_boundary %q", e.StartBoundary)
	}
	if _, ok := engine.ParseBoundary(e.EndBoundary); !ok {
		return fmt.Errorf("invalid end_boundary %q", e.EndBoundary)
	}
	if e.Format != "" {
		if _, err := engine.ParseFormat(e.Format); err != nil {
			return err
		}
	}
	return nil
}

func hasLiteral(l Literals) bool {
	for _, s := range l {
		if s != "" {
			return true
		}
	}
	return false
}

// DocumentFormat returns the declared format, or "" to detect it from the
// file extension.
func (e Entry) DocumentFormat() engine.Format {
	if e.Format == "" {
		return ""
	}
	f, _ := engine.ParseFormat(e.Format)
	return f
}

// Patch converts the entry to an engine patch. Replacement must already be
// resolved; Load does that for replacement_file.
func (e Entry) Patch() engine.Patch {
	startBoundary, _ := engine.ParseBoundary(e.StartBoundary)
	endBoundary, _ := engine.ParseBoundary(e.EndBoundary)
	p := engine.Patch{
		Start: engine.Anchor{
			Candidates: e.Start,
			From:       e.StartFrom,
			Boundary:   startBoundary,
			Strict:     e.Strict,
			WidenTo:    e.WidenTo,
		},
		End: engine.Anchor{
			Candidates: e.End,
			From:       e.EndFrom,
			Boundary:   endBoundary,
			Strict:     e.Strict,
			SkipPast:   e.SkipPast,
		},
	}
	if e.Replacement != nil {
		p.Replacement = *e.Replacement
	}
	return p
}

// Parse decodes and validates a descriptor payload. replacement_file
// entries are left unresolved.
func Parse(data []byte) (File, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return File{}, fmt.Errorf("descriptor: payload is empty")
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("descriptor: decode: %w", err)
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Load reads a descriptor from disk. Relative file and replacement_file
// paths are resolved against the descriptor's directory, and each
// replacement_file is read into Replacement.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("descriptor: read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return File{}, fmt.Errorf("descriptor: %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range f.Patches {
		e := &f.Patches[i]
		e.File = resolve(base, e.File)
		if e.ReplacementFile == "" {
			continue
		}
		e.ReplacementFile = resolve(base, e.ReplacementFile)
		content, err := os.ReadFile(e.ReplacementFile)
		if err != nil {
			return File{}, fmt.Errorf("descriptor: patch %d: read replacement: %w", i, err)
		}
		s := string(content)
		e.Replacement = &s
	}
	return f, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
