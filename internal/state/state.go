package state

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sokinpui/anchorpatch/internal/fs"
	"github.com/sokinpui/anchorpatch/model"
)

const (
	stateDirName  = ".anchorpatch"
	stateFileName = "state"
	ObjectsDir    = "objects"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Operation records one committed file patch by content hash. The
// content behind each hash is kept in the objects directory.
type Operation struct {
	Path       string
	BeforeHash string
	AfterHash  string
}

// Change is a committed patch as seen by the patcher.
type Change struct {
	Path   string
	Before []byte
	After  []byte
}

// HistoryEntry represents one complete run of the tool.
type HistoryEntry struct {
	ID         string
	Timestamp  int64
	Operations []Operation
}

// State represents the entire state file.
type State struct {
	History      []HistoryEntry
	CurrentIndex int
}

// Manager handles the lifecycle of the state file.
type Manager struct {
	statePath string
	state     *State
	StateDir  string
}

// findGitRoot finds the root of the git repository.
func findGitRoot() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// New creates and loads a state manager rooted at the git top level, or
// the working directory outside a repository.
func New() (*Manager, error) {
	rootDir, err := findGitRoot()
	if err != nil {
		rootDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current working directory: %w", err)
		}
	}
	return NewAt(filepath.Join(rootDir, stateDirName))
}

// NewAt creates and loads a state manager using stateDir directly.
func NewAt(stateDir string) (*Manager, error) {
	if err := os.MkdirAll(filepath.Join(stateDir, ObjectsDir), 0755); err != nil {
		return nil, fmt.Errorf("could not create state directory: %w", err)
	}
	m := &Manager{
		statePath: filepath.Join(stateDir, stateFileName),
		StateDir:  stateDir,
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	m.state = &State{CurrentIndex: -1}

	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not read state file: %w", err)
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	blocks := strings.Split(content, "\n\n")
	if len(blocks) == 0 || strings.TrimSpace(blocks[0]) == "" {
		return nil
	}

	// First block is current index
	index, err := strconv.Atoi(strings.TrimSpace(blocks[0]))
	if err != nil {
		return fmt.Errorf("invalid state file: could not parse current index: %w", err)
	}

	var history []HistoryEntry
	for _, block := range blocks[1:] {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")

		header := strings.Fields(lines[0])
		if len(header) != 2 {
			return fmt.Errorf("invalid state file: bad entry header '%s'", lines[0])
		}
		ts, err := strconv.ParseInt(header[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid state file: could not parse timestamp from '%s': %w", header[1], err)
		}

		entry := HistoryEntry{ID: header[0], Timestamp: ts}
		opLines := lines[1:]
		if len(opLines)%3 != 0 {
			return fmt.Errorf("invalid state file: incomplete operation record in entry %s", entry.ID)
		}
		for i := 0; i < len(opLines); i += 3 {
			entry.Operations = append(entry.Operations, Operation{
				Path:       opLines[i],
				BeforeHash: opLines[i+1],
				AfterHash:  opLines[i+2],
			})
		}
		history = append(history, entry)
	}

	if index < -1 || index >= len(history) {
		return fmt.Errorf("invalid state file: index %d out of range", index)
	}
	m.state = &State{CurrentIndex: index, History: history}
	return nil
}

func (m *Manager) save() error {
	blocks := []string{strconv.Itoa(m.state.CurrentIndex)}

	for _, entry := range m.state.History {
		var b strings.Builder
		fmt.Fprintf(&b, "%s %d", entry.ID, entry.Timestamp)
		for _, op := range entry.Operations {
			fmt.Fprintf(&b, "\n%s\n%s\n%s", op.Path, op.BeforeHash, op.AfterHash)
		}
		blocks = append(blocks, b.String())
	}

	content := strings.Join(blocks, "\n\n") + "\n"
	if err := fs.WriteFileAtomic(m.statePath, []byte(content), 0644); err != nil {
		return fmt.Errorf("could not save state: %w", err)
	}
	return nil
}

// History returns the recorded entries and the index of the current one.
func (m *Manager) History() ([]HistoryEntry, int) {
	return m.state.History, m.state.CurrentIndex
}

// Record stores snapshots of each change and appends one history entry,
// discarding anything that could have been redone.
func (m *Manager) Record(changes []Change) (HistoryEntry, error) {
	ops := make([]Operation, 0, len(changes))
	for _, c := range changes {
		before, err := m.store(c.Before)
		if err != nil {
			return HistoryEntry{}, err
		}
		after, err := m.store(c.After)
		if err != nil {
			return HistoryEntry{}, err
		}
		ops = append(ops, Operation{Path: c.Path, BeforeHash: before, AfterHash: after})
	}
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].Path < ops[j].Path
	})

	if m.state.CurrentIndex < len(m.state.History)-1 {
		m.state.History = m.state.History[:m.state.CurrentIndex+1]
	}
	entry := HistoryEntry{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC().Unix(),
		Operations: ops,
	}
	m.state.History = append(m.state.History, entry)
	m.state.CurrentIndex++
	return entry, m.save()
}

// Undo restores the before snapshot of every file in the current entry.
// A file is skipped when its content no longer matches what was written.
func (m *Manager) Undo() (model.Summary, error) {
	if m.state.CurrentIndex < 0 {
		return model.Summary{}, ErrNothingToUndo
	}
	entry := m.state.History[m.state.CurrentIndex]
	summary := m.restore(entry.Operations, "undo", func(op Operation) (string, string) {
		return op.AfterHash, op.BeforeHash
	})
	if refused(summary) {
		summary.Message = fmt.Sprintf("Undo of %s refused; history unchanged", entry.ID)
		return summary, nil
	}
	m.state.CurrentIndex--
	summary.Message = fmt.Sprintf("Reverted %d file(s) from %s", len(summary.Patched), entry.ID)
	return summary, m.save()
}

// Redo reapplies the entry after the current one.
func (m *Manager) Redo() (model.Summary, error) {
	next := m.state.CurrentIndex + 1
	if next >= len(m.state.History) {
		return model.Summary{}, ErrNothingToRedo
	}
	entry := m.state.History[next]
	summary := m.restore(entry.Operations, "redo", func(op Operation) (string, string) {
		return op.BeforeHash, op.AfterHash
	})
	if refused(summary) {
		summary.Message = fmt.Sprintf("Redo of %s refused; history unchanged", entry.ID)
		return summary, nil
	}
	m.state.CurrentIndex = next
	summary.Message = fmt.Sprintf("Redid %d file(s) from %s", len(summary.Patched), entry.ID)
	return summary, m.save()
}

// refused reports whether a restore failed for every file it touched.
func refused(s model.Summary) bool {
	return len(s.Patched) == 0 && len(s.Failed) > 0
}

func (m *Manager) restore(ops []Operation, stage string, hashes func(Operation) (expect, target string)) model.Summary {
	var summary model.Summary
	for _, op := range ops {
		expect, target := hashes(op)
		if err := m.restoreFile(op.Path, expect, target); err != nil {
			summary.Failed = append(summary.Failed, model.Failure{Path: op.Path, Stage: stage, Reason: err.Error()})
			continue
		}
		summary.Patched = append(summary.Patched, op.Path)
	}
	return summary
}

func (m *Manager) restoreFile(path, expect, target string) error {
	current, err := fs.HashFile(path)
	if err != nil {
		return fmt.Errorf("could not hash file: %w", err)
	}
	if current != expect {
		return fmt.Errorf("file was modified since the patch, refusing to overwrite")
	}
	data, err := os.ReadFile(m.objectPath(target))
	if err != nil {
		return fmt.Errorf("missing snapshot %s: %w", target, err)
	}
	perm := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	return fs.WriteFileAtomic(path, data, perm)
}

// store writes data to the objects directory under its hash.
func (m *Manager) store(data []byte) (string, error) {
	hash := fs.Hash(data)
	path := m.objectPath(hash)
	if fs.Exists(path) {
		return hash, nil
	}
	if err := fs.WriteFileAtomic(path, data, 0644); err != nil {
		return "", fmt.Errorf("could not store snapshot: %w", err)
	}
	return hash, nil
}

func (m *Manager) objectPath(hash string) string {
	return filepath.Join(m.StateDir, ObjectsDir, hash)
}
