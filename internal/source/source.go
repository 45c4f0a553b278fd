package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/sokinpui/anchorpatch/internal/ui"
)

// SourceProvider determines and retrieves the replacement text when none is
// given on the command line.
type SourceProvider struct {
	stdin     *os.File
	clipboard func() (string, error)
}

// New creates a new SourceProvider.
func New() *SourceProvider {
	return &SourceProvider{stdin: os.Stdin, clipboard: clipboard.ReadAll}
}

// GetContent retrieves content from stdin (if piped) or the clipboard.
func (sp *SourceProvider) GetContent() (string, error) {
	if sp.isPiped() {
		ui.Header("--- Reading replacement from stdin ---")
		content, err := io.ReadAll(sp.stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		return string(content), nil
	}

	ui.Header("--- Reading replacement from clipboard ---")
	content, err := sp.clipboard()
	if err != nil {
		return "", fmt.Errorf("failed to read from clipboard: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		ui.Warning("Clipboard is empty. The region will be cleared.")
	}
	return content, nil
}

func (sp *SourceProvider) isPiped() bool {
	if sp.stdin == nil {
		return false
	}
	stat, err := sp.stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
