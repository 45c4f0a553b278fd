package nvim

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/neovim/go-client/nvim"
)

// AddressEnv names the variable holding the socket of a running Neovim.
const AddressEnv = "NVIM_LISTEN_ADDRESS"

// Refresher makes a running Neovim reload buffers whose files were patched.
type Refresher struct {
	addr string
}

// FromEnv returns a Refresher for the Neovim at $NVIM_LISTEN_ADDRESS, or
// nil when it is not set.
func FromEnv() *Refresher {
	addr := os.Getenv(AddressEnv)
	if addr == "" {
		return nil
	}
	return &Refresher{addr: addr}
}

// Refresh connects to Neovim and runs checktime so buffers of the given
// files pick up the new content.
func (r *Refresher) Refresh(paths []string) error {
	if r == nil || len(paths) == 0 {
		return nil
	}
	v, err := nvim.Dial(r.addr)
	if err != nil {
		return fmt.Errorf("failed to connect to nvim at %s: %w", r.addr, err)
	}
	defer v.Close()

	b := v.NewBatch()
	for _, p := range paths {
		absPath, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		b.Command(fmt.Sprintf("checktime %s", fnameEscape(absPath)))
	}
	if err := b.Execute(); err != nil {
		return fmt.Errorf("failed to refresh nvim buffers: %w", err)
	}
	return nil
}

// fnameEscape escapes characters Ex commands treat specially in file names.
func fnameEscape(path string) string {
	var out []rune
	for _, r := range path {
		switch r {
		case ' ', '\\', '%', '#', '|', '"':
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
