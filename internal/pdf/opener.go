// Package pdf reads source documents: text extraction, content
// fingerprints, identifier detection, and opening a document in a viewer.
package pdf

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Opener resolves stored document paths and opens them in a viewer.
type Opener struct {
	root   string
	viewer string
}

// NewOpener returns an opener. Relative paths resolve against root.
func NewOpener(root, viewer string) *Opener {
	if viewer == "" {
		viewer = "system"
	}
	return &Opener{root: root, viewer: viewer}
}

// ResolvePath returns an absolute path to an existing document.
func (o *Opener) ResolvePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("no document path recorded")
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(o.root, path)
	}

	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("document not found: %s", fullPath)
		}
		return "", fmt.Errorf("checking document: %w", err)
	}
	return fullPath, nil
}

// Command returns the viewer command for fullPath without starting it.
func (o *Opener) Command(fullPath string) (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "darwin":
		return o.darwinCommand(fullPath), nil
	case "linux":
		return o.linuxCommand(fullPath), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// Open starts the viewer on fullPath and returns without waiting.
func (o *Opener) Open(fullPath string) error {
	cmd, err := o.Command(fullPath)
	if err != nil {
		return err
	}
	return cmd.Start()
}

func (o *Opener) darwinCommand(path string) *exec.Cmd {
	switch o.viewer {
	case "skim":
		return exec.Command("open", "-a", "Skim", path)
	case "preview":
		return exec.Command("open", "-a", "Preview", path)
	default: // "system"
		return exec.Command("open", path)
	}
}

func (o *Opener) linuxCommand(path string) *exec.Cmd {
	switch o.viewer {
	case "zathura":
		return exec.Command("zathura", path)
	case "evince":
		return exec.Command("evince", path)
	case "okular":
		return exec.Command("okular", path)
	default: // "system"
		return exec.Command("xdg-open", path)
	}
}
