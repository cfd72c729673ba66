package fetch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OlsenJo/data-extract-app/internal/run"
)

// Spool writes retrieved payloads under a single directory so they can be
// inspected after a run. Writes are best-effort; callers treat spool failures
// as warnings, never as fetch failures.
type Spool struct {
	dir  string
	keep bool
}

// NewSpool creates the spool directory if needed and resolves it through any
// symlinks so later containment checks compare real paths.
func NewSpool(dir string, keep bool) (*Spool, error) {
	if dir == "" {
		return nil, fmt.Errorf("spool directory not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve spool dir: %w", err)
	}
	return &Spool{dir: resolved, keep: keep}, nil
}

// Dir returns the resolved spool directory.
func (s *Spool) Dir() string {
	return s.dir
}

// Write stores one payload and returns its path.
func (s *Spool) Write(u run.Unit, body []byte) (string, error) {
	name := fmt.Sprintf("tw-oac_%s_cycle%d.csv", u.GasDay.Format("20060102"), u.Cycle)
	path, err := s.confine(name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write spool file: %w", err)
	}
	return path, nil
}

// Cleanup removes a spooled file unless retention is on. A file already gone
// is not an error.
func (s *Spool) Cleanup(path string) error {
	if s.keep || path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove spool file: %w", err)
	}
	return nil
}

// confine joins name onto the spool dir and rejects anything that escapes it.
func (s *Spool) confine(name string) (string, error) {
	path := filepath.Join(s.dir, name)
	rel, err := filepath.Rel(s.dir, path)
	if err != nil {
		return "", fmt.Errorf("cannot compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %s", rel)
	}
	return path, nil
}
