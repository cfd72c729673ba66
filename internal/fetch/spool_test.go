package fetch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSpoolWriteAndCleanup(t *testing.T) {
	s, err := NewSpool(t.TempDir(), false)
	if err != nil {
		t.Fatalf("NewSpool() error: %v", err)
	}

	path, err := s.Write(fetchUnit, []byte("a,b\n1,2\n"))
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if got := filepath.Base(path); got != "tw-oac_20260820_cycle2.csv" {
		t.Errorf("File name = %q, want %q", got, "tw-oac_20260820_cycle2.csv")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(data) != "a,b\n1,2\n" {
		t.Errorf("Content = %q, want %q", data, "a,b\n1,2\n")
	}

	if err := s.Cleanup(path); err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected file removed, stat err = %v", err)
	}

	// Cleaning up twice, or with no path at all, is not an error.
	if err := s.Cleanup(path); err != nil {
		t.Errorf("Cleanup() of a missing file: %v", err)
	}
	if err := s.Cleanup(""); err != nil {
		t.Errorf("Cleanup() of an empty path: %v", err)
	}
}

func TestSpoolKeepRetainsFiles(t *testing.T) {
	s, err := NewSpool(t.TempDir(), true)
	if err != nil {
		t.Fatalf("NewSpool() error: %v", err)
	}

	path, err := s.Write(fetchUnit, []byte("data"))
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if err := s.Cleanup(path); err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected file retained, stat err = %v", err)
	}
}

func TestSpoolOverwritesSameUnit(t *testing.T) {
	s, err := NewSpool(t.TempDir(), false)
	if err != nil {
		t.Fatalf("NewSpool() error: %v", err)
	}

	if _, err := s.Write(fetchUnit, []byte("first")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	path, err := s.Write(fetchUnit, []byte("second"))
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("Content = %q, want %q", data, "second")
	}
}

func TestNewSpoolCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "spool", "nested")

	s, err := NewSpool(dir, false)
	if err != nil {
		t.Fatalf("NewSpool() error: %v", err)
	}
	info, err := os.Stat(s.Dir())
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("Expected %q to be a directory", s.Dir())
	}
}

func TestNewSpoolRequiresDirectory(t *testing.T) {
	if _, err := NewSpool("", false); err == nil {
		t.Error("Expected error for an empty spool directory, got nil")
	}
}

func TestSpoolConfineRejectsTraversal(t *testing.T) {
	s, err := NewSpool(t.TempDir(), false)
	if err != nil {
		t.Fatalf("NewSpool() error: %v", err)
	}

	if _, err := s.confine(filepath.Join("..", "escape.csv")); err == nil {
		t.Error("Expected traversal to be rejected, got nil")
	} else if !strings.Contains(err.Error(), "path traversal detected") {
		t.Errorf("Expected a traversal error, got %v", err)
	}

	if _, err := s.confine("report.csv"); err != nil {
		t.Errorf("confine() rejected a plain name: %v", err)
	}
}
