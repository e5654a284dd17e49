package files

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestParser(t *testing.T, maxBytes int64) (*Parser, string) {
	t.Helper()
	root := t.TempDir()
	return NewParser(root, maxBytes, zerolog.Nop()), root
}

func writeObject(t *testing.T, root, name string, data []byte) {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write object: %v", err)
	}
}

func TestParse(t *testing.T) {
	p, root := newTestParser(t, 1024)
	writeObject(t, root, "uploads/notes.md", []byte("# Session notes\n\nKey insight here."))

	got, err := p.Parse(context.Background(), "uploads/notes.md", "text/markdown", "notes.md")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !strings.Contains(got, "Key insight here.") {
		t.Errorf("Parse() = %q", got)
	}
}

func TestParse_MimeParameterStripped(t *testing.T) {
	p, root := newTestParser(t, 1024)
	writeObject(t, root, "a.txt", []byte("plain body"))

	got, err := p.Parse(context.Background(), "a.txt", "text/plain; charset=utf-8", "a.txt")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got != "plain body" {
		t.Errorf("Parse() = %q", got)
	}
}

func TestParse_UnsupportedMimeType(t *testing.T) {
	p, root := newTestParser(t, 1024)
	writeObject(t, root, "scan.pdf", []byte("%PDF-1.7"))

	if _, err := p.Parse(context.Background(), "scan.pdf", "application/pdf", "scan.pdf"); err == nil {
		t.Fatal("Parse() should reject unsupported mime types")
	}
}

func TestParse_MissingFile(t *testing.T) {
	p, _ := newTestParser(t, 1024)
	if _, err := p.Parse(context.Background(), "gone.txt", "text/plain", "gone.txt"); err == nil {
		t.Fatal("Parse() should fail for a missing object")
	}
}

func TestParse_OversizeFile(t *testing.T) {
	p, root := newTestParser(t, 16)
	writeObject(t, root, "big.txt", []byte(strings.Repeat("x", 64)))

	if _, err := p.Parse(context.Background(), "big.txt", "text/plain", "big.txt"); err == nil {
		t.Fatal("Parse() should reject files over the size limit")
	}
}

func TestParse_InvalidUTF8(t *testing.T) {
	p, root := newTestParser(t, 1024)
	writeObject(t, root, "bin.txt", []byte{0xff, 0xfe, 0x00, 0x41})

	if _, err := p.Parse(context.Background(), "bin.txt", "text/plain", "bin.txt"); err == nil {
		t.Fatal("Parse() should reject non-UTF-8 content")
	}
}

func TestParse_TraversalStaysInRoot(t *testing.T) {
	p, root := newTestParser(t, 1024)

	// A secret outside the root and a file of the same name inside it.
	outside := filepath.Join(filepath.Dir(root), "secret.txt")
	if err := os.WriteFile(outside, []byte("outside the root"), 0o644); err != nil {
		t.Fatalf("write outside file: %v", err)
	}
	writeObject(t, root, "secret.txt", []byte("inside the root"))

	got, err := p.Parse(context.Background(), "../secret.txt", "text/plain", "secret.txt")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got != "inside the root" {
		t.Errorf("traversal escaped the object root: got %q", got)
	}
}

func TestParse_CancelledContext(t *testing.T) {
	p, root := newTestParser(t, 1024)
	writeObject(t, root, "a.txt", []byte("body"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Parse(ctx, "a.txt", "text/plain", "a.txt"); err == nil {
		t.Fatal("Parse() should honor a cancelled context")
	}
}
