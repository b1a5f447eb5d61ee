package uploads_test

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/geniusjr001/claimsvoice/internal/uploads"
)

func TestSaveAndRemove(t *testing.T) {
	t.Parallel()

	m, err := uploads.New(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	doc, err := m.Save("sess-1", "boarding pass.pdf", "boarding pass", strings.NewReader("%PDF-1.4 test"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if doc.OriginalName != "boarding pass.pdf" {
		t.Errorf("OriginalName = %q", doc.OriginalName)
	}
	if !strings.HasSuffix(doc.Filename, "boarding_pass.pdf") {
		t.Errorf("Filename = %q, want sanitized suffix", doc.Filename)
	}
	if doc.Size != int64(len("%PDF-1.4 test")) {
		t.Errorf("Size = %d", doc.Size)
	}
	if _, err := os.Stat(doc.Path); err != nil {
		t.Errorf("stored file missing: %v", err)
	}

	if err := m.Remove(doc); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(doc.Path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file still present after Remove: %v", err)
	}
	// Removing twice must stay quiet.
	if err := m.Remove(doc); err != nil {
		t.Errorf("second Remove: %v", err)
	}
}

func TestSaveRejectsUnknownExtension(t *testing.T) {
	t.Parallel()

	m, err := uploads.New(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = m.Save("sess-1", "malware.exe", "receipt", strings.NewReader("MZ"))
	if !errors.Is(err, uploads.ErrFileType) {
		t.Errorf("Save .exe = %v, want ErrFileType", err)
	}
}

func TestSaveRejectsOversize(t *testing.T) {
	t.Parallel()

	m, err := uploads.New(t.TempDir(), 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = m.Save("sess-1", "big.jpg", "receipt", strings.NewReader(strings.Repeat("x", 17)))
	if !errors.Is(err, uploads.ErrTooLarge) {
		t.Errorf("Save oversize = %v, want ErrTooLarge", err)
	}

	// Exactly at the limit is accepted.
	doc, err := m.Save("sess-1", "ok.jpg", "receipt", strings.NewReader(strings.Repeat("x", 16)))
	if err != nil {
		t.Fatalf("Save at limit: %v", err)
	}
	if doc.Size != 16 {
		t.Errorf("Size = %d, want 16", doc.Size)
	}
}

func TestRemoveSession(t *testing.T) {
	t.Parallel()

	m, err := uploads.New(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	doc, err := m.Save("sess-9", "receipt.png", "receipt", strings.NewReader("png"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := m.RemoveSession("sess-9"); err != nil {
		t.Fatalf("RemoveSession: %v", err)
	}
	if _, err := os.Stat(doc.Path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file still present after RemoveSession: %v", err)
	}
}
