// Package uploads stores claim supporting documents on disk, one directory
// per session.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/geniusjr001/claimsvoice/internal/convo"
)

// MaxSizeDefault caps uploads at 10 MB unless configured otherwise.
const MaxSizeDefault = 10 << 20

var (
	// ErrFileType is returned for extensions outside the whitelist.
	ErrFileType = errors.New("uploads: unsupported file type")
	// ErrTooLarge is returned when an upload exceeds the size cap.
	ErrTooLarge = errors.New("uploads: file too large")
)

var allowedExtensions = map[string]bool{
	".pdf": true, ".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
}

// Manager owns the upload directory tree.
type Manager struct {
	dir     string
	maxSize int64
	now     func() time.Time
}

// New creates a Manager rooted at dir. maxSize of zero applies
// MaxSizeDefault.
func New(dir string, maxSize int64) (*Manager, error) {
	if maxSize <= 0 {
		maxSize = MaxSizeDefault
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("uploads: create root %q: %w", dir, err)
	}
	return &Manager{dir: dir, maxSize: maxSize, now: time.Now}, nil
}

// Save validates and writes one document, returning its session metadata.
// docType is a caller-supplied label ("boarding pass", "receipt").
func (m *Manager) Save(sessionID, originalName, docType string, r io.Reader) (convo.Document, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExtensions[ext] {
		return convo.Document{}, fmt.Errorf("%w: %s", ErrFileType, ext)
	}

	sessionDir := filepath.Join(m.dir, sessionID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return convo.Document{}, fmt.Errorf("uploads: create session dir: %w", err)
	}

	now := m.now()
	filename := fmt.Sprintf("%s-%s", now.UTC().Format("20060102T150405"), sanitizeFilename(originalName))
	path := filepath.Join(sessionDir, filename)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return convo.Document{}, fmt.Errorf("uploads: create file: %w", err)
	}
	defer f.Close()

	// Read one byte past the cap so oversize uploads are detected rather
	// than silently truncated.
	n, err := io.Copy(f, io.LimitReader(r, m.maxSize+1))
	if err != nil {
		os.Remove(path)
		return convo.Document{}, fmt.Errorf("uploads: write file: %w", err)
	}
	if n > m.maxSize {
		os.Remove(path)
		return convo.Document{}, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, m.maxSize)
	}

	return convo.Document{
		Filename:     filename,
		OriginalName: originalName,
		Type:         docType,
		Path:         path,
		Size:         n,
		UploadedAt:   now,
	}, nil
}

// Remove deletes a stored document's bytes. A missing file is not an error;
// the session metadata is authoritative.
func (m *Manager) Remove(doc convo.Document) error {
	if doc.Path == "" {
		return nil
	}
	if err := os.Remove(doc.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("uploads: remove %q: %w", doc.Filename, err)
	}
	return nil
}

// RemoveSession deletes a session's whole upload directory.
func (m *Manager) RemoveSession(sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := os.RemoveAll(filepath.Join(m.dir, sessionID)); err != nil {
		return fmt.Errorf("uploads: remove session %q: %w", sessionID, err)
	}
	return nil
}

// sanitizeFilename keeps the stored name shell- and path-safe.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
