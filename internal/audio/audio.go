package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Supported maps accepted upload extensions to their MIME type.
var Supported = map[string]string{
	".mp3": "audio/mpeg",
	".wav": "audio/wav",
	".m4a": "audio/mp4",
	".mp4": "video/mp4",
}

// ErrUnsupported is returned for file extensions the providers do not accept.
type ErrUnsupported struct {
	Filename string
}

func (e *ErrUnsupported) Error() string {
	return fmt.Sprintf("unsupported audio format %q: expected mp3, wav, m4a or mp4", filepath.Ext(e.Filename))
}

// Validate checks the file extension only; the providers do the real format checks.
func Validate(filename string) error {
	if _, ok := Supported[strings.ToLower(filepath.Ext(filename))]; !ok {
		return &ErrUnsupported{Filename: filename}
	}
	return nil
}

// ContentType returns the MIME type for a supported filename, or
// application/octet-stream.
func ContentType(filename string) string {
	if ct, ok := Supported[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Source is an uploaded recording spooled to a temporary file. It is owned by
// one pipeline run and must be released when the run ends.
type Source struct {
	Filename string
	Size     int64
	Path     string

	once sync.Once
	err  error
}

// Spool copies r into a new temp file under dir, keeping the original
// extension so providers can sniff the container.
func Spool(dir, filename string, r io.Reader) (*Source, error) {
	if err := Validate(filename); err != nil {
		return nil, err
	}
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	tmp, err := os.CreateTemp(dir, "meeting-intel-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("close: %w", err)
	}
	if n == 0 {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("empty audio file %q", filename)
	}

	return &Source{
		Filename: filepath.Base(filename),
		Size:     n,
		Path:     tmpPath,
	}, nil
}

// Release deletes the temp file. Safe to call more than once.
func (s *Source) Release() error {
	s.once.Do(func() {
		if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
			s.err = err
		}
	})
	return s.err
}

// Released reports whether the temp file no longer exists on disk.
func (s *Source) Released() bool {
	_, err := os.Stat(s.Path)
	return os.IsNotExist(err)
}
