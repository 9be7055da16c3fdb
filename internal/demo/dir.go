package demo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/snarg/meeting-intel/internal/meeting"
)

// DefaultPattern matches demo record files.
const DefaultPattern = "analysis_*.json"

// DirSource reads records from the first candidate directory that holds
// matching files.
type DirSource struct {
	candidates []string
	pattern    string
}

// NewDirSource creates a directory source. dir is tried first, then
// ./analysis, /app/analysis and <cwd>/analysis.
func NewDirSource(dir, pattern string) *DirSource {
	if pattern == "" {
		pattern = DefaultPattern
	}
	candidates := []string{}
	if dir != "" {
		candidates = append(candidates, dir)
	}
	candidates = append(candidates, "analysis", "/app/analysis")
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(wd, "analysis"))
	}
	return &DirSource{candidates: dedupe(candidates), pattern: pattern}
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		key := filepath.Clean(p)
		if abs, err := filepath.Abs(p); err == nil {
			key = abs
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

func (d *DirSource) Type() string { return "dir" }

// Pattern returns the file glob.
func (d *DirSource) Pattern() string { return d.pattern }

// Dir returns the directory in use: the first candidate with matching files,
// else the first existing candidate, else "".
func (d *DirSource) Dir() string {
	firstExisting := ""
	for _, c := range d.candidates {
		info, err := os.Stat(c)
		if err != nil || !info.IsDir() {
			continue
		}
		if firstExisting == "" {
			firstExisting = c
		}
		if matches, _ := filepath.Glob(filepath.Join(c, d.pattern)); len(matches) > 0 {
			return c
		}
	}
	return firstExisting
}

func (d *DirSource) Load(ctx context.Context) (*Snapshot, error) {
	dir := d.Dir()
	snap := &Snapshot{Source: d.Type(), Location: dir, Entries: []Entry{}, LoadedAt: time.Now()}
	if dir == "" {
		return snap, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, d.pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", d.pattern, err)
	}
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := filepath.Base(path)
		data, err := os.ReadFile(path)
		if err != nil {
			snap.Errors = append(snap.Errors, LoadError{Name: name, Error: err.Error()})
			continue
		}
		rec, err := meeting.Decode(data)
		if err != nil {
			snap.Errors = append(snap.Errors, LoadError{Name: name, Error: err.Error()})
			continue
		}
		snap.Entries = append(snap.Entries, Entry{Name: name, Record: rec})
	}
	sortEntries(snap)
	return snap, nil
}

// Save writes name into the directory in use, creating the first candidate
// when none exists.
func (d *DirSource) Save(_ context.Context, name string, data []byte) error {
	dir := d.Dir()
	if dir == "" {
		dir = d.candidates[0]
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create demo dir: %w", err)
		}
	}
	tmp := filepath.Join(dir, "."+name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return os.Rename(tmp, filepath.Join(dir, name))
}
