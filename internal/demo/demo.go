package demo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/meeting-intel/internal/meeting"
)

// Entry is one record of the demo corpus with the file or key it came from.
type Entry struct {
	Name   string          `json:"name"`
	Record *meeting.Record `json:"record"`
}

// LoadError reports a corpus file that could not be read or decoded.
type LoadError struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// Snapshot is the result of one corpus load. Bad files do not abort a load;
// they are listed in Errors.
type Snapshot struct {
	Source   string      `json:"source"`
	Location string      `json:"location"`
	Entries  []Entry     `json:"entries"`
	Errors   []LoadError `json:"errors,omitempty"`
	LoadedAt time.Time   `json:"loaded_at"`
}

// Records returns the loaded records in name order.
func (s *Snapshot) Records() []*meeting.Record {
	out := make([]*meeting.Record, len(s.Entries))
	for i, e := range s.Entries {
		out[i] = e.Record
	}
	return out
}

// Source is a read-mostly store of pre-computed analysis records.
type Source interface {
	Load(ctx context.Context) (*Snapshot, error)
	// Save stores a record file under name so later loads include it.
	Save(ctx context.Context, name string, data []byte) error
	Type() string
}

func sortEntries(s *Snapshot) {
	sort.Slice(s.Entries, func(i, j int) bool { return s.Entries[i].Name < s.Entries[j].Name })
	sort.Slice(s.Errors, func(i, j int) bool { return s.Errors[i].Name < s.Errors[j].Name })
}

// Corpus caches the last snapshot of a Source.
type Corpus struct {
	src Source
	log zerolog.Logger

	mu   sync.RWMutex
	snap *Snapshot
}

// NewCorpus creates a corpus. Nothing is loaded until first use.
func NewCorpus(src Source, log zerolog.Logger) *Corpus {
	return &Corpus{src: src, log: log.With().Str("component", "demo-corpus").Logger()}
}

// Snapshot returns the cached snapshot, loading it on first use.
func (c *Corpus) Snapshot(ctx context.Context) (*Snapshot, error) {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	return c.Reload(ctx)
}

// Reload reads the source again and replaces the cache.
func (c *Corpus) Reload(ctx context.Context) (*Snapshot, error) {
	snap, err := c.src.Load(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	c.log.Info().
		Str("source", snap.Source).
		Str("location", snap.Location).
		Int("records", len(snap.Entries)).
		Int("errors", len(snap.Errors)).
		Msg("demo corpus loaded")
	for _, e := range snap.Errors {
		c.log.Warn().Str("file", e.Name).Str("error", e.Error).Msg("demo record skipped")
	}
	return snap, nil
}

// Len returns the number of cached records, 0 before the first load.
func (c *Corpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return 0
	}
	return len(c.snap.Entries)
}

// Publish writes rec in the legacy demo schema to the source and reloads.
// Returns the file name used.
func (c *Corpus) Publish(ctx context.Context, rec *meeting.Record) (string, error) {
	data, err := meeting.EncodeLegacy(rec)
	if err != nil {
		return "", err
	}
	name := meeting.LegacyFilename(rec.Filename)
	if err := c.src.Save(ctx, name, data); err != nil {
		return "", err
	}
	if _, err := c.Reload(ctx); err != nil {
		return name, err
	}
	return name, nil
}
