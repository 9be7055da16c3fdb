package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Names of the secrets the pipeline knows about.
const (
	// OpenAIKey authorizes both transcription and analysis.
	OpenAIKey = "OPENAI_API_KEY"
	// AssemblyAIKey authorizes diarization.
	AssemblyAIKey = "ASSEMBLYAI_API_KEY"
)

// Source tells where a secret was found.
type Source string

const (
	SourceEnv     Source = "env"
	SourceSecrets Source = "secrets_file"
	SourceNone    Source = ""
)

// Known lists the named secrets with a short description of what they unlock.
var Known = []struct {
	Name    string
	Purpose string
}{
	{OpenAIKey, "transcription and strategic analysis"},
	{AssemblyAIKey, "speaker diarization"},
}

// Status describes whether one secret can currently be resolved. The value
// itself is never exposed.
type Status struct {
	Name       string `json:"name"`
	Purpose    string `json:"purpose"`
	Resolvable bool   `json:"resolvable"`
	Source     Source `json:"source,omitempty"`
}

// Resolver looks secrets up in the process environment first, then in an
// optional TOML secrets file. The file is re-read on every call so edits are
// picked up without a restart.
type Resolver struct {
	secretsFile string
	lookupEnv   func(string) (string, bool)
}

// NewResolver creates a resolver. secretsFile may be empty.
func NewResolver(secretsFile string) *Resolver {
	return &Resolver{secretsFile: secretsFile, lookupEnv: os.LookupEnv}
}

// Lookup returns the secret value and where it came from.
func (r *Resolver) Lookup(name string) (string, Source, error) {
	if v, ok := r.lookupEnv(name); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), SourceEnv, nil
	}

	secrets, err := r.readSecrets()
	if err != nil {
		return "", SourceNone, err
	}
	if v := strings.TrimSpace(secrets[name]); v != "" {
		return v, SourceSecrets, nil
	}
	return "", SourceNone, nil
}

// Get returns the secret value or "" when it cannot be resolved.
// A malformed secrets file counts as unresolvable.
func (r *Resolver) Get(name string) string {
	v, _, err := r.Lookup(name)
	if err != nil {
		return ""
	}
	return v
}

// Status reports every known secret. Errors reading the secrets file are
// returned alongside the partial (environment-only) result.
func (r *Resolver) Status() ([]Status, error) {
	var firstErr error
	out := make([]Status, 0, len(Known))
	for _, k := range Known {
		_, src, err := r.Lookup(k.Name)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		out = append(out, Status{
			Name:       k.Name,
			Purpose:    k.Purpose,
			Resolvable: src != SourceNone,
			Source:     src,
		})
	}
	return out, firstErr
}

// readSecrets parses the secrets file. Both flat keys and a [secrets] table
// are accepted. A missing file is not an error.
func (r *Resolver) readSecrets() (map[string]string, error) {
	if r.secretsFile == "" {
		return nil, nil
	}
	var raw map[string]any
	if _, err := toml.DecodeFile(r.secretsFile, &raw); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read secrets file %s: %w", r.secretsFile, err)
	}

	out := make(map[string]string, len(raw))
	flatten(out, raw)
	if nested, ok := raw["secrets"].(map[string]any); ok {
		flatten(out, nested)
	}
	return out, nil
}

func flatten(dst map[string]string, src map[string]any) {
	for k, v := range src {
		if s, ok := v.(string); ok {
			if _, exists := dst[k]; !exists {
				dst[k] = s
			}
		}
	}
}
