package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snarg/meeting-intel/internal/credentials"
	"github.com/snarg/meeting-intel/internal/meeting"
)

const demoRecord = `{
  "meeting_info": {"title": "Board review", "language": "it"},
  "transcription": {"text": "Buongiorno", "language": "it", "ok": true},
  "ai_analysis": {
    "insight_strategici": [{"insight": "Espandere in Germania"}],
    "opportunita_innovation": [{"opportunita": "AI support", "impatto_potenziale": "alto"}]
  }
}`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd("test", &out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCredentialsCmd(t *testing.T) {
	t.Setenv(credentials.OpenAIKey, "sk-test")
	t.Setenv(credentials.AssemblyAIKey, "")

	out, err := run(t, "credentials", "--secrets-file", filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Contains(t, out, "✅ OPENAI_API_KEY: found in env")
	assert.Contains(t, out, "❌ ASSEMBLYAI_API_KEY: not set")
	assert.NotContains(t, out, "sk-test")
}

func TestDemoCmd(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "analysis_board.json"), []byte(demoRecord), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "analysis_broken.json"), []byte("{"), 0o644))
	t.Setenv("DEMO_S3_BUCKET", "")
	xlsx := filepath.Join(t.TempDir(), "demo.xlsx")

	out, err := run(t, "demo", "--demo-dir", dir, "--xlsx", xlsx)
	require.NoError(t, err)
	assert.Contains(t, out, "Meetings:      1")
	assert.Contains(t, out, "Insights:      1")
	assert.Contains(t, out, "Board review (IT)")
	assert.Contains(t, out, "analysis_broken.json")
	assert.FileExists(t, xlsx)
}

func TestProcessCmd_RejectsUnsupportedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	_, err := run(t, "process", path)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsupported"), err.Error())
}

func TestProcessCmd_MissingKey(t *testing.T) {
	t.Setenv(credentials.OpenAIKey, "")
	path := filepath.Join(t.TempDir(), "meeting.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o644))

	_, err := run(t, "process", path, "--secrets-file", filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), credentials.OpenAIKey)
}

func TestWriteRecord(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	rec := &meeting.Record{Filename: "weekly sync.m4a", Analysis: meeting.NewStrategicAnalysis()}

	path, err := writeRecord(dir, rec)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "analysis_transcription_weekly_sync.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	back, err := meeting.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "weekly sync.m4a", back.Filename)
}
