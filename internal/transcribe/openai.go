package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"time"

	"github.com/snarg/meeting-intel/internal/audio"
)

// OpenAIClient calls an OpenAI-compatible /v1/audio/transcriptions endpoint.
// Implements the Provider interface.
type OpenAIClient struct {
	url     string
	apiKey  string
	model   string
	timeout time.Duration
	client  *http.Client
}

// openAIResponse is the verbose_json response body.
type openAIResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// NewOpenAIClient creates a new transcription client.
func NewOpenAIClient(url, apiKey, model string, timeout time.Duration) *OpenAIClient {
	return &OpenAIClient{
		url:     url,
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name.
func (oc *OpenAIClient) Name() string { return "openai" }

// Model returns the configured model identifier.
func (oc *OpenAIClient) Model() string { return oc.model }

// Transcribe sends an audio file to the transcription API and returns the result.
// Requests verbose_json so the response carries the detected language and
// the audio duration. Language is only sent when pinned; otherwise the
// provider auto-detects it.
func (oc *OpenAIClient) Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(audioPath)))
	hdr.Set("Content-Type", audio.ContentType(audioPath))
	part, err := w.CreatePart(hdr)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}

	if oc.model != "" {
		w.WriteField("model", oc.model)
	}
	w.WriteField("response_format", "verbose_json")
	w.WriteField("temperature", fmt.Sprintf("%.2f", opts.Temperature))

	if opts.Language != "" {
		w.WriteField("language", opts.Language)
	}
	if opts.Prompt != "" {
		w.WriteField("prompt", opts.Prompt)
	}

	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, oc.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+oc.apiKey)

	resp, err := oc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result openAIResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &Response{
		Text:     result.Text,
		Language: NormalizeLanguage(result.Language),
		Duration: result.Duration,
	}, nil
}
