package diarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/snarg/meeting-intel/internal/meeting"
)

// Provider is the interface for speaker diarization backends.
type Provider interface {
	Diarize(ctx context.Context, audioPath string) (*Result, error)
	Name() string
}

// Result is the speaker-labelled output of one diarization request.
type Result struct {
	Segments     []meeting.SpeakerSegment
	SpeakerCount int
}

// Options tune the AssemblyAI transcript job.
type Options struct {
	SpeakersExpected int // 0 = auto
	Sentiment        bool
	Highlights       bool
	PollInterval     time.Duration
	Timeout          time.Duration
}

// AssemblyAIClient uploads audio to AssemblyAI, submits a speaker-labelled
// transcript job and polls until it finishes.
// Implements the Provider interface.
type AssemblyAIClient struct {
	baseURL string
	apiKey  string
	opts    Options
	client  *http.Client
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptRequest struct {
	AudioURL          string `json:"audio_url"`
	SpeakerLabels     bool   `json:"speaker_labels"`
	SpeakersExpected  int    `json:"speakers_expected,omitempty"`
	SentimentAnalysis bool   `json:"sentiment_analysis,omitempty"`
	AutoHighlights    bool   `json:"auto_highlights,omitempty"`
}

type transcriptResponse struct {
	ID         string      `json:"id"`
	Status     string      `json:"status"` // queued, processing, completed, error
	Error      string      `json:"error"`
	Utterances []Utterance `json:"utterances"`
}

// Utterance is one speaker turn as returned by AssemblyAI. Times are in milliseconds.
type Utterance struct {
	Speaker    string  `json:"speaker"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Confidence float64 `json:"confidence"`
	Text       string  `json:"text"`
}

// NewAssemblyAIClient creates a new diarization client. baseURL is the API
// root, e.g. https://api.assemblyai.com/v2.
func NewAssemblyAIClient(baseURL, apiKey string, opts Options) *AssemblyAIClient {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 3 * time.Second
	}
	return &AssemblyAIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		opts:    opts,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

// Name returns the provider name.
func (ac *AssemblyAIClient) Name() string { return "assemblyai" }

// Diarize runs one speaker-labelled transcript job for the audio file.
func (ac *AssemblyAIClient) Diarize(ctx context.Context, audioPath string) (*Result, error) {
	if ac.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ac.opts.Timeout)
		defer cancel()
	}

	uploadURL, err := ac.upload(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	job, err := ac.submit(ctx, uploadURL)
	if err != nil {
		return nil, err
	}

	done, err := ac.wait(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	segments := ConvertUtterances(done.Utterances)
	return &Result{
		Segments:     segments,
		SpeakerCount: meeting.CountSpeakers(segments),
	}, nil
}

func (ac *AssemblyAIClient) upload(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ac.baseURL+"/upload", f)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	var out uploadResponse
	if err := ac.do(req, &out); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("upload: response has no upload_url")
	}
	return out.UploadURL, nil
}

func (ac *AssemblyAIClient) submit(ctx context.Context, audioURL string) (*transcriptResponse, error) {
	body, err := json.Marshal(transcriptRequest{
		AudioURL:          audioURL,
		SpeakerLabels:     true,
		SpeakersExpected:  ac.opts.SpeakersExpected,
		SentimentAnalysis: ac.opts.Sentiment,
		AutoHighlights:    ac.opts.Highlights,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ac.baseURL+"/transcript", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out transcriptResponse
	if err := ac.do(req, &out); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("submit: response has no transcript id")
	}
	return &out, nil
}

// wait polls the transcript job until it completes or errors.
func (ac *AssemblyAIClient) wait(ctx context.Context, id string) (*transcriptResponse, error) {
	ticker := time.NewTicker(ac.opts.PollInterval)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ac.baseURL+"/transcript/"+id, nil)
		if err != nil {
			return nil, fmt.Errorf("create poll request: %w", err)
		}
		var out transcriptResponse
		if err := ac.do(req, &out); err != nil {
			return nil, fmt.Errorf("poll %s: %w", id, err)
		}

		switch out.Status {
		case "completed":
			return &out, nil
		case "error":
			return nil, fmt.Errorf("assemblyai transcript %s failed: %s", id, out.Error)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("poll %s: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (ac *AssemblyAIClient) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", ac.apiKey)

	resp, err := ac.client.Do(req)
	if err != nil {
		return fmt.Errorf("assemblyai request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("assemblyai API error (status %d): %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ConvertUtterances maps provider utterances to speaker segments, converting
// millisecond offsets to seconds. Provider order is preserved.
func ConvertUtterances(utterances []Utterance) []meeting.SpeakerSegment {
	segments := make([]meeting.SpeakerSegment, 0, len(utterances))
	for _, u := range utterances {
		segments = append(segments, meeting.SpeakerSegment{
			SpeakerLabel: u.Speaker,
			StartSeconds: float64(u.Start) / 1000.0,
			EndSeconds:   float64(u.End) / 1000.0,
			Confidence:   u.Confidence,
			Text:         u.Text,
		})
	}
	return segments
}
