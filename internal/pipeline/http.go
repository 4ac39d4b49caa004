package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/weiawesome/wes-io-live/commentary-service/pkg/storage"
)

// HTTPPipeline calls a remote generation service over HTTP.
type HTTPPipeline struct {
	baseURL    string
	httpClient *http.Client
	audio      *audioStore
	sampleRate int
}

type commentaryRequest struct {
	EventID  string          `json:"event_id"`
	Handle   string          `json:"handle"`
	Snapshot json.RawMessage `json:"snapshot"`
	Style    string          `json:"voice_style"`
	Language string          `json:"language"`
}

type commentaryResponse struct {
	Status      string `json:"status"`
	Commentary  string `json:"commentary"`
	AudioBase64 string `json:"audio_base64"`
	Error       string `json:"error,omitempty"`
}

// NewHTTPPipeline creates a client for the pipeline service at cfg.BaseURL.
// Generated audio is stored in store.
func NewHTTPPipeline(cfg Config, store storage.Storage) *HTTPPipeline {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPPipeline{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		audio:      newAudioStore(store, cfg.AudioPrefix),
		sampleRate: cfg.SampleRate,
	}
}

// Initialize asks the remote service to load its agents.
func (p *HTTPPipeline) Initialize(ctx context.Context) error {
	url := fmt.Sprintf("%s/api/v1/agents/initialize", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pipeline initialize returned status: %d", resp.StatusCode)
	}
	return nil
}

// Process sends one snapshot to the remote service and stores any returned audio.
func (p *HTTPPipeline) Process(ctx context.Context, snap Snapshot, style, language string) (*Result, error) {
	body, err := json.Marshal(commentaryRequest{
		EventID:  snap.EventID,
		Handle:   snap.Handle,
		Snapshot: rawOrNull(snap.Data),
		Style:    style,
		Language: language,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/commentary", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call pipeline: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pipeline returned status: %d", resp.StatusCode)
	}

	var out commentaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Status != "success" {
		return nil, fmt.Errorf("%w: %s", ErrPipelineFailed, out.Error)
	}

	result := &Result{
		Commentary: out.Commentary,
		Style:      ResolveStyle(style, out.Commentary),
	}

	if out.AudioBase64 == "" {
		return result, nil
	}
	audio, err := base64.StdEncoding.DecodeString(out.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio: %w", err)
	}
	if !IsWAV(audio) {
		audio = EncodeWAV(audio, p.sampleRate)
	}

	key, err := p.audio.save(ctx, audio, result.Style)
	if err != nil {
		return nil, err
	}
	result.AudioKey = key
	result.AudioSize = int64(len(audio))
	return result, nil
}

func rawOrNull(data []byte) json.RawMessage {
	if len(data) == 0 || !json.Valid(data) {
		return json.RawMessage("null")
	}
	return data
}
