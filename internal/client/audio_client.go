package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/masterlab/api/internal/config"
)

// AudioProcessor defines the operations delegated to the external match
// engine: AI spectral matching against a reference, and MP3 encoding.
type AudioProcessor interface {
	Match(ctx context.Context, req *MatchRequest) (*MatchResponse, error)
	Encode(ctx context.Context, req *EncodeRequest) (*EncodeResponse, error)
	IsConfigured() bool
}

// AudioClient implements AudioProcessor over the match engine's HTTP API.
type AudioClient struct {
	httpClient *http.Client
	baseURL    string
}

// MatchRequest carries the canonical WAV payloads for spectral matching.
// []byte fields travel as base64 in JSON.
type MatchRequest struct {
	TargetWav          []byte  `json:"target_wav"`
	ReferenceWav       []byte  `json:"reference_wav"`
	TargetLoudnessDbfs float64 `json:"target_loudness_dbfs"`
}

// MatchResponse returns the mastered WAV from the match engine.
type MatchResponse struct {
	MasteredWav []byte  `json:"mastered_wav"`
	PeakDb      float64 `json:"peak_db"`
}

// EncodeRequest asks the engine to transcode canonical WAV.
type EncodeRequest struct {
	Wav     []byte `json:"wav"`
	Format  string `json:"format"`
	Bitrate int    `json:"bitrate,omitempty"`
}

// EncodeResponse returns the transcoded bytes.
type EncodeResponse struct {
	Data   []byte `json:"data"`
	Format string `json:"format"`
}

// NewAudioClient creates a match engine client with a bounded timeout.
func NewAudioClient(cfg *config.MatcherConfig) *AudioClient {
	return &AudioClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.ServiceURL,
	}
}

// IsConfigured reports whether a service URL was provided.
func (c *AudioClient) IsConfigured() bool {
	return c != nil && c.baseURL != ""
}

// Match sends target and reference audio to the matching endpoint.
func (c *AudioClient) Match(ctx context.Context, req *MatchRequest) (*MatchResponse, error) {
	var result MatchResponse
	if err := c.post(ctx, "/match", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Encode sends audio to the encoding endpoint.
func (c *AudioClient) Encode(ctx context.Context, req *EncodeRequest) (*EncodeResponse, error) {
	var result EncodeResponse
	if err := c.post(ctx, "/encode", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *AudioClient) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("match engine request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("match engine returned %d: %s", resp.StatusCode, string(data))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
