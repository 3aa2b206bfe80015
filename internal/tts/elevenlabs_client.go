package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ElevenLabsClient implements Synthesizer using the ElevenLabs streaming REST endpoint
type ElevenLabsClient struct {
	apiKey     string
	baseURL    string
	voiceID    string
	modelID    string
	httpClient *http.Client
}

// ElevenLabsRequest represents the request payload for the ElevenLabs TTS API
type ElevenLabsRequest struct {
	Text          string                   `json:"text"`
	ModelID       string                   `json:"model_id,omitempty"`
	VoiceSettings *ElevenLabsVoiceSettings `json:"voice_settings,omitempty"`
}

// ElevenLabsVoiceSettings tunes the synthesized voice
type ElevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// NewElevenLabsClient creates a new ElevenLabs TTS client
func NewElevenLabsClient(apiKey, baseURL, voiceID, modelID string, httpClient *http.Client) *ElevenLabsClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &ElevenLabsClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		voiceID:    voiceID,
		modelID:    modelID,
		httpClient: httpClient,
	}
}

// Provider implements Synthesizer
func (c *ElevenLabsClient) Provider() string { return "elevenlabs" }

// Synthesize implements Synthesizer. The response body is handed back unread so
// the caller can stream it.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string) (*Audio, error) {
	reqBody := ElevenLabsRequest{
		Text:    text,
		ModelID: c.modelID,
		VoiceSettings: &ElevenLabsVoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s/stream", c.baseURL, url.PathEscape(c.voiceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("elevenlabs API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	return &Audio{
		ContentType: resp.Header.Get("Content-Type"),
		Body:        resp.Body,
	}, nil
}
