package tts

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAISpeechClient implements Synthesizer with the OpenAI audio speech endpoint
type OpenAISpeechClient struct {
	client *openai.Client
	model  string
	voice  string
}

// NewOpenAISpeechClient creates a speech client. baseURL may be empty.
func NewOpenAISpeechClient(apiKey, baseURL, model, voice string) *OpenAISpeechClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAISpeechClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		voice:  voice,
	}
}

// Provider implements Synthesizer
func (c *OpenAISpeechClient) Provider() string { return "openai" }

// Synthesize implements Synthesizer, asking for mp3 output
func (c *OpenAISpeechClient) Synthesize(ctx context.Context, text string) (*Audio, error) {
	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.model),
		Input:          text,
		Voice:          openai.SpeechVoice(c.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai create speech: %w", err)
	}

	return &Audio{
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp,
	}, nil
}
