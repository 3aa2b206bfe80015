package tts

import (
	"context"
	"io"
)

// Audio is a synthesized speech response. Body must be closed by the consumer.
type Audio struct {
	ContentType string        // Declared content type, e.g. audio/mpeg
	Body        io.ReadCloser // Raw audio bytes as the speech service sends them
}

// Synthesizer defines the interface for a Text-to-Speech client
type Synthesizer interface {
	// Synthesize requests speech for text and returns the response stream unread
	Synthesize(ctx context.Context, text string) (*Audio, error)

	// Provider names the backing service for logs and metrics
	Provider() string
}
