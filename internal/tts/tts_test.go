package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/getcooked/interview-gateway/internal/resilience"
)

func TestElevenLabsClient_Synthesize(t *testing.T) {
	audio := bytes.Repeat([]byte{0xFF, 0xFB}, 1024)
	var got ElevenLabsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice-1/stream" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Errorf("Expected api key header, got %q", r.Header.Get("xi-api-key"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(audio)
	}))
	defer srv.Close()

	c := NewElevenLabsClient("test-key", srv.URL+"/", "voice-1", "eleven_turbo_v2_5", nil)
	resp, err := c.Synthesize(context.Background(), "Consider edge cases")
	if err != nil {
		t.Fatalf("Synthesize() failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.ContentType != "audio/mpeg" {
		t.Errorf("Expected audio/mpeg, got %q", resp.ContentType)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(body, audio) {
		t.Errorf("Expected %d bytes of audio, got %d", len(audio), len(body))
	}
	if got.Text != "Consider edge cases" || got.ModelID != "eleven_turbo_v2_5" {
		t.Errorf("Unexpected request %+v", got)
	}
}

func TestElevenLabsClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"invalid api key"}`))
	}))
	defer srv.Close()

	c := NewElevenLabsClient("bad", srv.URL, "voice-1", "m", nil)
	if _, err := c.Synthesize(context.Background(), "hi"); err == nil {
		t.Error("Expected error for 401 response")
	}
}

func TestOpenAISpeechClient_Synthesize(t *testing.T) {
	var got struct {
		Model string `json:"model"`
		Input string `json:"input"`
		Voice string `json:"voice"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3audio"))
	}))
	defer srv.Close()

	c := NewOpenAISpeechClient("test-key", srv.URL+"/v1", "tts-1", "alloy")
	resp, err := c.Synthesize(context.Background(), "Consider edge cases")
	if err != nil {
		t.Fatalf("Synthesize() failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.ContentType != "audio/mpeg" {
		t.Errorf("Expected audio/mpeg, got %q", resp.ContentType)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ID3audio" {
		t.Errorf("Unexpected body %q", body)
	}
	if got.Model != "tts-1" || got.Voice != "alloy" || got.Input != "Consider edge cases" {
		t.Errorf("Unexpected request %+v", got)
	}
}

type failingSynth struct{ calls int }

func (f *failingSynth) Provider() string { return "stub" }

func (f *failingSynth) Synthesize(ctx context.Context, text string) (*Audio, error) {
	f.calls++
	return nil, errors.New("connection reset")
}

func TestGuarded_OpensCircuit(t *testing.T) {
	stub := &failingSynth{}
	g := NewGuarded(stub, resilience.NewCircuitBreaker("speech_stub", 1, time.Minute))

	if _, err := g.Synthesize(context.Background(), "hi"); err == nil {
		t.Fatal("Expected upstream error")
	}
	if _, err := g.Synthesize(context.Background(), "hi"); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("Expected one upstream call, got %d", stub.calls)
	}
}
