package tts

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getcooked/interview-gateway/internal/config"
	"github.com/getcooked/interview-gateway/internal/observability"
	"github.com/getcooked/interview-gateway/internal/resilience"
)

// Guarded puts a circuit breaker in front of a Synthesizer and records metrics.
// Only obtaining the response is guarded; reading the body is the caller's concern.
type Guarded struct {
	next    Synthesizer
	breaker *resilience.CircuitBreaker
}

// NewGuarded wraps next
func NewGuarded(next Synthesizer, breaker *resilience.CircuitBreaker) *Guarded {
	return &Guarded{next: next, breaker: breaker}
}

// Provider implements Synthesizer
func (g *Guarded) Provider() string { return g.next.Provider() }

// Synthesize implements Synthesizer
func (g *Guarded) Synthesize(ctx context.Context, text string) (*Audio, error) {
	timer := observability.StartSpeechCall(g.next.Provider())
	var audio *Audio
	call := func(ctx context.Context) error {
		var err error
		audio, err = g.next.Synthesize(ctx, text)
		return err
	}

	var err error
	if g.breaker != nil {
		err = g.breaker.Call(ctx, call)
	} else {
		err = call(ctx)
	}
	timer.EndSpeech(err == nil)

	if err != nil {
		return nil, err
	}
	return audio, nil
}

// Ready fails while the breaker is refusing calls. It makes no upstream request.
func (g *Guarded) Ready(ctx context.Context) (bool, error) {
	if g.breaker != nil && g.breaker.Rejecting() {
		return false, fmt.Errorf("%s: %w", g.breaker.Name(), resilience.ErrCircuitOpen)
	}
	return true, nil
}

// New builds the configured speech client wrapped in its guard
func New(cfg *config.Config) (*Guarded, error) {
	var base Synthesizer
	switch cfg.SpeechProvider {
	case config.ProviderOpenAI:
		base = NewOpenAISpeechClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAITTSModel, cfg.OpenAITTSVoice)
	case config.ProviderElevenLabs:
		base = NewElevenLabsClient(cfg.ElevenLabsAPIKey, cfg.ElevenLabsBaseURL, cfg.ElevenLabsVoiceID, cfg.ElevenLabsModelID, &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: cfg.SpeechTimeoutDuration(),
			},
		})
	default:
		return nil, fmt.Errorf("unknown speech provider %q", cfg.SpeechProvider)
	}

	breaker := resilience.NewCircuitBreaker(
		"speech_"+base.Provider(),
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	).WithObserver(func(name string, state resilience.CircuitState, failed bool) {
		observability.UpdateCircuitBreakerState(name, int(state))
		if failed {
			observability.IncrementCircuitBreakerFailures(name)
		}
	})

	return NewGuarded(base, breaker), nil
}
