package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/getcooked/interview-gateway/internal/config"
	"github.com/getcooked/interview-gateway/internal/observability"
	"github.com/getcooked/interview-gateway/internal/resilience"
)

// Guarded bounds every call with a timeout and a circuit breaker, and records metrics.
// It does not retry.
type Guarded struct {
	next    Reasoner
	breaker *resilience.CircuitBreaker
	timeout time.Duration
}

// NewGuarded wraps next. A zero timeout leaves the caller's deadline as the only bound.
func NewGuarded(next Reasoner, breaker *resilience.CircuitBreaker, timeout time.Duration) *Guarded {
	return &Guarded{next: next, breaker: breaker, timeout: timeout}
}

// Provider implements Reasoner
func (g *Guarded) Provider() string { return g.next.Provider() }

// Complete implements Reasoner
func (g *Guarded) Complete(ctx context.Context, req Request) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	timer := observability.StartReasoningCall(g.next.Provider())
	var text string
	call := func(ctx context.Context) error {
		var err error
		text, err = g.next.Complete(ctx, req)
		return err
	}

	var err error
	if g.breaker != nil {
		err = g.breaker.Call(ctx, call)
	} else {
		err = call(ctx)
	}
	timer.EndReasoning(err == nil)

	if err != nil {
		return "", err
	}
	return text, nil
}

// Ready fails while the breaker is refusing calls. It makes no upstream request.
func (g *Guarded) Ready(ctx context.Context) (bool, error) {
	if g.breaker != nil && g.breaker.Rejecting() {
		return false, fmt.Errorf("%s: %w", g.breaker.Name(), resilience.ErrCircuitOpen)
	}
	return true, nil
}

// New builds the configured reasoning client wrapped in its guard
func New(cfg *config.Config) (*Guarded, error) {
	var base Reasoner
	switch cfg.ReasoningProvider {
	case config.ProviderOpenAI:
		base = NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	case config.ProviderAnthropic:
		base = NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicBaseURL)
	default:
		return nil, fmt.Errorf("unknown reasoning provider %q", cfg.ReasoningProvider)
	}

	breaker := resilience.NewCircuitBreaker(
		"reasoning_"+base.Provider(),
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	).WithObserver(observeBreaker)

	return NewGuarded(base, breaker, cfg.ReasoningTimeoutDuration()), nil
}

func observeBreaker(name string, state resilience.CircuitState, failed bool) {
	observability.UpdateCircuitBreakerState(name, int(state))
	if failed {
		observability.IncrementCircuitBreakerFailures(name)
	}
}
