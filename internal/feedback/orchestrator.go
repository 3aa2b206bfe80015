package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/getcooked/interview-gateway/internal/docstore"
	"github.com/getcooked/interview-gateway/internal/llm"
	"github.com/getcooked/interview-gateway/internal/observability"
	"github.com/getcooked/interview-gateway/internal/prompt"
	"github.com/getcooked/interview-gateway/internal/session"
)

// ErrGenerationFailed is returned when the reasoning service could not produce feedback
var ErrGenerationFailed = errors.New("feedback generation failed")

// Options tune a feedback cycle
type Options struct {
	MaxTokens           int
	Temperature         float32
	EvaluationMaxTokens int
	ThinkingStatus      string
	// RequireThinking suppresses generation for any other status
	RequireThinking bool
	Summarizer      prompt.Summarizer
}

// Update is one incremental update from the client. Empty strings count as absent.
type Update struct {
	SessionID  string
	Code       string
	Transcript string
	Status     string
}

// Orchestrator drives feedback cycles against the session store
type Orchestrator struct {
	store    *session.Store
	reasoner llm.Reasoner
	docs     docstore.Store
	opts     Options
}

// NewOrchestrator creates an orchestrator. docs may be nil when evaluations are not stored.
func NewOrchestrator(store *session.Store, reasoner llm.Reasoner, docs docstore.Store, opts Options) *Orchestrator {
	if docs == nil {
		docs = docstore.Disabled{}
	}
	if opts.ThinkingStatus == "" {
		opts.ThinkingStatus = "Thinking"
	}
	return &Orchestrator{
		store:    store,
		reasoner: reasoner,
		docs:     docs,
		opts:     opts,
	}
}

// ThinkingStatus is the status that marks the candidate as actively reasoning
func (o *Orchestrator) ThinkingStatus() string { return o.opts.ThinkingStatus }

// IncrementalFeedback applies the update to the session and asks the reasoning
// service for feedback on it. Cycles on one session are serialized in arrival
// order. Code, transcript and summary changes persist even when generation fails;
// the stored feedback only changes on success.
func (o *Orchestrator) IncrementalFeedback(ctx context.Context, u Update) (string, error) {
	logger := observability.FromContext(ctx).With().
		Str("component", "feedback").
		Str("session_id", u.SessionID).
		Logger()

	var result string
	err := o.store.Exclusive(ctx, u.SessionID, func() error {
		latest := prompt.LatestUpdate(u.Code, u.Transcript)

		snapshot, err := o.store.Update(u.SessionID, func(s *session.Session) {
			s.ApplyCode(u.Code)
			s.AppendTranscript(u.Transcript)
			s.Summary = o.opts.Summarizer.Update(s.Summary, latest)
		})
		if err != nil {
			return err
		}

		if u.Status != o.opts.ThinkingStatus {
			logger.Warn().Str("status", u.Status).Bool("gated", o.opts.RequireThinking).Msg("Update received outside thinking status")
			if o.opts.RequireThinking {
				observability.RecordFeedbackCycle("suppressed")
				result = snapshot.Feedback
				return nil
			}
		}

		p := prompt.Build(snapshot, latest)
		text, err := o.reasoner.Complete(ctx, llm.Request{
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: p.SystemMessage},
				{Role: llm.RoleUser, Content: p.UserPrompt},
			},
			MaxTokens:   o.opts.MaxTokens,
			Temperature: o.opts.Temperature,
		})
		if err == nil {
			text = strings.TrimSpace(text)
			if text == "" {
				err = llm.ErrEmptyResponse
			}
		}
		if err != nil {
			logger.Error().Err(err).Str("provider", o.reasoner.Provider()).Msg("Feedback generation failed")
			observability.RecordFeedbackCycle("failed")
			return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
		}

		if _, err := o.store.Update(u.SessionID, func(s *session.Session) {
			s.Feedback = text
		}); err != nil {
			return err
		}

		observability.RecordFeedbackCycle("success")
		logger.Debug().Int("feedback_len", len(text)).Msg("Feedback stored")
		result = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}
