package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/xeipuuv/gojsonschema"

	"github.com/getcooked/interview-gateway/internal/docstore"
	"github.com/getcooked/interview-gateway/internal/llm"
	"github.com/getcooked/interview-gateway/internal/observability"
	"github.com/getcooked/interview-gateway/internal/prompt"
)

const evaluationSchema = `{
	"type": "object",
	"required": ["correctness", "efficiency", "code_quality", "communication", "strengths", "improvements", "summary"],
	"properties": {
		"correctness":   {"type": "integer", "minimum": 1, "maximum": 10},
		"efficiency":    {"type": "integer", "minimum": 1, "maximum": 10},
		"code_quality":  {"type": "integer", "minimum": 1, "maximum": 10},
		"communication": {"type": "integer", "minimum": 1, "maximum": 10},
		"strengths":     {"type": "array", "items": {"type": "string"}},
		"improvements":  {"type": "array", "items": {"type": "string"}},
		"summary":       {"type": "string", "minLength": 1}
	}
}`

// ValidationError lists the schema violations of a reasoning-service evaluation
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "evaluation does not match schema: " + strings.Join(e.Errors, "; ")
}

type evaluationOutput struct {
	Correctness   int      `json:"correctness"`
	Efficiency    int      `json:"efficiency"`
	CodeQuality   int      `json:"code_quality"`
	Communication int      `json:"communication"`
	Strengths     []string `json:"strengths"`
	Improvements  []string `json:"improvements"`
	Summary       string   `json:"summary"`
}

// Evaluate asks the reasoning service for a scored evaluation of the whole
// session and stores it. userID is the verified caller, possibly empty.
func (o *Orchestrator) Evaluate(ctx context.Context, sessionID, userID string) (docstore.Evaluation, error) {
	logger := observability.FromContext(ctx).With().
		Str("component", "evaluation").
		Str("session_id", sessionID).
		Logger()

	if _, off := o.docs.(docstore.Disabled); off {
		return docstore.Evaluation{}, docstore.ErrDisabled
	}

	s, err := o.store.Get(sessionID)
	if err != nil {
		return docstore.Evaluation{}, err
	}

	p := prompt.BuildEvaluation(s)
	text, err := o.reasoner.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: p.SystemMessage},
			{Role: llm.RoleUser, Content: p.UserPrompt},
		},
		MaxTokens:   o.opts.EvaluationMaxTokens,
		Temperature: o.opts.Temperature,
	})
	if err != nil {
		logger.Error().Err(err).Str("provider", o.reasoner.Provider()).Msg("Evaluation generation failed")
		return docstore.Evaluation{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	out, err := parseEvaluation(text)
	if err != nil {
		logger.Error().Err(err).Msg("Evaluation output rejected")
		return docstore.Evaluation{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	e := docstore.Evaluation{
		SessionID: s.ID,
		UserID:    userID,
		Problem:   s.Question.Title,
		Scores: docstore.Scores{
			Correctness:   out.Correctness,
			Efficiency:    out.Efficiency,
			CodeQuality:   out.CodeQuality,
			Communication: out.Communication,
		},
		Strengths:    out.Strengths,
		Improvements: out.Improvements,
		Summary:      out.Summary,
		LastFeedback: s.Feedback,
		Code:         s.Code,
		CreatedAt:    time.Now().UTC(),
	}

	id, err := o.docs.InsertEvaluation(ctx, e)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to store evaluation")
		return docstore.Evaluation{}, fmt.Errorf("store evaluation: %w", err)
	}
	e.ID = id

	logger.Info().Str("evaluation_id", id).Int("correctness", e.Scores.Correctness).Msg("Evaluation stored")
	return e, nil
}

// parseEvaluation extracts the JSON object from model output, which may be
// wrapped in a markdown fence, and validates it
func parseEvaluation(text string) (evaluationOutput, error) {
	raw := strings.TrimSpace(text)
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		raw = raw[start : end+1]
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(evaluationSchema),
		gojsonschema.NewStringLoader(raw),
	)
	if err != nil {
		return evaluationOutput{}, fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, re := range result.Errors() {
			msgs = append(msgs, re.String())
		}
		return evaluationOutput{}, &ValidationError{Errors: msgs}
	}

	var out evaluationOutput
	if err := sonic.UnmarshalString(raw, &out); err != nil {
		return evaluationOutput{}, fmt.Errorf("decode evaluation: %w", err)
	}
	return out, nil
}
