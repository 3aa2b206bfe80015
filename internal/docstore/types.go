package docstore

import (
	"context"
	"errors"
	"time"
)

// ErrDisabled is returned by the no-op store when no document store is configured
var ErrDisabled = errors.New("document store is not configured")

const (
	evaluationsCollection = "evaluations"
	solutionsCollection   = "solutions"
)

// Scores are the 1-10 ratings of a finished interview
type Scores struct {
	Correctness   int `json:"correctness" bson:"correctness"`
	Efficiency    int `json:"efficiency" bson:"efficiency"`
	CodeQuality   int `json:"code_quality" bson:"code_quality"`
	Communication int `json:"communication" bson:"communication"`
}

// Evaluation is the record written when an interview is evaluated
type Evaluation struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id,omitempty"`
	Problem      string    `json:"problem"`
	Scores       Scores    `json:"scores"`
	Strengths    []string  `json:"strengths"`
	Improvements []string  `json:"improvements"`
	Summary      string    `json:"summary"`
	LastFeedback string    `json:"last_feedback,omitempty"`
	Code         string    `json:"code"`
	CreatedAt    time.Time `json:"created_at"`
}

// Solution is a stored reference solution for a problem
type Solution struct {
	ID          string    `json:"id"`
	Problem     string    `json:"problem"`
	Language    string    `json:"language"`
	Code        string    `json:"code"`
	Explanation string    `json:"explanation,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is the document store contract: insert-one writes, filtered find-many reads
type Store interface {
	InsertEvaluation(ctx context.Context, e Evaluation) (string, error)
	InsertSolution(ctx context.Context, s Solution) (string, error)
	FindSolutions(ctx context.Context, problem string) ([]Solution, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Disabled is the Store used when STORE_DRIVER=none
type Disabled struct{}

func (Disabled) InsertEvaluation(context.Context, Evaluation) (string, error) { return "", ErrDisabled }
func (Disabled) InsertSolution(context.Context, Solution) (string, error)     { return "", ErrDisabled }
func (Disabled) FindSolutions(context.Context, string) ([]Solution, error)    { return nil, ErrDisabled }
func (Disabled) Ping(context.Context) error                                   { return nil }
func (Disabled) Close(context.Context) error                                  { return nil }
