package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a single-file Store for local development and tests
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens path and creates the schema if needed
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers anyway
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS evaluations (
		id            TEXT PRIMARY KEY,
		session_id    TEXT NOT NULL,
		user_id       TEXT,
		problem       TEXT NOT NULL,
		correctness   INTEGER NOT NULL,
		efficiency    INTEGER NOT NULL,
		code_quality  INTEGER NOT NULL,
		communication INTEGER NOT NULL,
		strengths     TEXT NOT NULL,
		improvements  TEXT NOT NULL,
		summary       TEXT NOT NULL,
		last_feedback TEXT,
		code          TEXT NOT NULL,
		created_at    INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS solutions (
		id          TEXT PRIMARY KEY,
		problem     TEXT NOT NULL,
		language    TEXT NOT NULL,
		code        TEXT NOT NULL,
		explanation TEXT,
		created_at  INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_solutions_problem ON solutions(problem);
	CREATE INDEX IF NOT EXISTS idx_evaluations_session ON evaluations(session_id);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// InsertEvaluation implements Store
func (s *SQLiteStore) InsertEvaluation(ctx context.Context, e Evaluation) (string, error) {
	strengths, err := sonic.MarshalString(nonNil(e.Strengths))
	if err != nil {
		return "", fmt.Errorf("encode strengths: %w", err)
	}
	improvements, err := sonic.MarshalString(nonNil(e.Improvements))
	if err != nil {
		return "", fmt.Errorf("encode improvements: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO evaluations (id, session_id, user_id, problem, correctness, efficiency,
			code_quality, communication, strengths, improvements, summary, last_feedback, code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, e.SessionID, e.UserID, e.Problem,
		e.Scores.Correctness, e.Scores.Efficiency, e.Scores.CodeQuality, e.Scores.Communication,
		strengths, improvements, e.Summary, e.LastFeedback, e.Code, e.CreatedAt.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("insert evaluation: %w", err)
	}
	return id, nil
}

// InsertSolution implements Store
func (s *SQLiteStore) InsertSolution(ctx context.Context, sol Solution) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO solutions (id, problem, language, code, explanation, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, sol.Problem, sol.Language, sol.Code, sol.Explanation, sol.CreatedAt.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("insert solution: %w", err)
	}
	return id, nil
}

// FindSolutions implements Store
func (s *SQLiteStore) FindSolutions(ctx context.Context, problem string) ([]Solution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, problem, language, code, COALESCE(explanation, ''), created_at
		FROM solutions WHERE problem = ? ORDER BY created_at, rowid`, problem)
	if err != nil {
		return nil, fmt.Errorf("find solutions: %w", err)
	}
	defer rows.Close()

	out := []Solution{}
	for rows.Next() {
		var sol Solution
		var created int64
		if err := rows.Scan(&sol.ID, &sol.Problem, &sol.Language, &sol.Code, &sol.Explanation, &created); err != nil {
			return nil, fmt.Errorf("scan solution: %w", err)
		}
		sol.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, sol)
	}
	return out, rows.Err()
}

// GetEvaluation loads one evaluation by id
func (s *SQLiteStore) GetEvaluation(ctx context.Context, id string) (Evaluation, error) {
	var e Evaluation
	var strengths, improvements string
	var created int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, COALESCE(user_id, ''), problem, correctness, efficiency, code_quality,
			communication, strengths, improvements, summary, COALESCE(last_feedback, ''), code, created_at
		FROM evaluations WHERE id = ?`, id).Scan(
		&e.ID, &e.SessionID, &e.UserID, &e.Problem,
		&e.Scores.Correctness, &e.Scores.Efficiency, &e.Scores.CodeQuality, &e.Scores.Communication,
		&strengths, &improvements, &e.Summary, &e.LastFeedback, &e.Code, &created)
	if err != nil {
		return Evaluation{}, fmt.Errorf("get evaluation: %w", err)
	}
	if err := sonic.UnmarshalString(strengths, &e.Strengths); err != nil {
		return Evaluation{}, fmt.Errorf("decode strengths: %w", err)
	}
	if err := sonic.UnmarshalString(improvements, &e.Improvements); err != nil {
		return Evaluation{}, fmt.Errorf("decode improvements: %w", err)
	}
	e.CreatedAt = time.UnixMilli(created).UTC()
	return e, nil
}

// Ping implements Store
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store
func (s *SQLiteStore) Close(context.Context) error {
	return s.db.Close()
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
