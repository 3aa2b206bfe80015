package docstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore keeps evaluations and reference solutions in MongoDB
type MongoStore struct {
	client      *mongo.Client
	evaluations *mongo.Collection
	solutions   *mongo.Collection
}

type evaluationDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	SessionID    string             `bson:"session_id"`
	UserID       string             `bson:"user_id,omitempty"`
	Problem      string             `bson:"problem"`
	Scores       Scores             `bson:"scores"`
	Strengths    []string           `bson:"strengths"`
	Improvements []string           `bson:"improvements"`
	Summary      string             `bson:"summary"`
	LastFeedback string             `bson:"last_feedback,omitempty"`
	Code         string             `bson:"code"`
	Timestamp    time.Time          `bson:"timestamp"`
}

type solutionDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Problem     string             `bson:"problem"`
	Language    string             `bson:"language"`
	Code        string             `bson:"code"`
	Explanation string             `bson:"explanation,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
}

// NewMongoStore creates a client for uri. It does not wait for the server; call Ping for that.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	db := client.Database(database)
	return &MongoStore{
		client:      client,
		evaluations: db.Collection(evaluationsCollection),
		solutions:   db.Collection(solutionsCollection),
	}, nil
}

// InsertEvaluation implements Store
func (m *MongoStore) InsertEvaluation(ctx context.Context, e Evaluation) (string, error) {
	doc := evaluationDoc{
		ID:           primitive.NewObjectID(),
		SessionID:    e.SessionID,
		UserID:       e.UserID,
		Problem:      e.Problem,
		Scores:       e.Scores,
		Strengths:    e.Strengths,
		Improvements: e.Improvements,
		Summary:      e.Summary,
		LastFeedback: e.LastFeedback,
		Code:         e.Code,
		Timestamp:    e.CreatedAt.UTC(),
	}
	if _, err := m.evaluations.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert evaluation: %w", err)
	}
	return doc.ID.Hex(), nil
}

// InsertSolution implements Store
func (m *MongoStore) InsertSolution(ctx context.Context, s Solution) (string, error) {
	doc := solutionDoc{
		ID:          primitive.NewObjectID(),
		Problem:     s.Problem,
		Language:    s.Language,
		Code:        s.Code,
		Explanation: s.Explanation,
		CreatedAt:   s.CreatedAt.UTC(),
	}
	if _, err := m.solutions.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert solution: %w", err)
	}
	return doc.ID.Hex(), nil
}

// FindSolutions implements Store
func (m *MongoStore) FindSolutions(ctx context.Context, problem string) ([]Solution, error) {
	cursor, err := m.solutions.Find(ctx, bson.M{"problem": problem},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find solutions: %w", err)
	}

	var docs []solutionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode solutions: %w", err)
	}

	out := make([]Solution, 0, len(docs))
	for _, d := range docs {
		out = append(out, Solution{
			ID:          d.ID.Hex(),
			Problem:     d.Problem,
			Language:    d.Language,
			Code:        d.Code,
			Explanation: d.Explanation,
			CreatedAt:   d.CreatedAt,
		})
	}
	return out, nil
}

// Ping implements Store
func (m *MongoStore) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Close implements Store
func (m *MongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
