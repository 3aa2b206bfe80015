package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/xeipuuv/gojsonschema"
)

const maxBodyBytes = 1 << 20

// ValidationError carries the field messages of a rejected request body
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// decode reads the body, checks it against schema and unmarshals it into v
func decode(r *http.Request, w http.ResponseWriter, schema *gojsonschema.Schema, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &ValidationError{Messages: []string{fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit)}}
		}
		return &ValidationError{Messages: []string{"could not read body"}}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &ValidationError{Messages: []string{"body is not valid JSON"}}
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			msgs = append(msgs, re.String())
		}
		return &ValidationError{Messages: msgs}
	}

	if err := sonic.Unmarshal(body, v); err != nil {
		return &ValidationError{Messages: []string{err.Error()}}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, `{"detail":"encoding failure"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid request schema: %v", err))
	}
	return s
}

var (
	initializeSchema = mustSchema(`{
		"type": "object",
		"required": ["title", "description", "input", "output"],
		"properties": {
			"title":       {"type": "string"},
			"description": {"type": "string"},
			"input":       {"type": "string"},
			"output":      {"type": "string"},
			"explanation": {"type": ["string", "null"]}
		}
	}`)

	incrementalSchema = mustSchema(`{
		"type": "object",
		"required": ["session_id", "status"],
		"properties": {
			"session_id": {"type": "string", "minLength": 1},
			"code":       {"type": ["string", "null"]},
			"transcript": {"type": ["string", "null"]},
			"status":     {"type": "string"}
		}
	}`)

	evaluateSchema = mustSchema(`{
		"type": "object",
		"required": ["session_id"],
		"properties": {
			"session_id": {"type": "string", "minLength": 1}
		}
	}`)

	solutionSchema = mustSchema(`{
		"type": "object",
		"required": ["problem", "language", "code"],
		"properties": {
			"problem":     {"type": "string", "minLength": 1},
			"language":    {"type": "string", "minLength": 1},
			"code":        {"type": "string", "minLength": 1},
			"explanation": {"type": ["string", "null"]}
		}
	}`)
)
