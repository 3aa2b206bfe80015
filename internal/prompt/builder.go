package prompt

import (
	"fmt"
	"strings"

	"github.com/getcooked/interview-gateway/internal/session"
)

// SystemMessage sets the interviewer persona for every feedback cycle
const SystemMessage = "You are a Technical Interviewer running a live coding interview. " +
	"Review the candidate's latest code and spoken reasoning and respond the way an interviewer would in the room. " +
	"Never reveal the solution, never write code for the candidate, and never give hints that point directly at the answer. " +
	"Be constructive and encouraging, ask at most one probing question, and keep the reply to two or three short sentences " +
	"because it will be read aloud."

// Prompt is the two-message request sent to the reasoning service
type Prompt struct {
	SystemMessage string `json:"system_message"`
	UserPrompt    string `json:"user_prompt"`
}

// Build turns the running summary and the newest update into a prompt. It has no side effects.
func Build(s session.Session, latestUpdate string) Prompt {
	var b strings.Builder

	if title := strings.TrimSpace(s.Question.Title); title != "" {
		fmt.Fprintf(&b, "Problem: %s\n", title)
		if desc := strings.TrimSpace(s.Question.Description); desc != "" {
			fmt.Fprintf(&b, "%s\n", desc)
		}
		b.WriteString("\n")
	}

	b.WriteString("Summary of previous steps:\n")
	b.WriteString(s.Summary)
	b.WriteString("\n\n")
	b.WriteString("Current solution and thought process:\n")
	b.WriteString(latestUpdate)
	b.WriteString("\n\n")
	b.WriteString("Give brief feedback on the current step.")

	return Prompt{
		SystemMessage: SystemMessage,
		UserPrompt:    b.String(),
	}
}

// EvaluationSystemMessage asks for a scored end-of-interview evaluation as JSON
const EvaluationSystemMessage = "You are a Technical Interviewer writing the final evaluation of a coding interview. " +
	"Score the candidate from 1 to 10 on correctness, efficiency, code_quality and communication. " +
	"Respond with a single JSON object and nothing else, using exactly these keys: " +
	`"correctness", "efficiency", "code_quality", "communication" (integers), ` +
	`"strengths" (array of strings), "improvements" (array of strings), "summary" (string).`

// BuildEvaluation assembles the final evaluation prompt from the whole session
func BuildEvaluation(s session.Session) Prompt {
	var b strings.Builder

	fmt.Fprintf(&b, "Problem: %s\n%s\n", s.Question.Title, s.Question.Description)
	if s.Question.Input != "" || s.Question.Output != "" {
		fmt.Fprintf(&b, "Sample input: %s\nSample output: %s\n", s.Question.Input, s.Question.Output)
	}
	b.WriteString("\nSummary of the interview:\n")
	b.WriteString(s.Summary)
	b.WriteString("\n\nFinal code:\n")
	b.WriteString(s.Code)
	b.WriteString("\n\nCandidate transcript:\n")
	b.WriteString(s.Transcript)

	return Prompt{
		SystemMessage: EvaluationSystemMessage,
		UserPrompt:    b.String(),
	}
}
