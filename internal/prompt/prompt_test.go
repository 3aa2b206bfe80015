package prompt

import (
	"strings"
	"testing"

	"github.com/getcooked/interview-gateway/internal/session"
)

func TestLatestUpdate(t *testing.T) {
	cases := []struct {
		name, code, transcript, want string
	}{
		{"both", "def f(): pass", "thinking aloud", "Code: def f(): pass\nTranscript: thinking aloud"},
		{"code only", "x = 1", "", "Code: x = 1"},
		{"transcript only", "", "use a set", "Transcript: use a set"},
		{"neither", "", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LatestUpdate(tc.code, tc.transcript); got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestSummarizer_Update(t *testing.T) {
	var s Summarizer

	got := s.Update("Step 1 done.", "Step 2 ongoing.")
	if got != "Step 1 done. Step 2 ongoing." {
		t.Errorf("Expected appended summary, got %q", got)
	}
}

func TestSummarizer_UpdateTrims(t *testing.T) {
	var s Summarizer

	summary := s.Update("", "  A  ")
	if summary != "A" {
		t.Errorf("Expected 'A', got %q", summary)
	}
	summary = s.Update(summary, "\tB\n")
	if summary != "A B" {
		t.Errorf("Expected 'A B', got %q", summary)
	}
	if s.Update(summary, "   ") != "A B" {
		t.Error("Expected blank update to leave the summary unchanged")
	}
}

func TestSummarizer_Compaction(t *testing.T) {
	s := Summarizer{MaxChars: 12}

	got := s.Update("alpha beta gamma", "delta")
	if len(got) > 12 {
		t.Errorf("Expected at most 12 bytes, got %d (%q)", len(got), got)
	}
	if !strings.HasSuffix(got, "delta") {
		t.Errorf("Expected newest content to be kept, got %q", got)
	}
	if strings.HasPrefix(got, "amma") {
		t.Errorf("Expected cut on a word boundary, got %q", got)
	}
}

func TestSummarizer_CompactionAtWordStart(t *testing.T) {
	s := Summarizer{MaxChars: 7}

	if got := s.Update("aaa bbb", "ccc"); got != "bbb ccc" {
		t.Errorf("Expected %q, got %q", "bbb ccc", got)
	}

	got := Summarizer{MaxChars: 27}.Update("Code: v1", LatestUpdate("v2", "second"))
	if got != "Code: v2\nTranscript: second" {
		t.Errorf("Expected the newest update with its labels, got %q", got)
	}
}

func TestSummarizer_CompactionKeepsValidUTF8(t *testing.T) {
	s := Summarizer{MaxChars: 5}
	got := s.Update("", "ééééé")
	for _, r := range got {
		if r == '�' {
			t.Fatalf("Expected valid UTF-8, got %q", got)
		}
	}
}

func TestBuild(t *testing.T) {
	sess := session.Session{Summary: "Step 1 done."}
	p := Build(sess, "Step 2 ongoing.")

	if !strings.Contains(p.UserPrompt, "Step 1 done.") {
		t.Error("Expected user prompt to contain the summary")
	}
	if !strings.Contains(p.UserPrompt, "Step 2 ongoing.") {
		t.Error("Expected user prompt to contain the latest update")
	}
	if !strings.Contains(p.UserPrompt, "Summary of previous steps") {
		t.Error("Expected a labeled summary section")
	}
	if !strings.Contains(p.SystemMessage, "You are a Technical Interviewer") {
		t.Error("Expected the interviewer persona in the system message")
	}
	if strings.Index(p.UserPrompt, "Step 1 done.") > strings.Index(p.UserPrompt, "Step 2 ongoing.") {
		t.Error("Expected summary section before the latest update")
	}
}

func TestBuild_IncludesProblem(t *testing.T) {
	sess := session.Session{Question: session.Question{Title: "Two Sum", Description: "find pair"}}
	p := Build(sess, "Code: x")

	if !strings.Contains(p.UserPrompt, "Problem: Two Sum") {
		t.Errorf("Expected problem title in prompt, got %q", p.UserPrompt)
	}
}

func TestBuildEvaluation(t *testing.T) {
	sess := session.Session{
		Question:   session.Question{Title: "Two Sum"},
		Code:       "def f(): pass",
		Transcript: "hash map",
		Summary:    "Code: def f(): pass",
	}
	p := BuildEvaluation(sess)

	for _, want := range []string{"Two Sum", "def f(): pass", "hash map"} {
		if !strings.Contains(p.UserPrompt, want) {
			t.Errorf("Expected evaluation prompt to contain %q", want)
		}
	}
	if !strings.Contains(p.SystemMessage, "JSON") {
		t.Error("Expected evaluation system message to ask for JSON")
	}
}
