package session

import "time"

// Question is the interview problem a session was created for. It is fixed at creation.
type Question struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation,omitempty"`
}

// Session is the mutable state of one interview attempt
type Session struct {
	ID         string    `json:"session_id"`
	Question   Question  `json:"question"`
	Code       string    `json:"code"`       // latest full submission, overwritten
	Transcript string    `json:"transcript"` // spoken fragments, space separated
	Summary    string    `json:"summary"`    // running condensed context
	Feedback   string    `json:"feedback"`   // empty until the first successful cycle
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasFeedback reports whether a feedback cycle has succeeded for this session
func (s Session) HasFeedback() bool {
	return s.Feedback != ""
}

// ApplyCode overwrites the stored code when a non-empty submission is supplied
func (s *Session) ApplyCode(code string) {
	if code == "" {
		return
	}
	s.Code = code
}

// AppendTranscript adds a spoken fragment, separated from earlier text by one space
func (s *Session) AppendTranscript(fragment string) {
	if fragment == "" {
		return
	}
	if s.Transcript == "" {
		s.Transcript = fragment
		return
	}
	s.Transcript += " " + fragment
}
