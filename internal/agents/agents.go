// Package agents implements the three model-backed agents: the policy Q&A
// assistant, the resume screener and the mock-interview simulator. Each
// session is single-owner; an in-flight guard and a generation counter keep
// suspended model calls from mutating reset or superseded sessions.
package agents

import (
	"context"
	"errors"
)

// Invoker is the model gateway seam shared by all agents. The returned text
// is always displayable; failures degrade to fallback messages inside the
// gateway and never surface here as errors.
type Invoker interface {
	Invoke(ctx context.Context, prompt, systemInstruction string) string
}

var (
	// ErrBusy is returned when a session already has a model call in flight.
	ErrBusy = errors.New("a model call is already in flight for this session")
	// ErrEmptyInput is returned when required input is blank. Callers treat
	// it as a no-op: no state change happened, no model call was issued.
	ErrEmptyInput = errors.New("input must not be empty")
	// ErrSuperseded is returned when the session was reset while a model
	// call was suspended. The stale response has been discarded.
	ErrSuperseded = errors.New("session was reset during the call")
	// ErrNotActive is returned when a turn arrives outside an active session.
	ErrNotActive = errors.New("session is not active")
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// ChatMessage is one entry in a chat transcript, in insertion order.
type ChatMessage struct {
	Role Role
	Text string
}

// Sender identifies the author of an interview turn.
type Sender string

const (
	SenderAI        Sender = "ai"
	SenderCandidate Sender = "candidate"
)

// InterviewTurn is one message inside an interview session.
type InterviewTurn struct {
	Sender Sender
	Text   string
}

// Feedback is the structured scoring produced once per terminated interview.
type Feedback struct {
	Score int      `json:"score"`
	Pros  []string `json:"pros"`
	Cons  []string `json:"cons"`
}

// ScreeningResult is the structured outcome of matching a resume against a
// job description. Held only until the next screening supersedes it.
type ScreeningResult struct {
	Score          int      `json:"score"`
	Strengths      []string `json:"strengths"`
	Gaps           []string `json:"gaps"`
	Recommendation string   `json:"recommendation"`
	Summary        string   `json:"summary"`
}
