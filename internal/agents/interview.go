package agents

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spigell/hr-copilot/internal/extract"
	"github.com/spigell/hr-copilot/internal/logger"
	"go.uber.org/zap"
)

// SessionState is the interview lifecycle: NotStarted -> Active -> Terminated.
type SessionState int

const (
	StateNotStarted SessionState = iota
	StateActive
	StateTerminated
)

func (s SessionState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateTerminated:
		return "terminated"
	default:
		return "not_started"
	}
}

// terminationMarker is the phrase the model is asked to emit when it decides
// the interview is over. Detection is a raw substring match on free text by
// design; harden it in IsTerminationSignal only.
const terminationMarker = "concludes the interview"

// closingRemarks is appended locally when the hard turn cap fires before the
// model emits the marker on its own.
const closingRemarks = "Thank you for your time. That concludes the interview. We will now prepare your feedback."

const (
	welcomeTemplate = "Welcome to your mock interview for the %s position! I'll ask you a few questions to get to know your background. Let's start: tell me about yourself and why you are interested in this role."

	followUpDirective = "You have asked fewer than 3 questions that the candidate answered. Continue the interview: react briefly to the last answer and ask the next question."
	wrapUpDirective   = "The candidate has answered 3 or more questions. Wrap up now: thank the candidate, include the exact phrase \"That concludes the interview.\" and add short closing remarks. Do not ask another question."

	defaultMaxCandidateTurns = 8
)

// IsTerminationSignal reports whether the AI text declares the end of the
// conversation.
func IsTerminationSignal(text string) bool {
	return strings.Contains(strings.ToLower(text), terminationMarker)
}

// InterviewSession is a bounded multi-turn mock interview. All mutation goes
// through Start, HandleResponse and End; suspended model calls from before a
// reset are discarded via the generation counter.
type InterviewSession struct {
	invoker           Invoker
	logger            *zap.Logger
	maxCandidateTurns int

	mu         sync.Mutex
	roleTitle  string
	turns      []InterviewTurn
	state      SessionState
	feedback   *Feedback
	generation uint64
	inFlight   bool
}

// InterviewOption customizes an InterviewSession.
type InterviewOption func(*InterviewSession)

// WithMaxCandidateTurns sets the hard stop on candidate turns. The 3-turn
// instruction to the model stays advisory; this cap guarantees termination
// even when the model never emits the marker.
func WithMaxCandidateTurns(n int) InterviewOption {
	return func(s *InterviewSession) {
		if n > 0 {
			s.maxCandidateTurns = n
		}
	}
}

func NewInterviewSession(invoker Invoker, log *zap.Logger, opts ...InterviewOption) *InterviewSession {
	if log == nil {
		log = zap.NewNop()
	}

	s := &InterviewSession{
		invoker:           invoker,
		logger:            log.With(zap.String(logger.FieldAgent, "interview")),
		maxCandidateTurns: defaultMaxCandidateTurns,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start activates the session for the given role and seeds the transcript
// with the welcome turn. A blank role title is a no-op.
func (s *InterviewSession) Start(roleTitle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	roleTitle = strings.TrimSpace(roleTitle)
	if roleTitle == "" {
		return ErrEmptyInput
	}

	if s.state != StateNotStarted {
		return fmt.Errorf("interview already started for %q", s.roleTitle)
	}

	s.roleTitle = roleTitle
	s.state = StateActive
	s.turns = []InterviewTurn{{
		Sender: SenderAI,
		Text:   fmt.Sprintf(welcomeTemplate, roleTitle),
	}}

	s.logger.Info("interview started", zap.String("role_title", roleTitle))
	return nil
}

// HandleResponse appends the candidate turn, asks the model for the next AI
// turn and appends it unconditionally. When the reply carries the
// termination signal the session terminates and feedback scoring runs
// immediately. Blank input is a no-op. The returned text is the new AI turn.
func (s *InterviewSession) HandleResponse(ctx context.Context, text string) (string, error) {
	s.mu.Lock()

	if s.state != StateActive {
		s.mu.Unlock()
		return "", ErrNotActive
	}

	if s.inFlight {
		s.mu.Unlock()
		return "", ErrBusy
	}

	text = strings.TrimSpace(text)
	if text == "" {
		s.mu.Unlock()
		return "", ErrEmptyInput
	}

	s.turns = append(s.turns, InterviewTurn{Sender: SenderCandidate, Text: text})
	s.inFlight = true
	generation := s.generation
	answered := s.candidateTurnsLocked()
	prompt := s.turnPromptLocked(answered)
	system := renderTemplate(interviewSystemTemplate, map[string]string{"ROLE_TITLE": s.roleTitle})
	s.mu.Unlock()

	reply := s.invoker.Invoke(ctx, prompt, system)

	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		s.logger.Debug("dropping stale interview reply", zap.Uint64("generation", generation))
		return "", ErrSuperseded
	}

	s.turns = append(s.turns, InterviewTurn{Sender: SenderAI, Text: reply})

	terminated := IsTerminationSignal(reply)
	if !terminated && answered >= s.maxCandidateTurns {
		s.logger.Warn("turn cap reached without termination signal, closing the interview",
			zap.Int("candidate_turns", answered),
			zap.Int("max_candidate_turns", s.maxCandidateTurns),
		)
		s.turns = append(s.turns, InterviewTurn{Sender: SenderAI, Text: closingRemarks})
		terminated = true
	}

	if !terminated {
		s.inFlight = false
		s.mu.Unlock()
		return reply, nil
	}

	s.state = StateTerminated
	feedbackPrompt := renderTemplate(interviewFeedbackTemplate, map[string]string{
		"ROLE_TITLE": s.roleTitle,
		"TRANSCRIPT": interviewTranscript(s.turns),
	})
	s.mu.Unlock()

	s.logger.Info("interview terminated, requesting feedback", zap.String("role_title", s.roleTitle))
	raw := s.invoker.Invoke(ctx, feedbackPrompt, system)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != generation {
		s.logger.Debug("dropping stale interview feedback", zap.Uint64("generation", generation))
		return "", ErrSuperseded
	}

	s.inFlight = false

	var feedback Feedback
	if err := extract.Parse(raw, &feedback); err != nil {
		// The session stays terminated with feedback unset; nothing is
		// surfaced to the transcript.
		s.logger.Warn("interview feedback extraction failed", zap.Error(err))
		return reply, nil
	}

	s.feedback = &feedback
	s.logger.Info("interview feedback ready", zap.Int("score", feedback.Score))

	return reply, nil
}

// End resets the session unconditionally to NotStarted, discarding the
// transcript and any feedback. A model response still in flight is dropped.
func (s *InterviewSession) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roleTitle = ""
	s.turns = nil
	s.state = StateNotStarted
	s.feedback = nil
	s.generation++
	s.inFlight = false
}

// State returns the current lifecycle state.
func (s *InterviewSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RoleTitle returns the role the interview was started for.
func (s *InterviewSession) RoleTitle() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roleTitle
}

// Turns returns a copy of the transcript in display order.
func (s *InterviewSession) Turns() []InterviewTurn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := make([]InterviewTurn, len(s.turns))
	copy(turns, s.turns)
	return turns
}

// Feedback returns the structured scoring, or nil while the session has not
// terminated or extraction failed.
func (s *InterviewSession) Feedback() *Feedback {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.feedback == nil {
		return nil
	}

	feedback := *s.feedback
	return &feedback
}

func (s *InterviewSession) candidateTurnsLocked() int {
	count := 0
	for _, turn := range s.turns {
		if turn.Sender == SenderCandidate {
			count++
		}
	}
	return count
}

func (s *InterviewSession) turnPromptLocked(answered int) string {
	directive := followUpDirective
	if answered >= 3 {
		directive = wrapUpDirective
	}

	return renderTemplate(interviewTurnTemplate, map[string]string{
		"ROLE_TITLE": s.roleTitle,
		"TRANSCRIPT": interviewTranscript(s.turns),
		"DIRECTIVE":  directive,
	})
}

func interviewTranscript(turns []InterviewTurn) string {
	var builder strings.Builder
	for _, turn := range turns {
		label := "Interviewer"
		if turn.Sender == SenderCandidate {
			label = "Candidate"
		}
		builder.WriteString(label)
		builder.WriteString(": ")
		builder.WriteString(turn.Text)
		builder.WriteString("\n")
	}
	return strings.TrimSpace(builder.String())
}
