package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

const feedbackJSON = `{"score": 72, "pros": ["clear communication"], "cons": ["few concrete examples"]}`

func TestInterviewStartSeedsWelcomeTurn(t *testing.T) {
	session := NewInterviewSession(&stubInvoker{}, zap.NewNop())

	if err := session.Start("Backend Engineer"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if session.State() != StateActive {
		t.Fatalf("expected active state, got %s", session.State())
	}

	turns := session.Turns()
	if len(turns) != 1 {
		t.Fatalf("expected 1 seeded turn, got %d", len(turns))
	}

	if turns[0].Sender != SenderAI {
		t.Fatalf("expected AI welcome turn, got %s", turns[0].Sender)
	}

	if !strings.Contains(turns[0].Text, "Backend Engineer") {
		t.Fatalf("welcome turn must name the role: %q", turns[0].Text)
	}
}

func TestInterviewStartBlankRoleIsNoop(t *testing.T) {
	session := NewInterviewSession(&stubInvoker{}, zap.NewNop())

	if err := session.Start("   "); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}

	if session.State() != StateNotStarted {
		t.Fatalf("expected not_started, got %s", session.State())
	}
}

func TestInterviewBlankCandidateTurnIsNoop(t *testing.T) {
	stub := &stubInvoker{}
	session := NewInterviewSession(stub, zap.NewNop())

	if err := session.Start("QA Engineer"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := session.HandleResponse(context.Background(), "  \n "); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}

	if stub.callCount() != 0 {
		t.Fatalf("expected no model calls, got %d", stub.callCount())
	}

	if got := len(session.Turns()); got != 1 {
		t.Fatalf("expected transcript unchanged, got %d turns", got)
	}
}

func TestInterviewResponseBeforeStart(t *testing.T) {
	session := NewInterviewSession(&stubInvoker{}, zap.NewNop())

	if _, err := session.HandleResponse(context.Background(), "hello"); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

func TestInterviewStaysActiveWithoutMarker(t *testing.T) {
	// The model is instructed to wrap up at 3 candidate turns, but only the
	// marker terminates; a model that keeps asking questions keeps the
	// session active.
	stub := &stubInvoker{responses: []string{
		"Tell me about a project you are proud of.",
		"What was the hardest bug you fixed?",
		"How do you approach testing?",
		"One more question: how do you handle deadlines?",
	}}
	session := NewInterviewSession(stub, zap.NewNop())

	if err := session.Start("Go Developer"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	answers := []string{"I built a payment service.", "A race condition.", "Table tests.", "I plan ahead."}
	for _, answer := range answers {
		if _, err := session.HandleResponse(context.Background(), answer); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if session.State() != StateActive {
		t.Fatalf("expected session to stay active without the marker, got %s", session.State())
	}

	if session.Feedback() != nil {
		t.Fatal("expected no feedback while active")
	}
}

func TestInterviewTerminatesOnMarker(t *testing.T) {
	stub := &stubInvoker{responses: []string{
		"Thank you, that concludes the interview. Best of luck!",
		feedbackJSON,
	}}
	session := NewInterviewSession(stub, zap.NewNop())

	if err := session.Start("Data Analyst"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reply, err := session.HandleResponse(context.Background(), "I have 4 years of SQL experience.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !IsTerminationSignal(reply) {
		t.Fatalf("expected termination signal in reply: %q", reply)
	}

	if session.State() != StateTerminated {
		t.Fatalf("expected terminated state, got %s", session.State())
	}

	feedback := session.Feedback()
	if feedback == nil {
		t.Fatal("expected feedback after termination")
	}

	if feedback.Score != 72 {
		t.Fatalf("expected score 72, got %d", feedback.Score)
	}

	if len(feedback.Pros) != 1 || len(feedback.Cons) != 1 {
		t.Fatalf("unexpected feedback lists: %+v", feedback)
	}

	// One turn call plus one feedback call.
	if stub.callCount() != 2 {
		t.Fatalf("expected 2 model calls, got %d", stub.callCount())
	}

	if !strings.Contains(stub.lastPrompt(), "full transcript") {
		t.Fatalf("expected feedback prompt with transcript, got: %s", stub.lastPrompt())
	}
}

func TestInterviewFeedbackExtractionFailure(t *testing.T) {
	stub := &stubInvoker{responses: []string{
		"That concludes the interview, thanks!",
		"I would rate this candidate quite highly overall.",
	}}
	session := NewInterviewSession(stub, zap.NewNop())

	if err := session.Start("Designer"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := session.HandleResponse(context.Background(), "I mostly work in Figma."); err != nil {
		t.Fatalf("extraction failure must not surface as an error: %v", err)
	}

	if session.State() != StateTerminated {
		t.Fatalf("expected terminated state, got %s", session.State())
	}

	if session.Feedback() != nil {
		t.Fatal("expected feedback to stay unset when extraction fails")
	}
}

func TestInterviewHardTurnCap(t *testing.T) {
	stub := &stubInvoker{responses: []string{
		"Question two?",
		"Question three, ignoring my wrap-up instruction?",
		feedbackJSON,
	}}
	session := NewInterviewSession(stub, zap.NewNop(), WithMaxCandidateTurns(2))

	if err := session.Start("SRE"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := session.HandleResponse(context.Background(), "First answer."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if session.State() != StateActive {
		t.Fatalf("expected active before cap, got %s", session.State())
	}

	if _, err := session.HandleResponse(context.Background(), "Second answer."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if session.State() != StateTerminated {
		t.Fatalf("expected cap to terminate the session, got %s", session.State())
	}

	turns := session.Turns()
	closing := turns[len(turns)-1]
	if closing.Sender != SenderAI || !IsTerminationSignal(closing.Text) {
		t.Fatalf("expected closing AI turn with the marker, got %+v", closing)
	}

	if session.Feedback() == nil {
		t.Fatal("expected feedback after forced termination")
	}
}

func TestInterviewEndResetsSession(t *testing.T) {
	stub := &stubInvoker{responses: []string{
		"That concludes the interview.",
		feedbackJSON,
	}}
	session := NewInterviewSession(stub, zap.NewNop())

	if err := session.Start("PM"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := session.HandleResponse(context.Background(), "An answer."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	session.End()

	if session.State() != StateNotStarted {
		t.Fatalf("expected not_started after end, got %s", session.State())
	}

	if len(session.Turns()) != 0 {
		t.Fatal("expected empty transcript after end")
	}

	if session.Feedback() != nil {
		t.Fatal("expected feedback discarded after end")
	}

	if err := session.Start("PM again"); err != nil {
		t.Fatalf("expected restart to work: %v", err)
	}
}

func TestInterviewRejectsResponseWhileCallInFlight(t *testing.T) {
	stub := &stubInvoker{
		responses: []string{"Next question?"},
		started:   make(chan struct{}, 1),
		release:   make(chan struct{}),
	}
	session := NewInterviewSession(stub, zap.NewNop())

	if err := session.Start("Platform Engineer"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := session.HandleResponse(context.Background(), "An in-flight answer.")
		done <- err
	}()

	// Wait until the model call is suspended, then try another turn.
	<-stub.started

	if _, err := session.HandleResponse(context.Background(), "A second answer too soon."); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	if turns := session.Turns(); len(turns) != 2 {
		t.Fatalf("rejected turn must not touch the transcript, got %d turns", len(turns))
	}

	close(stub.release)

	if err := <-done; err != nil {
		t.Fatalf("unexpected error from suspended call: %v", err)
	}

	if stub.callCount() != 1 {
		t.Fatalf("expected 1 model call, got %d", stub.callCount())
	}

	if turns := session.Turns(); len(turns) != 3 {
		t.Fatalf("expected 3 turns after the suspended call lands, got %d", len(turns))
	}
}

func TestInterviewStaleResponseDoesNotRepopulateResetSession(t *testing.T) {
	stub := &stubInvoker{
		responses: []string{"Next question?"},
		started:   make(chan struct{}, 2),
		release:   make(chan struct{}),
	}
	session := NewInterviewSession(stub, zap.NewNop())

	if err := session.Start("Security Engineer"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := session.HandleResponse(context.Background(), "An in-flight answer.")
		done <- err
	}()

	// Wait until the model call is suspended, then reset the session.
	<-stub.started
	session.End()
	close(stub.release)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}

	if session.State() != StateNotStarted {
		t.Fatalf("expected reset state, got %s", session.State())
	}

	if len(session.Turns()) != 0 {
		t.Fatalf("stale response must not repopulate the session, got %d turns", len(session.Turns()))
	}
}

func TestIsTerminationSignal(t *testing.T) {
	cases := []struct {
		name   string
		text   string
		expect bool
	}{
		{name: "exact phrase", text: "That concludes the interview.", expect: true},
		{name: "case insensitive", text: "THIS CONCLUDES THE INTERVIEW", expect: true},
		{name: "embedded", text: "Thanks for your time, this concludes the interview. Good luck!", expect: true},
		{name: "absent", text: "Let's move on to the next question.", expect: false},
		{name: "empty", text: "", expect: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTerminationSignal(tc.text); got != tc.expect {
				t.Fatalf("expected %v for %q, got %v", tc.expect, tc.text, got)
			}
		})
	}
}
