package agents

import (
	"context"
	"sync"
)

// stubInvoker replays queued responses and records every prompt. When the
// queue is empty the last response is repeated. An optional gate makes calls
// block so tests can reset sessions mid-flight.
type stubInvoker struct {
	mu        sync.Mutex
	responses []string
	prompts   []string
	systems   []string

	started chan struct{}
	release chan struct{}
}

func (s *stubInvoker) Invoke(_ context.Context, prompt, systemInstruction string) string {
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, prompt)
	s.systems = append(s.systems, systemInstruction)

	if len(s.responses) == 0 {
		return "stub response"
	}

	response := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return response
}

func (s *stubInvoker) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func (s *stubInvoker) lastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}
