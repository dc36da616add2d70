package agents

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/hr-copilot/internal/logger"
)

// ChatSession drives the policy Q&A assistant. The transcript is append-only
// and owned exclusively by the session; Reset discards it.
type ChatSession struct {
	invoker Invoker
	logger  *zap.Logger
	system  string

	mu         sync.Mutex
	messages   []ChatMessage
	generation uint64
	inFlight   bool
}

// NewChatSession builds a session answering questions against the provided
// policy document. userName is used for greetings and may be empty.
func NewChatSession(invoker Invoker, log *zap.Logger, policy, userName string) *ChatSession {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String(logger.FieldAgent, "chat"))

	if strings.TrimSpace(userName) == "" {
		userName = "the employee"
	}

	return &ChatSession{
		invoker: invoker,
		logger:  log,
		system: renderTemplate(chatSystemTemplate, map[string]string{
			"POLICY":    strings.TrimSpace(policy),
			"USER_NAME": userName,
		}),
	}
}

// Ask appends the user message, asks the model with the whole transcript and
// appends the reply. Blank input is a no-op.
func (c *ChatSession) Ask(ctx context.Context, text string) (string, error) {
	c.mu.Lock()

	if c.inFlight {
		c.mu.Unlock()
		return "", ErrBusy
	}

	text = strings.TrimSpace(text)
	if text == "" {
		c.mu.Unlock()
		return "", ErrEmptyInput
	}

	c.messages = append(c.messages, ChatMessage{Role: RoleUser, Text: text})
	c.inFlight = true
	generation := c.generation
	prompt := chatTranscript(c.messages)
	c.mu.Unlock()

	reply := c.invoker.Invoke(ctx, prompt, c.system)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != generation {
		c.logger.Debug("dropping stale chat reply", zap.Uint64("generation", generation))
		return "", ErrSuperseded
	}

	c.inFlight = false
	c.messages = append(c.messages, ChatMessage{Role: RoleAI, Text: reply})

	return reply, nil
}

// Messages returns a copy of the transcript in display order.
func (c *ChatSession) Messages() []ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	messages := make([]ChatMessage, len(c.messages))
	copy(messages, c.messages)
	return messages
}

// Reset discards the transcript and invalidates any suspended call.
func (c *ChatSession) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = nil
	c.generation++
	c.inFlight = false
}

func chatTranscript(messages []ChatMessage) string {
	var builder strings.Builder
	for _, msg := range messages {
		label := "Employee"
		if msg.Role == RoleAI {
			label = "Assistant"
		}
		builder.WriteString(label)
		builder.WriteString(": ")
		builder.WriteString(msg.Text)
		builder.WriteString("\n")
	}
	return strings.TrimSpace(builder.String())
}
