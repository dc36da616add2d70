// Package ai provides the model gateway shared by all agents. The gateway
// owns the no-throw contract: whatever goes wrong underneath, callers always
// get displayable text back.
package ai

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spigell/hr-copilot/internal/utils"
	"go.uber.org/zap"
)

const (
	// FallbackUnavailable is returned when the endpoint cannot be reached
	// or the call fails outright.
	FallbackUnavailable = "Error connecting to the AI service. Please try again."
	// FallbackEmpty is returned when the call succeeds but yields no usable
	// completion text.
	FallbackEmpty = "I couldn't process that request."

	defaultTimeout      = 60 * time.Second
	defaultMaxLogLength = 200
)

// Generator produces a completion for a prompt under a system instruction.
// Implementations perform at most one attempt per call.
type Generator interface {
	GenerateContent(ctx context.Context, systemInstruction, message string) (string, error)
	Model() string
}

// Gateway wraps a Generator with the fallback contract and a per-call
// timeout so a hung network call cannot suspend a session indefinitely.
type Gateway struct {
	generator Generator
	logger    *zap.Logger
	timeout   time.Duration
	maxLogLen int
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithTimeout overrides the default per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithMaxLogLength overrides how many runes of prompts and responses are
// written to debug logs.
func WithMaxLogLength(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.maxLogLen = n
		}
	}
}

func NewGateway(generator Generator, logger *zap.Logger, opts ...Option) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Gateway{
		generator: generator,
		logger:    logger,
		timeout:   defaultTimeout,
		maxLogLen: defaultMaxLogLength,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Invoke sends the prompt and system instruction to the model and returns the
// first textual completion. Failures are never raised: the result is always a
// non-empty displayable string, falling back to a fixed message on any
// network error, non-success status or missing completion. No retries.
func (g *Gateway) Invoke(ctx context.Context, prompt, systemInstruction string) string {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	g.logger.Debug("model request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.maxLogLen)),
	)

	output, err := g.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		g.logger.Warn("model call failed, returning fallback", zap.Error(err))
		return FallbackUnavailable
	}

	if strings.TrimSpace(output) == "" {
		g.logger.Warn("model returned no completion, returning fallback")
		return FallbackEmpty
	}

	g.logger.Debug("model response",
		zap.Int("response_length", utf8.RuneCountInString(output)),
		zap.String("response_preview", utils.TruncateForLog(output, g.maxLogLen)),
	)

	return output
}

// Model reports the underlying model identifier for logging.
func (g *Gateway) Model() string {
	if g == nil || g.generator == nil {
		return ""
	}
	return g.generator.Model()
}
