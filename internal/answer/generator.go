// Package answer turns retrieved passages into a grounded natural-language
// answer.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kotae-ai/kotae/internal/models"
	"github.com/kotae-ai/kotae/internal/retrieval"
	"github.com/kotae-ai/kotae/internal/retry"
)

// MinAnswerChars is the shortest completion accepted as a real answer;
// anything shorter is treated as a guardrail miss and retried.
const MinAnswerChars = 40

// MaxHistoryTurns bounds how much conversation history is replayed into the
// prompt.
const MaxHistoryTurns = 6

// TextGenerator produces a completion for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}

// BackendError wraps a failure of the text generation backend.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("answer backend: %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Answer is the result of one generation request. Success is false when the
// backend failed or every attempt tripped a guardrail; Text then carries a
// safe fallback message rather than model output.
type Answer struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources"`
	Success bool     `json:"success"`
}

// FallbackText is returned when no usable completion could be produced.
const FallbackText = "I could not produce a reliable answer from the available documents. Please try rephrasing the question."

// ErrGuardrail marks a completion rejected by output validation. It is an
// expected outcome consumed by the retry loop, never surfaced to callers.
var ErrGuardrail = errors.New("guardrail rejected completion")

// Generator builds prompts from retrieved passages and validates the model's
// completions.
type Generator struct {
	backend TextGenerator
	policy  retry.Policy
	logger  *zap.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// WithRetryPolicy overrides the guardrail retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(g *Generator) { g.policy = p }
}

// NewGenerator creates an answer generator over a text backend.
func NewGenerator(backend TextGenerator, opts ...Option) *Generator {
	g := &Generator{
		backend: backend,
		policy:  retry.Policy{MaxAttempts: 3},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Ping reports whether the generation backend is reachable. Backends that do
// not support a health probe count as reachable.
func (g *Generator) Ping(ctx context.Context) error {
	if p, ok := g.backend.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Generate answers the question using only the given passages. It never
// returns an error: backend failures and exhausted guardrail retries degrade
// to a fallback Answer with Success=false, so one flaky completion cannot
// take down a chat session.
func (g *Generator) Generate(ctx context.Context, question string, passages []retrieval.Passage, history []models.Turn) Answer {
	if len(passages) == 0 {
		return Answer{Text: FallbackText, Sources: []string{}, Success: false}
	}

	prompt := g.buildPrompt(question, passages, history)
	sources := collectSources(passages)

	var text string
	err := g.policy.Do(ctx, func(attempt int) error {
		out, genErr := g.backend.Generate(ctx, prompt)
		if genErr != nil {
			return &BackendError{Op: "generate", Err: genErr}
		}
		out = strings.TrimSpace(out)
		if reason := guardrail(out); reason != "" {
			g.logger.Warn("completion rejected",
				zap.Int("attempt", attempt),
				zap.String("reason", reason))
			return fmt.Errorf("%w: %s", ErrGuardrail, reason)
		}
		text = out
		return nil
	})
	if err != nil {
		g.logger.Warn("answer generation failed", zap.Error(err))
		return Answer{Text: FallbackText, Sources: sources, Success: false}
	}
	return Answer{Text: text, Sources: sources, Success: true}
}

// guardrail returns a non-empty rejection reason for completions that are
// empty, suspiciously short, or canned refusals.
func guardrail(text string) string {
	if text == "" {
		return "empty completion"
	}
	if len(text) < MinAnswerChars {
		return fmt.Sprintf("completion too short (%d chars)", len(text))
	}
	lower := strings.ToLower(text)
	for _, pattern := range refusalPatterns {
		if strings.Contains(lower, pattern) {
			return "refusal pattern: " + pattern
		}
	}
	return ""
}

var refusalPatterns = []string{
	"i cannot help",
	"i can't help",
	"i cannot assist",
	"i can't assist",
	"as an ai language model",
	"i'm sorry, but i cannot",
	"i am sorry, but i cannot",
	"i do not have access",
	"i don't have access",
}

func (g *Generator) buildPrompt(question string, passages []retrieval.Passage, history []models.Turn) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant that answers questions using only the provided context.\n")
	b.WriteString("If the context does not contain the answer, say so plainly instead of guessing.\n\n")

	b.WriteString("Context:\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] (%s)\n%s\n\n", i+1, p.Source, p.Text)
	}

	if n := len(history); n > 0 {
		if n > MaxHistoryTurns {
			history = history[n-MaxHistoryTurns:]
		}
		b.WriteString("Conversation so far:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Text)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Question: %s\nAnswer:", question)
	return b.String()
}

// collectSources returns the distinct source names in first-seen order.
func collectSources(passages []retrieval.Passage) []string {
	seen := make(map[string]struct{}, len(passages))
	sources := make([]string, 0, len(passages))
	for _, p := range passages {
		if p.Source == "" {
			continue
		}
		if _, ok := seen[p.Source]; ok {
			continue
		}
		seen[p.Source] = struct{}{}
		sources = append(sources, p.Source)
	}
	return sources
}
