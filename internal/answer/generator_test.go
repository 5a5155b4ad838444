package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kotae-ai/kotae/internal/models"
	"github.com/kotae-ai/kotae/internal/retrieval"
)

const goodAnswer = "The ingestion pipeline extracts text, chunks it, and stores embeddings for retrieval."

func testPassages() []retrieval.Passage {
	return []retrieval.Passage{
		{ID: "d1_chunk_0", DocumentID: "d1", Source: "guide.pdf", Text: "Chunking splits documents.", Score: 0.9},
		{ID: "d1_chunk_1", DocumentID: "d1", Source: "guide.pdf", Text: "Embeddings map text to vectors.", Score: 0.8},
		{ID: "d2_chunk_0", DocumentID: "d2", Source: "notes.txt", Text: "Retrieval finds similar chunks.", Score: 0.7},
	}
}

func TestGenerateSuccess(t *testing.T) {
	mock := NewMockGenerator(goodAnswer)
	g := NewGenerator(mock)
	ans := g.Generate(context.Background(), "how does ingestion work?", testPassages(), nil)
	if !ans.Success {
		t.Fatalf("expected success, got %+v", ans)
	}
	if ans.Text != goodAnswer {
		t.Errorf("unexpected text %q", ans.Text)
	}
	if len(ans.Sources) != 2 || ans.Sources[0] != "guide.pdf" || ans.Sources[1] != "notes.txt" {
		t.Errorf("expected deduplicated sources in first-seen order, got %v", ans.Sources)
	}
}

func TestGenerateRetriesGuardrail(t *testing.T) {
	// Empty twice, then a valid completion on the third attempt.
	mock := NewMockGenerator("", "", goodAnswer)
	g := NewGenerator(mock)
	ans := g.Generate(context.Background(), "q", testPassages(), nil)
	if !ans.Success {
		t.Fatalf("expected success after retries, got %+v", ans)
	}
	if mock.Calls() != 3 {
		t.Errorf("expected 3 attempts, got %d", mock.Calls())
	}
}

func TestGenerateShortCompletionRejected(t *testing.T) {
	mock := NewMockGenerator("too short")
	g := NewGenerator(mock)
	ans := g.Generate(context.Background(), "q", testPassages(), nil)
	if ans.Success {
		t.Fatalf("expected failure for persistently short answers, got %+v", ans)
	}
	if ans.Text != FallbackText {
		t.Errorf("expected fallback text, got %q", ans.Text)
	}
	if mock.Calls() != 3 {
		t.Errorf("expected guardrail to exhaust retries, got %d calls", mock.Calls())
	}
}

func TestGenerateRefusalRejected(t *testing.T) {
	refusal := "I'm sorry, but I cannot answer that question based on the provided material here."
	mock := NewMockGenerator(refusal, goodAnswer)
	g := NewGenerator(mock)
	ans := g.Generate(context.Background(), "q", testPassages(), nil)
	if !ans.Success {
		t.Fatalf("expected retry past refusal, got %+v", ans)
	}
	if mock.Calls() != 2 {
		t.Errorf("expected 2 attempts, got %d", mock.Calls())
	}
}

func TestGenerateBackendFailure(t *testing.T) {
	mock := NewMockGenerator()
	mock.FailWith(errors.New("backend down"))
	g := NewGenerator(mock)
	ans := g.Generate(context.Background(), "q", testPassages(), nil)
	if ans.Success {
		t.Fatalf("expected degraded answer, got %+v", ans)
	}
	if ans.Text != FallbackText {
		t.Errorf("expected fallback text, got %q", ans.Text)
	}
	if len(ans.Sources) == 0 {
		t.Errorf("degraded answer should still carry sources")
	}
}

func TestGenerateNoPassages(t *testing.T) {
	mock := NewMockGenerator(goodAnswer)
	g := NewGenerator(mock)
	ans := g.Generate(context.Background(), "q", nil, nil)
	if ans.Success {
		t.Fatalf("expected failure with no context, got %+v", ans)
	}
	if mock.Calls() != 0 {
		t.Errorf("backend should not be called without context, got %d calls", mock.Calls())
	}
}

func TestGeneratePromptIncludesContextAndHistory(t *testing.T) {
	mock := NewMockGenerator(goodAnswer)
	g := NewGenerator(mock)
	history := []models.Turn{
		{Role: "user", Text: "old question one"},
		{Role: "assistant", Text: "old answer one"},
		{Role: "user", Text: "old question two"},
		{Role: "assistant", Text: "old answer two"},
		{Role: "user", Text: "old question three"},
		{Role: "assistant", Text: "old answer three"},
		{Role: "user", Text: "old question four"},
	}
	g.Generate(context.Background(), "latest question", testPassages(), history)
	prompt := mock.LastPrompt()

	if !strings.Contains(prompt, "Chunking splits documents.") {
		t.Errorf("prompt missing passage text")
	}
	if !strings.Contains(prompt, "latest question") {
		t.Errorf("prompt missing question")
	}
	if strings.Contains(prompt, "old question one") {
		t.Errorf("prompt should drop history beyond the last %d turns", MaxHistoryTurns)
	}
	if !strings.Contains(prompt, "old question two") {
		t.Errorf("prompt missing recent history turn")
	}
}
