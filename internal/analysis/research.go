// Package analysis implements the idea-analysis pipeline: business-case
// extraction, a five-way research fan-out against completion providers,
// streaming report synthesis, and the orchestration that drives them while
// publishing progress to the task progress store.
package analysis

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/GDG-HUFS-Idea/sparklens/internal/jsonrepair"
	"github.com/GDG-HUFS-Idea/sparklens/internal/retry"
)

const maxAttempts = 3

// Research bundles the provider clients behind one service exposing a
// method per research subtask. Every provider call is wrapped by the
// backoff retrier and parsed through jsonrepair before typed decoding.
type Research struct {
	openai     *OpenAIClient
	perplexity *PerplexityClient
	log        *log.Logger
}

func NewResearch(openai *OpenAIClient, perplexity *PerplexityClient, logger *log.Logger) *Research {
	if logger == nil {
		logger = log.New(log.Writer(), "[RESEARCH] ", log.LstdFlags)
	}
	return &Research{openai: openai, perplexity: perplexity, log: logger}
}

// withDeadline applies the per-subtask call budget to ctx.
func withDeadline(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// parseJSON repairs raw model output and decodes it into T.
func parseJSON[T any](subject, raw string) (T, error) {
	var out T
	repaired, err := jsonrepair.Repair(raw)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return out, &ValidationError{Subject: subject, Reason: err.Error()}
	}
	return out, nil
}

func (r *Research) retry(ctx context.Context, op func(ctx context.Context) error) error {
	return retry.Do(ctx, r.log, maxAttempts, op)
}
