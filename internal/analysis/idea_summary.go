package analysis

import (
	"context"
	"fmt"
	"time"
)

// SummarizeIdea compresses the submission into a short label used in every
// later prompt. Plain text, no JSON.
func (r *Research) SummarizeIdea(ctx context.Context, problem, solution string) (string, error) {
	var out string
	err := r.retry(ctx, func(ctx context.Context) error {
		ctx, cancel := withDeadline(ctx, 2*time.Minute)
		defer cancel()
		content, err := r.openai.Complete(ctx, fmt.Sprintf("문제: %s 해결책: %s", problem, solution), CompletionOptions{
			SystemPrompt: "아이디어를 5단어 이내 한국어로 요약해주세요.",
			Temperature:  0.7,
			MaxTokens:    1000,
		})
		if err != nil {
			return err
		}
		out = content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("idea summation: %w", err)
	}
	return out, nil
}
