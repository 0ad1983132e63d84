package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ExtractBusinessCase structures the free-form problem/solution text into
// the fixed business-case shape every later stage consumes.
func (r *Research) ExtractBusinessCase(ctx context.Context, problem, solution string) (BusinessCase, error) {
	var out BusinessCase
	err := r.retry(ctx, func(ctx context.Context) error {
		ctx, cancel := withDeadline(ctx, 3*time.Minute)
		defer cancel()
		content, err := r.openai.Complete(ctx, businessCasePrompt(problem, solution), CompletionOptions{
			SystemPrompt: "당신은 입력을 구조화하는 AI 도우미입니다. JSON 포맷만 출력하세요.",
			Temperature:  0.7,
			MaxTokens:    1000,
		})
		if err != nil {
			return err
		}
		parsed, err := parseJSON[BusinessCase]("business case", content)
		if err != nil {
			return err
		}
		if err := parsed.validate(); err != nil {
			return err
		}
		out = parsed
		return nil
	})
	if err != nil {
		return BusinessCase{}, fmt.Errorf("business case extraction: %w", err)
	}
	return out, nil
}

func businessCasePrompt(problem, solution string) string {
	return strings.TrimSpace(fmt.Sprintf(`
다음 사용자 입력을 기반으로 비즈니스 케이스를 구조화해주세요.
JSON 형식은 반드시 다음과 같아야 합니다:

{
    "problem": {
        "identifiedIssues": ["문제점1", "문제점2"],
        "developmentMotivation": "이 문제를 해결하고자 하는 동기"
    },
    "solution": {
        "coreElements": ["핵심 요소1", "핵심 요소2"],
        "methodology": "핵심 구현 방법",
        "expectedOutcome": "기대 효과"
    }
}

사용자 입력:
문제: %s
해결책: %s

반드시 위 JSON 형식에 맞춰 응답해주세요.`, problem, solution))
}
