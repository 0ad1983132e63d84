package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// FindSimilarServices searches for existing services resembling the idea.
// The model must return a non-empty array; an empty result fails the call.
func (r *Research) FindSimilarServices(ctx context.Context, idea string, features []string) ([]SimilarService, error) {
	var out []SimilarService
	err := r.retry(ctx, func(ctx context.Context) error {
		ctx, cancel := withDeadline(ctx, 3*time.Minute)
		defer cancel()
		content, err := r.openai.Search(ctx, similarServicesPrompt(idea, features), CompletionOptions{
			Temperature: 0.3,
			MaxTokens:   2000,
		})
		if err != nil {
			return err
		}
		items, err := parseJSON[[]SimilarService]("similar services", content)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return &ValidationError{Subject: "similar services", Reason: "empty array"}
		}
		out = items
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("similar service research: %w", err)
	}
	return out, nil
}

func similarServicesPrompt(idea string, features []string) string {
	return strings.TrimSpace(fmt.Sprintf(`
다음 비즈니스 아이디어와 유사한 실제 서비스를 웹에서 조사하여 JSON 배열로 제공해주세요:
비즈니스 아이디어: %s
핵심 기능/요소: %s

각 항목은 반드시 다음 형식이어야 합니다:
[
    {
        "name": "서비스 이름",
        "url": "서비스 웹사이트 주소",
        "description": "서비스 설명",
        "targetAudience": "주요 타겟층",
        "tags": ["키워드1", "키워드2"],
        "summary": "한 줄 요약",
        "similarity": 85
    }
]

유사도(similarity)는 1-100 사이의 정수이며, 최소 3개 이상의 서비스를 포함해주세요.
JSON 배열 외의 다른 텍스트는 포함하지 마세요.`, idea, strings.Join(features, ", ")))
}
