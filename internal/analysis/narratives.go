package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const narrativeSystemPrompt = "You are a helpful assistant that provides accurate and detailed information."

// AnalyzeLimitations asks Perplexity for the idea's regulatory, patent,
// market-entry, technical, and adoption risks as free text.
func (r *Research) AnalyzeLimitations(ctx context.Context, idea string, issues, features []string) (string, error) {
	prompt := strings.TrimSpace(fmt.Sprintf(`
다음 비즈니스 아이디어의 사업화 과정에서 발생할 수 있는 잠재적 한계점과 위험 요소를 상세히 분석해주세요:

비즈니스 아이디어: %s
해결하고자 하는 문제: %s
핵심 기능/요소: %s

다음 정보를 포함한 분석이 필요합니다:
1. 법률적 규제 및 제약(구체적인 법률명과 조항 포함)
2. 특허 관련 이슈 및 지적재산권 문제(유사 특허 존재 여부)
3. 시장 진입 장벽(기존 경쟁사, 초기 투자 요구 등)
4. 기술적 제약 및 구현 난이도
5. 잠재적 고객 수용성 문제

각 항목별로 구체적인 사례와 데이터를 포함하여 분석해주세요.`,
		idea, strings.Join(issues, ", "), strings.Join(features, ", ")))
	out, err := r.perplexityNarrative(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("limitation analysis: %w", err)
	}
	return out, nil
}

// AnalyzeTeamRequirements asks Perplexity which roles and skills the idea
// needs as free text.
func (r *Research) AnalyzeTeamRequirements(ctx context.Context, idea string, issues, features []string) (string, error) {
	prompt := strings.TrimSpace(fmt.Sprintf(`
다음 비즈니스 아이디어를 성공적으로 실현하기 위해 필요한 팀 구성을 상세히 분석해주세요:

비즈니스 아이디어: %s
해결하고자 하는 문제: %s
핵심 기능/요소: %s

각 직무별로 필요한 역량, 담당 업무, 채용 우선순위를 포함하여 분석해주세요.`,
		idea, strings.Join(issues, ", "), strings.Join(features, ", ")))
	out, err := r.perplexityNarrative(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("team requirement analysis: %w", err)
	}
	return out, nil
}

// AnalyzeOpportunities searches for opportunity factors and public support
// programs applicable to the idea, as free text.
func (r *Research) AnalyzeOpportunities(ctx context.Context, idea string, issues, features []string) (string, error) {
	prompt := strings.TrimSpace(fmt.Sprintf(`
다음 비즈니스 아이디어의 기회 요인과 활용 가능한 지원 사업을 상세히 분석해주세요:

비즈니스 아이디어: %s
해결하고자 하는 문제: %s
핵심 기능/요소: %s

시장 성장 동력, 기술/사회 트렌드와의 접점, 정부 및 민간 지원 사업(명칭, 주관 기관, 지원 규모, 기간 포함)을 구체적으로 제시해주세요.`,
		idea, strings.Join(issues, ", "), strings.Join(features, ", ")))

	var out string
	err := r.retry(ctx, func(ctx context.Context) error {
		ctx, cancel := withDeadline(ctx, 3*time.Minute)
		defer cancel()
		content, err := r.openai.Search(ctx, prompt, CompletionOptions{
			Temperature: 0.7,
			MaxTokens:   1000,
		})
		if err != nil {
			return err
		}
		out = content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("opportunity analysis: %w", err)
	}
	return out, nil
}

func (r *Research) perplexityNarrative(ctx context.Context, prompt string) (string, error) {
	var out string
	err := r.retry(ctx, func(ctx context.Context) error {
		ctx, cancel := withDeadline(ctx, 3*time.Minute)
		defer cancel()
		content, err := r.perplexity.Complete(ctx, prompt, CompletionOptions{
			SystemPrompt: narrativeSystemPrompt,
			Temperature:  0.7,
			MaxTokens:    1000,
		})
		if err != nil {
			return err
		}
		out = content
		return nil
	})
	return out, err
}
