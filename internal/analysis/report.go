package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	synthesisMaxTokens = 5000
	synthesisTimeout   = 5 * time.Minute
	// ceiling for token-ratio progress; the remainder belongs to
	// validation and persistence
	synthesisProgressCap = 0.95
)

// estimateTokens approximates the model tokenizer at roughly four runes
// per token. Only progress reporting depends on it, so precision does not
// matter.
func estimateTokens(s string) int {
	return utf8.RuneCountInString(s) / 4
}

// SynthesizeReport streams the final report completion, deriving progress
// from the ratio of generated tokens to the estimated output budget.
// Values passed to onProgress start at base and never exceed
// synthesisProgressCap; monotonicity across retry attempts is the
// caller's guard.
func (r *Research) SynthesizeReport(ctx context.Context, pre PreAnalysisData, base float64, onProgress func(p float64)) (OverviewReport, error) {
	estimatedBudget := float64(synthesisMaxTokens) * 1.1
	prompt := reportPrompt(pre)

	var out OverviewReport
	err := r.retry(ctx, func(ctx context.Context) error {
		ctx, cancel := withDeadline(ctx, synthesisTimeout)
		defer cancel()

		var total strings.Builder
		last := base
		content, err := r.openai.CompleteStream(ctx, prompt, CompletionOptions{
			SystemPrompt: strings.TrimSpace(`
당신은 비즈니스 분석 전문가입니다.
객관적인 데이터를 기반으로 사업 아이디어를 분석하고, 점수를 산출하세요.
추가 설명이나 불필요한 문장은 포함하지 마세요.
반드시 중괄호 { }로 시작하는 순수 JSON을 반환해야 합니다.`),
			Temperature: 0.2,
			MaxTokens:   synthesisMaxTokens,
		}, func(piece string) {
			total.WriteString(piece)
			ratio := math.Min(float64(estimateTokens(total.String()))/estimatedBudget, 1.0)
			p := math.Round((base+ratio*(synthesisProgressCap-base))*100) / 100
			if p > last {
				last = p
				if onProgress != nil {
					onProgress(p)
				}
			}
		})
		if err != nil {
			return err
		}

		rep, err := parseJSON[OverviewReport]("overview report", strings.TrimSpace(content))
		if err != nil {
			return err
		}
		if err := rep.validate(); err != nil {
			return err
		}
		rep.Scores.Recompute()
		out = rep
		return nil
	})
	if err != nil {
		return OverviewReport{}, fmt.Errorf("overview analysis: %w", err)
	}
	return out, nil
}

func reportPrompt(pre PreAnalysisData) string {
	similar, _ := json.Marshal(pre.SimilarServices)
	domestic, _ := json.MarshalIndent(pre.Market.Domestic, "", "  ")
	global, _ := json.MarshalIndent(pre.Market.Global, "", "  ")
	k := pre.Market.KSIC

	return strings.TrimSpace(fmt.Sprintf(`
다음 데이터를 기반으로 상세한 사업화 분석 리포트를 JSON 형식으로 생성해주세요:
## 비즈니스 아이디어 정보 ##
문제점: %s
개발 동기: %s
핵심 요소: %s
방법론: %s
기대 성과: %s

## 산업 분류 정보 ##
대분류: %s (%s)
중분류: %s (%s)
소분류: %s (%s)
세분류: %s (%s)

## 시장 분석 정보 ##
### 국내 시장 ###
%s

### 글로벌 시장 ###
%s

## 유사 서비스 정보 ##
%s

## 기회 요인 ##
%s

## 한계점 ##
%s

## 팀 구성 정보 ##
%s

반드시 'ksicCode', 'ksicCategory', 'ksicHierarchy' 필드를 포함하여 KSIC 분류 정보를 완벽하게 표시해주세요.
KSIC 계층 구조는 대분류, 중분류, 소분류, 세분류 정보를 모두 포함해야 합니다.

리포트는 반드시 다음 구조의 순수 JSON이어야 합니다:
{
    "ksicCode": "...", "ksicCategory": "...",
    "ksicHierarchy": {"large": {"code","name"}, "medium": {...}, "small": {...}, "detail": {...}},
    "marketAnalysis": {"domestic": "...", "global": "..."},
    "growthRates": {"5YearKorea": "...", "5YearGlobal": "...", "source": "..."},
    "marketSizeByYear": {"domestic": [{"year", "size", "growthRate"}, {"source"}], "global": [...]},
    "averageRevenue": {"domestic": "...", "global": "...", "source": "..."},
    "similarServices": [{"name", "url", "description", "targetAudience", "tags", "summary", "similarity"}],
    "targetAudience": [{"segment", "reasons", "interestFactors", "onlineActivities", "onlineTouchpoints", "offlineTouchpoints"}],
    "businessModel": {"tagline", "value", "valueDetails", "revenueStructure", "investmentPriorities": [{"name", "description"}], "breakEvenPoint"},
    "marketingStrategy": {"approach", "channels", "messages", "budgetAllocation", "kpis", "phasedStrategy": {"preLaunch", "launch", "growth"}},
    "opportunities": ["..."],
    "supportPrograms": [{"name", "organization", "amount", "period", "details"}],
    "limitations": [{"category", "details", "impact", "solution"}],
    "requiredTeam": {"roles": [{"title", "skills", "responsibilities", "priority"}]},
    "scores": {"market", "opportunity", "similarService", "risk", "total"},
    "oneLineReview": "..."
}

유사 서비스는 유사도 점수가 높은 상위 5개를 실제 서비스명과 함께 제공하고,
주 타겟층은 최소 3개 이상의 세그먼트를 구체적으로 제시해주세요.
모든 점수(scores)는 1-100 사이의 정수여야 합니다.`,
		strings.Join(pre.BusinessCase.Problem.Issues, ", "),
		pre.BusinessCase.Problem.Motivation,
		strings.Join(pre.BusinessCase.Solution.Features, ", "),
		pre.BusinessCase.Solution.Method,
		pre.BusinessCase.Solution.Deliverable,
		k.Large.Name, k.Large.Code, k.Medium.Name, k.Medium.Code,
		k.Small.Name, k.Small.Code, k.Detail.Name, k.Detail.Code,
		domestic, global, similar,
		pre.Opportunity, pre.Limitation, pre.TeamRequirement))
}
