package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ResearchMarket resolves the KSIC classification for the idea, then runs
// the domestic and global market calls concurrently, interpolating the
// classification into the domestic prompt.
func (r *Research) ResearchMarket(ctx context.Context, idea string, issues, features []string, method string) (MarketResearch, error) {
	var out MarketResearch
	err := r.retry(ctx, func(ctx context.Context) error {
		ctx, cancel := withDeadline(ctx, 5*time.Minute)
		defer cancel()

		opts := CompletionOptions{
			SystemPrompt: "You are a market research assistant that provides detailed and accurate market analysis.",
			Temperature:  0.7,
			MaxTokens:    1000,
		}

		ksicContent, err := r.openai.Search(ctx, ksicClassificationPrompt(idea), CompletionOptions{
			SystemPrompt: "You are a helpful assistant that provides accurate and detailed information.",
			Temperature:  0.7,
			MaxTokens:    1000,
		})
		if err != nil {
			return err
		}
		ksic, err := parseJSON[KSICHierarchy]("ksic classification", ksicContent)
		if err != nil {
			return err
		}
		if ksic.Detail.Code == "" {
			return &ValidationError{Subject: "ksic classification", Reason: "detail code missing"}
		}

		var wg sync.WaitGroup
		var domestic DomesticMarket
		var global GlobalMarket
		var domErr, globalErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			content, err := r.openai.Search(ctx, domesticMarketPrompt(idea, issues, features, method, ksic), opts)
			if err != nil {
				domErr = err
				return
			}
			domestic, domErr = parseJSON[DomesticMarket]("domestic market research", content)
		}()
		go func() {
			defer wg.Done()
			content, err := r.openai.Search(ctx, globalMarketPrompt(idea, issues, features, method), opts)
			if err != nil {
				globalErr = err
				return
			}
			global, globalErr = parseJSON[GlobalMarket]("global market research", content)
		}()
		wg.Wait()
		if domErr != nil {
			return domErr
		}
		if globalErr != nil {
			return globalErr
		}

		out = MarketResearch{KSIC: ksic, Domestic: domestic, Global: global}
		return nil
	})
	if err != nil {
		return MarketResearch{}, fmt.Errorf("market research: %w", err)
	}
	return out, nil
}

func ksicClassificationPrompt(idea string) string {
	return strings.TrimSpace(fmt.Sprintf(`
다음 비즈니스 아이디어에 해당하는 한국표준산업분류(KSIC) 계층 구조를 JSON 형식으로 제공해주세요:
비즈니스 아이디어: %s

반드시 다음 형식이어야 합니다:
{
    "large": {"code": "대분류 코드", "name": "대분류명"},
    "medium": {"code": "중분류 코드", "name": "중분류명"},
    "small": {"code": "소분류 코드", "name": "소분류명"},
    "detail": {"code": "세분류 코드", "name": "세분류명"}
}

실제 KSIC 분류 체계에 존재하는 코드와 이름을 사용하고, JSON 외의 텍스트는 포함하지 마세요.`, idea))
}

func domesticMarketPrompt(idea string, issues, features []string, method string, ksic KSICHierarchy) string {
	return strings.TrimSpace(fmt.Sprintf(`
다음 비즈니스 아이디어의 국내 시장을 조사하여 JSON 형식으로 제공해주세요:
비즈니스 아이디어: %s
해결하고자 하는 문제: %s
핵심 기능/요소: %s
방법론: %s

산업 분류 (KSIC):
대분류: %s (%s) / 중분류: %s (%s) / 소분류: %s (%s) / 세분류: %s (%s)

반드시 다음 형식이어야 합니다:
{
    "ksicCode": "%s",
    "ksicCategory": "%s",
    "marketSizeByYear": [{"year": 2024, "size": 3200000000, "growthRate": 14.29}],
    "averageRevenue": 500000000,
    "averageRevenueSource": "출처",
    "competitionLevel": "경쟁 강도",
    "keyCompetitors": ["경쟁사1", "경쟁사2"],
    "marketTrends": ["트렌드1", "트렌드2"],
    "sources": ["출처1", "출처2"]
}

시장 규모(size)와 평균 매출(averageRevenue)은 원화(KRW) 기준 정수이고, 최근 5년간의 연도별 데이터를 포함해주세요.
JSON 외의 텍스트는 포함하지 마세요.`,
		idea, strings.Join(issues, ", "), strings.Join(features, ", "), method,
		ksic.Large.Name, ksic.Large.Code, ksic.Medium.Name, ksic.Medium.Code,
		ksic.Small.Name, ksic.Small.Code, ksic.Detail.Name, ksic.Detail.Code,
		ksic.Detail.Code, ksic.Detail.Name))
}

func globalMarketPrompt(idea string, issues, features []string, method string) string {
	return strings.TrimSpace(fmt.Sprintf(`
다음 비즈니스 아이디어의 글로벌 시장을 조사하여 JSON 형식으로 제공해주세요:
비즈니스 아이디어: %s
해결하고자 하는 문제: %s
핵심 기능/요소: %s
방법론: %s

반드시 다음 형식이어야 합니다:
{
    "marketSizeByYear": [{"year": 2024, "size": 137580000000, "growthRate": 11.4}],
    "averageRevenue": 20000000,
    "averageRevenueSource": "출처",
    "competitionLevel": "경쟁 강도",
    "keyCompetitors": ["경쟁사1", "경쟁사2"],
    "marketTrends": ["트렌드1", "트렌드2"],
    "sources": ["출처1", "출처2"]
}

시장 규모(size)와 평균 매출(averageRevenue)은 달러(USD) 기준 정수이고, 최근 5년간의 연도별 데이터를 포함해주세요.
JSON 외의 텍스트는 포함하지 마세요.`,
		idea, strings.Join(issues, ", "), strings.Join(features, ", "), method))
}
