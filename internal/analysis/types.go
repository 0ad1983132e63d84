package analysis

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// CodeName is one level of the KSIC industry classification.
type CodeName struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// KSICHierarchy is the four-level KSIC classification resolved for an idea.
// The detail code identifies a MarketResearch row in persistence.
type KSICHierarchy struct {
	Large  CodeName `json:"large"`
	Medium CodeName `json:"medium"`
	Small  CodeName `json:"small"`
	Detail CodeName `json:"detail"`
}

// BusinessCase is the structured extraction of the submitted problem and
// solution text. Field aliases follow the JSON shape the model is prompted
// to emit.
type BusinessCase struct {
	Problem  BusinessProblem  `json:"problem"`
	Solution BusinessSolution `json:"solution"`
}

type BusinessProblem struct {
	Issues     []string `json:"identifiedIssues"`
	Motivation string   `json:"developmentMotivation"`
}

type BusinessSolution struct {
	Features    []string `json:"coreElements"`
	Method      string   `json:"methodology"`
	Deliverable string   `json:"expectedOutcome"`
}

func (b BusinessCase) validate() error {
	if len(b.Problem.Issues) == 0 {
		return &ValidationError{Subject: "business case", Reason: "no identified issues"}
	}
	if len(b.Solution.Features) == 0 {
		return &ValidationError{Subject: "business case", Reason: "no core elements"}
	}
	if b.Solution.Method == "" {
		return &ValidationError{Subject: "business case", Reason: "methodology missing"}
	}
	return nil
}

// MarketSizePoint is one year in a market size/growth series.
type MarketSizePoint struct {
	Year       int     `json:"year"`
	Size       int64   `json:"size"`
	GrowthRate float64 `json:"growthRate"`
}

// DomesticMarket is the Korean-market research result.
type DomesticMarket struct {
	KSICCode             string            `json:"ksicCode"`
	KSICCategory         string            `json:"ksicCategory"`
	SizeByYear           []MarketSizePoint `json:"marketSizeByYear"`
	AverageRevenue       int64             `json:"averageRevenue"`
	AverageRevenueSource string            `json:"averageRevenueSource"`
	CompetitionLevel     string            `json:"competitionLevel"`
	KeyCompetitors       []string          `json:"keyCompetitors"`
	MarketTrends         []string          `json:"marketTrends"`
	Sources              []string          `json:"sources"`
}

// GlobalMarket is the global-market research result.
type GlobalMarket struct {
	SizeByYear           []MarketSizePoint `json:"marketSizeByYear"`
	AverageRevenue       int64             `json:"averageRevenue"`
	AverageRevenueSource string            `json:"averageRevenueSource"`
	CompetitionLevel     string            `json:"competitionLevel"`
	KeyCompetitors       []string          `json:"keyCompetitors"`
	MarketTrends         []string          `json:"marketTrends"`
	Sources              []string          `json:"sources"`
}

// MarketResearch combines the classification lookup with the two scoped
// market calls.
type MarketResearch struct {
	KSIC     KSICHierarchy
	Domestic DomesticMarket
	Global   GlobalMarket
}

// SimilarService is one competitor-like service found by web search.
type SimilarService struct {
	Name           string   `json:"name"`
	URL            string   `json:"url"`
	Description    string   `json:"description"`
	TargetAudience string   `json:"targetAudience"`
	Tags           []string `json:"tags"`
	Summary        string   `json:"summary"`
	Similarity     int      `json:"similarity"`
}

// PreAnalysisData collects every fan-out result; it lives only in pipeline
// memory until the synthesis stage consumes it.
type PreAnalysisData struct {
	Idea            string
	BusinessCase    BusinessCase
	SimilarServices []SimilarService
	Market          MarketResearch
	Limitation      string
	Opportunity     string
	TeamRequirement string
}

// ---- final report --------------------------------------------------------

// ScopedText holds a narrative per market scope.
type ScopedText struct {
	Domestic string `json:"domestic"`
	Global   string `json:"global"`
}

type GrowthRates struct {
	FiveYearKorea  string `json:"5YearKorea"`
	FiveYearGlobal string `json:"5YearGlobal"`
	Source         string `json:"source"`
}

// ReportSizeEntry is one element of the report's marketSizeByYear arrays.
// The model emits two shapes in the same array: yearly datapoints and a
// trailing source citation. The shape is decided by structural inspection.
type ReportSizeEntry struct {
	Year       int    `json:"year,omitempty"`
	Size       string `json:"size,omitempty"`
	GrowthRate string `json:"growthRate,omitempty"`
	Source     string `json:"source,omitempty"`
}

// IsSource reports whether the entry is a citation rather than a datapoint.
func (e ReportSizeEntry) IsSource() bool { return e.Year == 0 && e.Source != "" }

type ReportSizeByYear struct {
	Domestic []ReportSizeEntry `json:"domestic"`
	Global   []ReportSizeEntry `json:"global"`
}

type AverageRevenue struct {
	Domestic string `json:"domestic"`
	Global   string `json:"global"`
	Source   string `json:"source"`
}

type TargetAudience struct {
	Segment            string `json:"segment"`
	Reasons            string `json:"reasons"`
	InterestFactors    string `json:"interestFactors"`
	OnlineActivities   string `json:"onlineActivities"`
	OnlineTouchpoints  string `json:"onlineTouchpoints"`
	OfflineTouchpoints string `json:"offlineTouchpoints"`
}

type InvestmentPriority struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type BusinessModel struct {
	Tagline              string               `json:"tagline"`
	Value                string               `json:"value"`
	ValueDetails         string               `json:"valueDetails"`
	RevenueStructure     string               `json:"revenueStructure"`
	InvestmentPriorities []InvestmentPriority `json:"investmentPriorities"`
	BreakEvenPoint       string               `json:"breakEvenPoint"`
}

type PhasedStrategy struct {
	PreLaunch string `json:"preLaunch"`
	Launch    string `json:"launch"`
	Growth    string `json:"growth"`
}

type MarketingStrategy struct {
	Approach         string         `json:"approach"`
	Channels         []string       `json:"channels"`
	Messages         []string       `json:"messages"`
	BudgetAllocation string         `json:"budgetAllocation"`
	KPIs             []string       `json:"kpis"`
	PhasedStrategy   PhasedStrategy `json:"phasedStrategy"`
}

type SupportProgram struct {
	Name         string `json:"name"`
	Organization string `json:"organization"`
	Amount       string `json:"amount"`
	Period       string `json:"period"`
	Details      string `json:"details"`
}

type Limitation struct {
	Category string `json:"category"`
	Details  string `json:"details"`
	Impact   string `json:"impact"`
	Solution string `json:"solution"`
}

// Priority arrives either as a string ("높음") or a bare number; both are
// normalized to a string.
type Priority string

func (p *Priority) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = Priority(s)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*p = Priority(strconv.Itoa(n))
		return nil
	}
	return fmt.Errorf("priority: unrecognized shape %s", string(b))
}

type TeamRole struct {
	Title            string   `json:"title"`
	Skills           string   `json:"skills"`
	Responsibilities string   `json:"responsibilities"`
	Priority         Priority `json:"priority"`
}

type RequiredTeam struct {
	Roles []TeamRole `json:"roles"`
}

// Scores carries the four sub-scores plus the derived total. Total is
// recomputed as the mean of the sub-scores after parsing, never trusted
// verbatim from the model.
type Scores struct {
	Market         int     `json:"market"`
	Opportunity    int     `json:"opportunity"`
	SimilarService int     `json:"similarService"`
	Risk           int     `json:"risk"`
	Total          float64 `json:"total"`
}

// Recompute derives the total from the four sub-scores.
func (s *Scores) Recompute() {
	s.Total = float64(s.Market+s.Opportunity+s.SimilarService+s.Risk) / 4
}

// OverviewReport is the synthesized final report combining every fan-out
// result.
type OverviewReport struct {
	KSICCode          string            `json:"ksicCode"`
	KSICCategory      string            `json:"ksicCategory"`
	KSICHierarchy     KSICHierarchy     `json:"ksicHierarchy"`
	MarketAnalysis    ScopedText        `json:"marketAnalysis"`
	GrowthRates       GrowthRates       `json:"growthRates"`
	MarketSizeByYear  ReportSizeByYear  `json:"marketSizeByYear"`
	AverageRevenue    AverageRevenue    `json:"averageRevenue"`
	SimilarServices   []SimilarService  `json:"similarServices"`
	TargetAudience    []TargetAudience  `json:"targetAudience"`
	BusinessModel     BusinessModel     `json:"businessModel"`
	MarketingStrategy MarketingStrategy `json:"marketingStrategy"`
	Opportunities     []string          `json:"opportunities"`
	SupportPrograms   []SupportProgram  `json:"supportPrograms"`
	Limitations       []Limitation      `json:"limitations"`
	RequiredTeam      RequiredTeam      `json:"requiredTeam"`
	Scores            Scores            `json:"scores"`
	OneLineReview     string            `json:"oneLineReview"`
}

func (r *OverviewReport) validate() error {
	for name, v := range map[string]int{
		"market":         r.Scores.Market,
		"opportunity":    r.Scores.Opportunity,
		"similarService": r.Scores.SimilarService,
		"risk":           r.Scores.Risk,
	} {
		if v < 1 || v > 100 {
			return &ValidationError{Subject: "overview report", Reason: fmt.Sprintf("score %s=%d out of range [1,100]", name, v)}
		}
	}
	if r.KSICHierarchy.Detail.Code == "" {
		return &ValidationError{Subject: "overview report", Reason: "ksic hierarchy incomplete"}
	}
	if len(r.SimilarServices) == 0 {
		return &ValidationError{Subject: "overview report", Reason: "no similar services"}
	}
	if r.OneLineReview == "" {
		return &ValidationError{Subject: "overview report", Reason: "one line review missing"}
	}
	return nil
}
