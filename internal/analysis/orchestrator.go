package analysis

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/GDG-HUFS-Idea/sparklens/internal/cache"
	"github.com/google/uuid"
)

// ResearchService is the surface of the research layer the pipeline
// drives. *Research satisfies it.
type ResearchService interface {
	ExtractBusinessCase(ctx context.Context, problem, solution string) (BusinessCase, error)
	SummarizeIdea(ctx context.Context, problem, solution string) (string, error)
	FindSimilarServices(ctx context.Context, idea string, features []string) ([]SimilarService, error)
	ResearchMarket(ctx context.Context, idea string, issues, features []string, method string) (MarketResearch, error)
	AnalyzeLimitations(ctx context.Context, idea string, issues, features []string) (string, error)
	AnalyzeTeamRequirements(ctx context.Context, idea string, issues, features []string) (string, error)
	AnalyzeOpportunities(ctx context.Context, idea string, issues, features []string) (string, error)
	SynthesizeReport(ctx context.Context, pre PreAnalysisData, base float64, onProgress func(p float64)) (OverviewReport, error)
}

// ProgressWriter is the slice of the progress store the pipeline needs.
type ProgressWriter interface {
	Set(ctx context.Context, rec cache.ProgressRecord, ttl time.Duration) (string, error)
	UpdatePartial(ctx context.Context, key string, patch cache.ProgressPatch) (bool, error)
}

// ReportStore persists one finished analysis in a single transaction and
// returns the created project id.
type ReportStore interface {
	SaveAnalysisResult(ctx context.Context, ownerID *int64, problem, solution string, pre PreAnalysisData, rep OverviewReport) (int64, error)
}

// Submission is one analysis request as accepted by the API layer.
type Submission struct {
	Problem     string
	Solution    string
	OwnerHost   string
	OwnerUserID *int64
}

// Pipeline runs the overview analysis: business-case extraction, the
// five-way research fan-out, report synthesis and persistence, publishing
// progress to the cache along the way.
type Pipeline struct {
	research ResearchService
	progress ProgressWriter
	store    ReportStore
	log      *log.Logger
}

func NewPipeline(research ResearchService, progress ProgressWriter, store ReportStore, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags)
	}
	return &Pipeline{research: research, progress: progress, store: store, log: logger}
}

// Submit records an initial progress entry and launches the analysis in a
// detached goroutine. The returned task id is the caller's handle for
// polling progress. The run outlives the request context on purpose; if
// the process dies mid-run the progress entry simply expires.
func (p *Pipeline) Submit(ctx context.Context, sub Submission) (string, error) {
	rec := cache.ProgressRecord{
		Status:      cache.StatusInProgress,
		Progress:    0.0,
		Message:     "분석을 시작합니다.",
		OwnerHost:   sub.OwnerHost,
		OwnerUserID: sub.OwnerUserID,
		StartedAt:   time.Now().UTC(),
	}
	taskID, err := p.progress.Set(ctx, rec, cache.ProgressTTL)
	if err != nil {
		return "", err
	}
	runsStarted.Inc()
	go p.run(context.Background(), taskID, sub)
	return taskID, nil
}

func (p *Pipeline) run(ctx context.Context, taskID string, sub Submission) {
	runID := uuid.NewString()
	p.log.Printf("run %s started (task %s)", runID, taskID)

	pre, err := p.preAnalyze(ctx, taskID, sub)
	if err != nil {
		p.log.Printf("run %s: pre-analysis failed: %v", runID, err)
		p.fail(ctx, taskID)
		return
	}

	p.setProgress(ctx, taskID, band(0.33, 0.45), "본 분석 준비 중입니다...")
	base := band(0.45, 0.55)
	p.setProgress(ctx, taskID, base, "본 분석을 시작합니다...")

	synthStart := time.Now()
	last := base
	rep, err := p.research.SynthesizeReport(ctx, pre, base, func(prog float64) {
		// Retried attempts restart from base; never let progress move back.
		if prog <= last {
			return
		}
		last = prog
		p.setProgress(ctx, taskID, prog, "분석 결과를 생성하고 있습니다...")
	})
	stageDuration.WithLabelValues("synthesis").Observe(time.Since(synthStart).Seconds())
	if err != nil {
		p.log.Printf("run %s: synthesis failed: %v", runID, err)
		p.fail(ctx, taskID)
		return
	}

	p.setProgress(ctx, taskID, 0.97, "분석 결과를 저장하고 있습니다...")
	persistStart := time.Now()
	projectID, err := p.store.SaveAnalysisResult(ctx, sub.OwnerUserID, sub.Problem, sub.Solution, pre, rep)
	stageDuration.WithLabelValues("persist").Observe(time.Since(persistStart).Seconds())
	if err != nil {
		p.log.Printf("run %s: persist failed: %v", runID, err)
		p.fail(ctx, taskID)
		return
	}

	st := cache.StatusCompleted
	done := 1.0
	msg := "분석이 완료되었습니다."
	patch := cache.ProgressPatch{Status: &st, Progress: &done, Message: &msg, ProjectID: &projectID}
	if _, err := p.progress.UpdatePartial(ctx, taskID, patch); err != nil {
		p.log.Printf("run %s: progress update failed: %v", runID, err)
	}
	runsCompleted.Inc()
	p.log.Printf("run %s completed, project %d", runID, projectID)
}

// preAnalyze covers everything before synthesis: business case, idea
// summary and the five-way research fan-out.
func (p *Pipeline) preAnalyze(ctx context.Context, taskID string, sub Submission) (PreAnalysisData, error) {
	var pre PreAnalysisData

	p.setProgress(ctx, taskID, band(0.00, 0.06), "비즈니스 케이스 추출 중입니다...")
	start := time.Now()
	bc, err := p.research.ExtractBusinessCase(ctx, sub.Problem, sub.Solution)
	stageDuration.WithLabelValues("business_case").Observe(time.Since(start).Seconds())
	if err != nil {
		return pre, err
	}
	pre.BusinessCase = bc

	p.setProgress(ctx, taskID, band(0.06, 0.12), "아이디어 요약 중입니다...")
	start = time.Now()
	idea, err := p.research.SummarizeIdea(ctx, sub.Problem, sub.Solution)
	stageDuration.WithLabelValues("idea_summary").Observe(time.Since(start).Seconds())
	if err != nil {
		return pre, err
	}
	pre.Idea = idea

	p.setProgress(ctx, taskID, band(0.12, 0.17), "사전 분석 데이터 준비 중입니다...")
	start = time.Now()
	err = p.fanOut(ctx, &pre)
	stageDuration.WithLabelValues("fan_out").Observe(time.Since(start).Seconds())
	if err != nil {
		return pre, err
	}
	return pre, nil
}

// fanOut runs the five research subtasks concurrently and waits for all
// of them, reporting the first error after the join.
func (p *Pipeline) fanOut(ctx context.Context, pre *PreAnalysisData) error {
	var wg sync.WaitGroup
	errCh := make(chan error, 5)

	run := func(name string, op func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := op(); err != nil {
				errCh <- fmt.Errorf("%s: %w", name, err)
			}
		}()
	}

	run("similar services", func() error {
		out, err := p.research.FindSimilarServices(ctx, pre.Idea, pre.BusinessCase.Solution.Features)
		if err == nil {
			pre.SimilarServices = out
		}
		return err
	})
	run("market research", func() error {
		out, err := p.research.ResearchMarket(ctx, pre.Idea, pre.BusinessCase.Problem.Issues, pre.BusinessCase.Solution.Features, pre.BusinessCase.Solution.Method)
		if err == nil {
			pre.Market = out
		}
		return err
	})
	run("limitations", func() error {
		out, err := p.research.AnalyzeLimitations(ctx, pre.Idea, pre.BusinessCase.Problem.Issues, pre.BusinessCase.Solution.Features)
		if err == nil {
			pre.Limitation = out
		}
		return err
	})
	run("team requirements", func() error {
		out, err := p.research.AnalyzeTeamRequirements(ctx, pre.Idea, pre.BusinessCase.Problem.Issues, pre.BusinessCase.Solution.Features)
		if err == nil {
			pre.TeamRequirement = out
		}
		return err
	})
	run("opportunities", func() error {
		out, err := p.research.AnalyzeOpportunities(ctx, pre.Idea, pre.BusinessCase.Problem.Issues, pre.BusinessCase.Solution.Features)
		if err == nil {
			pre.Opportunity = out
		}
		return err
	})

	wg.Wait()
	close(errCh)
	return <-errCh
}

// setProgress is best effort: a cache hiccup must not kill the run.
func (p *Pipeline) setProgress(ctx context.Context, taskID string, progress float64, message string) {
	patch := cache.ProgressPatch{Progress: &progress, Message: &message}
	if _, err := p.progress.UpdatePartial(ctx, taskID, patch); err != nil {
		p.log.Printf("progress update for task %s failed: %v", taskID, err)
	}
}

func (p *Pipeline) fail(ctx context.Context, taskID string) {
	st := cache.StatusFailed
	msg := "분석 처리 중 오류가 발생했습니다. 잠시 후 다시 시도해 주세요."
	if _, err := p.progress.UpdatePartial(ctx, taskID, cache.ProgressPatch{Status: &st, Message: &msg}); err != nil {
		p.log.Printf("failure update for task %s failed: %v", taskID, err)
	}
	runsFailed.Inc()
}

// band picks a random progress value inside [lo, hi), rounded to two
// decimals. Bands do not overlap between stages, so the values a poller
// observes only ever move forward.
func band(lo, hi float64) float64 {
	return math.Round((lo+rand.Float64()*(hi-lo))*100) / 100
}
