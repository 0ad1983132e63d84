// Package store persists finished analyses in Postgres. One analysis is
// written in a single transaction: the project, its idea, the deduplicated
// market research and the overview report.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	appconfig "github.com/GDG-HUFS-Idea/sparklens/config"
	"github.com/GDG-HUFS-Idea/sparklens/internal/analysis"
)

// Project statuses.
const (
	ProjectStatusDraft    = "draft"
	ProjectStatusAnalyzed = "analyzed"
)

// Market scopes and currencies for trend and benchmark rows.
const (
	ScopeDomestic = "domestic"
	ScopeGlobal   = "global"

	CurrencyKRW = "KRW"
	CurrencyUSD = "USD"
)

// ErrNotFound is returned when a lookup matches no row the caller may see.
var ErrNotFound = errors.New("store: not found")

type Store struct {
	DB *sql.DB
}

// New builds the Store from DATABASE_URL or the individual POSTGRES_*
// variables.
func New(ctx context.Context) (*Store, error) {
	return NewWithDSN(ctx, appconfig.PostgresFromEnv().DSN())
}

// NewWithDSN constructs the Store using an explicit Postgres DSN.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Project is one row of the projects table.
type Project struct {
	ID        int64
	UserID    *int64
	Name      string
	Status    string
	CreatedAt time.Time
}

// OverviewAnalysisRecord is a persisted report with its project context.
type OverviewAnalysisRecord struct {
	ProjectID   int64
	ProjectName string
	Evaluation  string
	Report      json.RawMessage
	CreatedAt   time.Time
}

// SaveAnalysisResult writes one finished analysis and returns the new
// project id. Everything happens in one transaction; market research rows
// are shared between analyses with the same KSIC detail classification.
func (s *Store) SaveAnalysisResult(ctx context.Context, ownerID *int64, problem, solution string, pre analysis.PreAnalysisData, rep analysis.OverviewReport) (projectID int64, err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var userID sql.NullInt64
	if ownerID != nil {
		userID = sql.NullInt64{Int64: *ownerID, Valid: true}
	}
	err = tx.QueryRowContext(ctx, `
INSERT INTO projects (user_id, name, status)
VALUES ($1,$2,$3)
RETURNING id
`, userID, pre.Idea, ProjectStatusAnalyzed).Scan(&projectID)
	if err != nil {
		return 0, fmt.Errorf("insert project: %w", err)
	}

	issues, err := json.Marshal(pre.BusinessCase.Problem.Issues)
	if err != nil {
		return 0, err
	}
	features, err := json.Marshal(pre.BusinessCase.Solution.Features)
	if err != nil {
		return 0, err
	}
	var ideaID int64
	err = tx.QueryRowContext(ctx, `
INSERT INTO project_ideas (project_id, problem, solution, issues, motivation, features, method, deliverable)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id
`, projectID, problem, solution, issues, pre.BusinessCase.Problem.Motivation,
		features, pre.BusinessCase.Solution.Method, pre.BusinessCase.Solution.Deliverable).Scan(&ideaID)
	if err != nil {
		return 0, fmt.Errorf("insert project idea: %w", err)
	}

	marketID, err := s.upsertMarketResearch(ctx, tx, pre.Market, rep.Scores.Market)
	if err != nil {
		return 0, err
	}

	hierarchy, err := json.Marshal(rep.KSICHierarchy)
	if err != nil {
		return 0, err
	}
	report, err := json.Marshal(rep)
	if err != nil {
		return 0, err
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO overview_analyses (idea_id, market_id, ksic_hierarchy, evaluation, similar_service_score, opportunity_score, risk_score, total_score, report)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`, ideaID, marketID, hierarchy, rep.OneLineReview,
		rep.Scores.SimilarService, rep.Scores.Opportunity, rep.Scores.Risk, rep.Scores.Total, report)
	if err != nil {
		return 0, fmt.Errorf("insert overview analysis: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return projectID, nil
}

// upsertMarketResearch finds market research by KSIC detail code or inserts
// it together with its trend and benchmark rows.
func (s *Store) upsertMarketResearch(ctx context.Context, tx *sql.Tx, m analysis.MarketResearch, marketScore int) (int64, error) {
	detailCode := m.KSIC.Detail.Code
	var marketID int64
	err := tx.QueryRowContext(ctx, `
SELECT id FROM market_research WHERE ksic_hierarchy->'detail'->>'code' = $1
`, detailCode).Scan(&marketID)
	if err == nil {
		return marketID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("select market research: %w", err)
	}

	hierarchy, err := json.Marshal(m.KSIC)
	if err != nil {
		return 0, err
	}
	err = tx.QueryRowContext(ctx, `
INSERT INTO market_research (ksic_hierarchy, market_score)
VALUES ($1,$2)
RETURNING id
`, hierarchy, marketScore).Scan(&marketID)
	if err != nil {
		return 0, fmt.Errorf("insert market research: %w", err)
	}

	insertTrends := func(scope, currency, source string, points []analysis.MarketSizePoint) error {
		for _, pt := range points {
			_, err := tx.ExecContext(ctx, `
INSERT INTO market_trends (market_id, scope, year, size, currency, growth_rate, source)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, marketID, scope, pt.Year, pt.Size, currency, pt.GrowthRate, source)
			if err != nil {
				return fmt.Errorf("insert %s market trend: %w", scope, err)
			}
		}
		return nil
	}
	if err := insertTrends(ScopeDomestic, CurrencyKRW, firstSource(m.Domestic.Sources), m.Domestic.SizeByYear); err != nil {
		return 0, err
	}
	if err := insertTrends(ScopeGlobal, CurrencyUSD, firstSource(m.Global.Sources), m.Global.SizeByYear); err != nil {
		return 0, err
	}

	insertBenchmark := func(scope, currency, source string, avg int64) error {
		if avg == 0 {
			return nil
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO revenue_benchmarks (market_id, scope, average_revenue, currency, source)
VALUES ($1,$2,$3,$4,$5)
`, marketID, scope, avg, currency, source)
		if err != nil {
			return fmt.Errorf("insert %s revenue benchmark: %w", scope, err)
		}
		return nil
	}
	if err := insertBenchmark(ScopeDomestic, CurrencyKRW, m.Domestic.AverageRevenueSource, m.Domestic.AverageRevenue); err != nil {
		return 0, err
	}
	if err := insertBenchmark(ScopeGlobal, CurrencyUSD, m.Global.AverageRevenueSource, m.Global.AverageRevenue); err != nil {
		return 0, err
	}
	return marketID, nil
}

func firstSource(sources []string) string {
	if len(sources) == 0 {
		return ""
	}
	return sources[0]
}

// GetOverviewAnalysis returns the persisted report for a project owned by
// ownerID. ErrNotFound covers both a missing project and one owned by
// someone else.
func (s *Store) GetOverviewAnalysis(ctx context.Context, projectID int64, ownerID int64) (OverviewAnalysisRecord, error) {
	var rec OverviewAnalysisRecord
	err := s.DB.QueryRowContext(ctx, `
SELECT p.id, p.name, oa.evaluation, oa.report, oa.created_at
FROM projects p
JOIN project_ideas pi ON pi.project_id = p.id
JOIN overview_analyses oa ON oa.idea_id = pi.id
WHERE p.id = $1 AND p.user_id = $2
`, projectID, ownerID).Scan(&rec.ProjectID, &rec.ProjectName, &rec.Evaluation, &rec.Report, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return OverviewAnalysisRecord{}, ErrNotFound
	}
	if err != nil {
		return OverviewAnalysisRecord{}, err
	}
	return rec, nil
}

// ListProjects returns the owner's projects, newest first.
func (s *Store) ListProjects(ctx context.Context, ownerID int64, offset, limit int) ([]Project, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, user_id, name, status, created_at
FROM projects
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
OFFSET $2 LIMIT $3
`, ownerID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		var userID sql.NullInt64
		if err := rows.Scan(&p.ID, &userID, &p.Name, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		if userID.Valid {
			id := userID.Int64
			p.UserID = &id
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
