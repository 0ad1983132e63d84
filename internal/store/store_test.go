package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/GDG-HUFS-Idea/sparklens/internal/analysis"
)

func samplePreAnalysis() analysis.PreAnalysisData {
	return analysis.PreAnalysisData{
		Idea: "반려동물 건강 관리 앱",
		BusinessCase: analysis.BusinessCase{
			Problem:  analysis.BusinessProblem{Issues: []string{"병원 접근성"}, Motivation: "반려인 증가"},
			Solution: analysis.BusinessSolution{Features: []string{"원격 상담"}, Method: "모바일 앱", Deliverable: "구독 서비스"},
		},
		Market: analysis.MarketResearch{
			KSIC: analysis.KSICHierarchy{
				Large:  analysis.CodeName{Code: "J", Name: "정보통신업"},
				Detail: analysis.CodeName{Code: "58222", Name: "응용 소프트웨어 개발 및 공급업"},
			},
			Domestic: analysis.DomesticMarket{
				SizeByYear:           []analysis.MarketSizePoint{{Year: 2024, Size: 1_200_000_000_000, GrowthRate: 5.2}},
				AverageRevenue:       800_000_000,
				AverageRevenueSource: "통계청",
				Sources:              []string{"통계청 2024"},
			},
			Global: analysis.GlobalMarket{
				SizeByYear:           []analysis.MarketSizePoint{{Year: 2024, Size: 45_000_000_000, GrowthRate: 7.1}},
				AverageRevenue:       3_000_000,
				AverageRevenueSource: "Statista",
				Sources:              []string{"Statista 2024"},
			},
		},
	}
}

func sampleReport() analysis.OverviewReport {
	return analysis.OverviewReport{
		KSICHierarchy: analysis.KSICHierarchy{
			Detail: analysis.CodeName{Code: "58222", Name: "응용 소프트웨어 개발 및 공급업"},
		},
		SimilarServices: []analysis.SimilarService{{Name: "svc", Similarity: 70}},
		Scores:          analysis.Scores{Market: 75, Opportunity: 60, SimilarService: 55, Risk: 40, Total: 57.5},
		OneLineReview:   "시장성이 있는 아이디어입니다.",
	}
}

func TestSaveAnalysisResultNewMarket(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := &Store{DB: db}

	owner := int64(11)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO projects").
		WithArgs(sqlmock.AnyArg(), "반려동물 건강 관리 앱", ProjectStatusAnalyzed).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery("INSERT INTO project_ideas").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectQuery("SELECT id FROM market_research").
		WithArgs("58222").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO market_research").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectExec("INSERT INTO market_trends").
		WithArgs(int64(3), ScopeDomestic, 2024, int64(1_200_000_000_000), CurrencyKRW, 5.2, "통계청 2024").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO market_trends").
		WithArgs(int64(3), ScopeGlobal, 2024, int64(45_000_000_000), CurrencyUSD, 7.1, "Statista 2024").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO revenue_benchmarks").
		WithArgs(int64(3), ScopeDomestic, int64(800_000_000), CurrencyKRW, "통계청").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO revenue_benchmarks").
		WithArgs(int64(3), ScopeGlobal, int64(3_000_000), CurrencyUSD, "Statista").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO overview_analyses").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	projectID, err := s.SaveAnalysisResult(context.Background(), &owner, "문제", "해결책", samplePreAnalysis(), sampleReport())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if projectID != 1 {
		t.Fatalf("project id = %d, want 1", projectID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSaveAnalysisResultReusesMarket(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := &Store{DB: db}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO projects").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectQuery("INSERT INTO project_ideas").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(6)))
	mock.ExpectQuery("SELECT id FROM market_research").
		WithArgs("58222").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectExec("INSERT INTO overview_analyses").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if _, err := s.SaveAnalysisResult(context.Background(), nil, "문제", "해결책", samplePreAnalysis(), sampleReport()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSaveAnalysisResultRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := &Store{DB: db}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO projects").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	if _, err := s.SaveAnalysisResult(context.Background(), nil, "문제", "해결책", samplePreAnalysis(), sampleReport()); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetOverviewAnalysisNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := &Store{DB: db}

	mock.ExpectQuery("SELECT p.id, p.name").
		WithArgs(int64(9), int64(11)).
		WillReturnError(sql.ErrNoRows)

	if _, err := s.GetOverviewAnalysis(context.Background(), 9, 11); err != ErrNotFound {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestGetOverviewAnalysis(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := &Store{DB: db}

	now := time.Now()
	mock.ExpectQuery("SELECT p.id, p.name").
		WithArgs(int64(9), int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "evaluation", "report", "created_at"}).
			AddRow(int64(9), "아이디어", "평가", []byte(`{"oneLineReview":"평가"}`), now))

	rec, err := s.GetOverviewAnalysis(context.Background(), 9, 11)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.ProjectID != 9 || rec.ProjectName != "아이디어" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if len(rec.Report) == 0 {
		t.Fatal("report payload missing")
	}
}

func TestListProjects(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := &Store{DB: db}

	now := time.Now()
	mock.ExpectQuery("SELECT id, user_id, name, status, created_at").
		WithArgs(int64(11), 0, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "status", "created_at"}).
			AddRow(int64(2), int64(11), "두번째", ProjectStatusAnalyzed, now).
			AddRow(int64(1), int64(11), "첫번째", ProjectStatusDraft, now))

	projects, err := s.ListProjects(context.Background(), 11, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("got %d projects, want 2", len(projects))
	}
	if projects[0].ID != 2 || projects[0].Status != ProjectStatusAnalyzed {
		t.Fatalf("unexpected first project %+v", projects[0])
	}
	if projects[1].UserID == nil || *projects[1].UserID != 11 {
		t.Fatalf("owner not scanned: %+v", projects[1])
	}
}
