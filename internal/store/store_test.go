package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"newsrisk/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "archive", "runs.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRun(id string, started time.Time) Run {
	return Run{
		ID:                id,
		StartedAt:         started,
		FinishedAt:        started.Add(1500 * time.Millisecond),
		ArticlesPath:      "articles.csv",
		FeaturesPath:      "articles.csv",
		LinksPath:         "links.csv",
		Scorer:            "isolation_forest",
		ArticleCount:      2,
		UndatedCount:      1,
		OrganizationCount: 2,
		NormalCount:       1,
		RedFlagCount:      1,
	}
}

func sampleResults() ([]core.FusedArticle, []core.OrganizationRisk) {
	articles := []core.FusedArticle{
		{
			Article:           core.Article{ID: 1},
			LocationAnomaly:   core.LocationAnomaly,
			TemporalAnomaly:   core.Normal,
			IsAnomaly:         core.Anomaly,
			AnomalyScore:      0.71,
			TotalAnomalyScore: 2,
			FinalLabel:        core.LabelRedFlag,
		},
		{
			Article:         core.Article{ID: 2},
			LocationAnomaly: core.LocationNormal,
			TemporalAnomaly: core.Normal,
			IsAnomaly:       core.Normal,
			AnomalyScore:    0.42,
			FinalLabel:      core.LabelNormal,
		},
	}
	orgs := []core.OrganizationRisk{
		{Organization: "Zeta", AvgArticleRisk: 0.8, ArticleCount: 1, BrandRiskScore: 0.55, RiskLevel: core.RiskLow},
		{Organization: "Acme", AvgArticleRisk: 0.2, ArticleCount: 1, BrandRiskScore: 0.14, RiskLevel: core.RiskLow},
	}
	return articles, orgs
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("Database file should be created")
	}
}

func TestNewStore_InvalidDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	blocker := filepath.Join(tmpDir, "file.txt")
	_ = os.WriteFile(blocker, []byte("test"), 0644)

	if _, err := NewStore(filepath.Join(blocker, "runs.db")); err == nil {
		t.Error("Expected error when the data directory is a file")
	}
}

func TestSaveRun_GetRun(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id := uuid.NewString()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	articles, orgs := sampleResults()
	if err := store.SaveRun(ctx, sampleRun(id, started), articles, orgs); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	run, err := store.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run == nil {
		t.Fatal("Expected run to be found")
	}
	if !run.StartedAt.Equal(started) {
		t.Errorf("Expected start %v, got %v", started, run.StartedAt)
	}
	if run.Duration() != 1500*time.Millisecond {
		t.Errorf("Expected duration 1.5s, got %v", run.Duration())
	}
	if run.RedFlagCount != 1 || run.NormalCount != 1 || run.UndatedCount != 1 {
		t.Errorf("Label counts not stored: %+v", run)
	}

	byPrefix, err := store.GetRun(ctx, id[:8])
	if err != nil || byPrefix == nil || byPrefix.ID != id {
		t.Errorf("Expected prefix lookup to find %s, got %+v (%v)", id, byPrefix, err)
	}

	top, err := store.TopOrganizations(ctx, id, 0)
	if err != nil {
		t.Fatalf("TopOrganizations failed: %v", err)
	}
	if len(top) != 2 || top[0].Organization != "Zeta" || top[1].Organization != "Acme" {
		t.Errorf("Expected stored ranking Zeta, Acme; got %+v", top)
	}

	limited, err := store.TopOrganizations(ctx, id, 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("Expected one organization with limit 1, got %d (%v)", len(limited), err)
	}
}

func TestGetRun_Miss(t *testing.T) {
	store := newTestStore(t)

	run, err := store.GetRun(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run != nil {
		t.Errorf("Expected nil run on miss, got %+v", run)
	}
}

func TestGetRun_AmbiguousPrefix(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC()

	for _, id := range []string{"abc-1", "abc-2"} {
		if err := store.SaveRun(ctx, sampleRun(id, now), nil, nil); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	if _, err := store.GetRun(ctx, "abc"); !errors.Is(err, ErrAmbiguousRun) {
		t.Errorf("Expected ErrAmbiguousRun, got %v", err)
	}
	run, err := store.GetRun(ctx, "abc-2")
	if err != nil || run == nil || run.ID != "abc-2" {
		t.Errorf("Expected exact id to win, got %+v (%v)", run, err)
	}
}

func TestGetRun_PrefixIsLiteral(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveRun(ctx, sampleRun("abc-1", time.Now()), nil, nil); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	for _, prefix := range []string{"%", "_bc", "a%", "abc_1"} {
		run, err := store.GetRun(ctx, prefix)
		if err != nil {
			t.Fatalf("GetRun(%q) failed: %v", prefix, err)
		}
		if run != nil {
			t.Errorf("GetRun(%q) = %s, expected no match", prefix, run.ID)
		}
	}

	run, err := store.GetRun(ctx, "abc-")
	if err != nil || run == nil || run.ID != "abc-1" {
		t.Errorf("Expected prefix abc- to find abc-1, got %v, %v", run, err)
	}
}

func TestSaveRun_DuplicateIsRolledBack(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	articles, orgs := sampleResults()
	run := sampleRun("run-1", time.Now().UTC())

	if err := store.SaveRun(ctx, run, articles, orgs); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := store.SaveRun(ctx, run, articles, orgs); err == nil {
		t.Error("Expected error when appending the same run id twice")
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.RunCount != 1 || stats.ResultCount != 2 {
		t.Errorf("Expected 1 run and 2 results, got %+v", stats)
	}
	if stats.SizeBytes == 0 {
		t.Error("Expected a non-empty database file")
	}
}

func TestListRuns(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"first", "second", "third"} {
		if err := store.SaveRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour)), nil, nil); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 3 || runs[0].ID != "third" || runs[2].ID != "first" {
		t.Errorf("Expected newest first, got %v", runIDs(runs))
	}

	runs, err = store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("Expected 2 runs with limit, got %d", len(runs))
	}
}

func runIDs(runs []Run) []string {
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids
}
