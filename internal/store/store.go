package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"newsrisk/internal/core"
)

// ErrAmbiguousRun is returned when a run id prefix matches several runs.
var ErrAmbiguousRun = errors.New("run id prefix matches more than one run")

// Store is the SQLite archive of completed scoring runs. Runs are only
// appended; scoring never reads them back.
type Store struct {
	db   *sql.DB
	path string
}

// Run describes one completed scoring run.
type Run struct {
	ID                string
	StartedAt         time.Time
	FinishedAt        time.Time
	ArticlesPath      string
	FeaturesPath      string
	LinksPath         string
	Scorer            string
	ArticleCount      int
	UndatedCount      int
	OrganizationCount int
	NormalCount       int
	ReviewCount       int
	RedFlagCount      int
}

// Duration is the wall-clock time the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// NewStore opens (and creates if needed) the archive database at dbPath
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:   db,
		path: dbPath,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables
func (s *Store) initialize() error {
	runsTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		articles_path TEXT,
		features_path TEXT,
		links_path TEXT,
		scorer TEXT,
		article_count INTEGER NOT NULL,
		undated_count INTEGER NOT NULL,
		organization_count INTEGER NOT NULL,
		normal_count INTEGER NOT NULL,
		review_count INTEGER NOT NULL,
		red_flag_count INTEGER NOT NULL
	);`

	articleResultsTable := `
	CREATE TABLE IF NOT EXISTS article_results (
		run_id TEXT NOT NULL,
		article_id INTEGER NOT NULL,
		location_anomaly TEXT NOT NULL,
		temporal_anomaly TEXT NOT NULL,
		is_anomaly TEXT NOT NULL,
		anomaly_score REAL,
		total_anomaly_score INTEGER NOT NULL,
		final_label TEXT NOT NULL,
		PRIMARY KEY (run_id, article_id),
		FOREIGN KEY (run_id) REFERENCES runs (id)
	);`

	organizationRiskTable := `
	CREATE TABLE IF NOT EXISTS organization_risk (
		run_id TEXT NOT NULL,
		rank INTEGER NOT NULL,
		organization TEXT NOT NULL,
		avg_article_risk REAL NOT NULL,
		article_count INTEGER NOT NULL,
		brand_risk_score REAL NOT NULL,
		risk_level TEXT NOT NULL,
		PRIMARY KEY (run_id, organization),
		FOREIGN KEY (run_id) REFERENCES runs (id)
	);`

	tables := []string{runsTable, articleResultsTable, organizationRiskTable}
	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun appends a run with its article results and organization ranking
// in a single transaction.
func (s *Store) SaveRun(ctx context.Context, run Run, articles []core.FusedArticle, orgs []core.OrganizationRisk) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs
	(id, started_at, finished_at, articles_path, features_path, links_path, scorer,
	 article_count, undated_count, organization_count, normal_count, review_count, red_flag_count)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		run.ArticlesPath, run.FeaturesPath, run.LinksPath, run.Scorer,
		run.ArticleCount, run.UndatedCount, run.OrganizationCount,
		run.NormalCount, run.ReviewCount, run.RedFlagCount)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	articleStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO article_results
	(run_id, article_id, location_anomaly, temporal_anomaly, is_anomaly, anomaly_score, total_anomaly_score, final_label)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare article insert: %w", err)
	}
	defer articleStmt.Close()

	for _, a := range articles {
		if _, err = articleStmt.ExecContext(ctx, run.ID, a.ID,
			string(a.LocationAnomaly), string(a.TemporalAnomaly), string(a.IsAnomaly),
			a.AnomalyScore, a.TotalAnomalyScore, string(a.FinalLabel)); err != nil {
			return fmt.Errorf("failed to insert article %d: %w", a.ID, err)
		}
	}

	orgStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO organization_risk
	(run_id, rank, organization, avg_article_risk, article_count, brand_risk_score, risk_level)
	VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare organization insert: %w", err)
	}
	defer orgStmt.Close()

	for i, o := range orgs {
		if _, err = orgStmt.ExecContext(ctx, run.ID, i+1, o.Organization,
			o.AvgArticleRisk, o.ArticleCount, o.BrandRiskScore, string(o.RiskLevel)); err != nil {
			return fmt.Errorf("failed to insert organization %q: %w", o.Organization, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, articles_path, features_path, links_path, scorer,
	article_count, undated_count, organization_count, normal_count, review_count, red_flag_count`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.StartedAt, &r.FinishedAt,
		&r.ArticlesPath, &r.FeaturesPath, &r.LinksPath, &r.Scorer,
		&r.ArticleCount, &r.UndatedCount, &r.OrganizationCount,
		&r.NormalCount, &r.ReviewCount, &r.RedFlagCount)
	return r, err
}

// ListRuns returns the most recent runs first. A non-positive limit returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun looks a run up by id or unique id prefix. It returns nil, nil when
// nothing matches.
func (s *Store) GetRun(ctx context.Context, idOrPrefix string) (*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE substr(id, 1, length(?)) = ? ORDER BY id LIMIT 2`,
		idOrPrefix, idOrPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.ID == idOrPrefix {
			return &r, nil
		}
		matches = append(matches, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrAmbiguousRun, idOrPrefix)
	}
}

// TopOrganizations returns a run's organizations in their stored ranking.
func (s *Store) TopOrganizations(ctx context.Context, runID string, limit int) ([]core.OrganizationRisk, error) {
	query := `
	SELECT organization, avg_article_risk, article_count, brand_risk_score, risk_level
	FROM organization_risk
	WHERE run_id = ?
	ORDER BY rank`
	args := []any{runID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}
	defer rows.Close()

	var orgs []core.OrganizationRisk
	for rows.Next() {
		var o core.OrganizationRisk
		var level string
		if err := rows.Scan(&o.Organization, &o.AvgArticleRisk, &o.ArticleCount, &o.BrandRiskScore, &level); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		o.RiskLevel = core.RiskLevel(level)
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

// ArchiveStats represents archive statistics
type ArchiveStats struct {
	RunCount    int
	ResultCount int
	SizeBytes   int64
	LastUpdated time.Time
}

// Stats returns statistics about the archive
func (s *Store) Stats(ctx context.Context) (*ArchiveStats, error) {
	stats := &ArchiveStats{}

	queries := map[string]*int{
		"SELECT COUNT(*) FROM runs":            &stats.RunCount,
		"SELECT COUNT(*) FROM article_results": &stats.ResultCount,
	}
	for query, target := range queries {
		if err := s.db.QueryRowContext(ctx, query).Scan(target); err != nil {
			return nil, fmt.Errorf("failed to get count: %w", err)
		}
	}

	if fileInfo, err := os.Stat(s.path); err == nil {
		stats.SizeBytes = fileInfo.Size()
		stats.LastUpdated = fileInfo.ModTime()
	}

	return stats, nil
}
