// Package archive stores finished runs in Postgres.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/kapu/reader-sim-go/internal/domain"
	"github.com/kapu/reader-sim-go/pkg/errors"
)

const (
	runsTable    = "readersim_runs"
	reviewsTable = "readersim_reviews"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ` + runsTable + ` (
		id                 UUID PRIMARY KEY,
		original_title     TEXT NOT NULL,
		language           TEXT NOT NULL,
		model              TEXT NOT NULL,
		sufficient         BOOLEAN NOT NULL,
		sufficiency_reason TEXT NOT NULL DEFAULT '',
		enriched_info      TEXT NOT NULL DEFAULT '',
		variants           JSONB NOT NULL,
		persona_ids        TEXT[] NOT NULL,
		average_score      DOUBLE PRECISION NOT NULL,
		started_at         TIMESTAMPTZ NOT NULL,
		finished_at        TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ` + reviewsTable + ` (
		run_id       UUID NOT NULL REFERENCES ` + runsTable + `(id) ON DELETE CASCADE,
		seq          INTEGER NOT NULL,
		title        TEXT NOT NULL,
		persona_id   TEXT NOT NULL,
		persona_name TEXT NOT NULL,
		score        INTEGER NOT NULL,
		comment      TEXT NOT NULL,
		tags         TEXT[] NOT NULL,
		suggestions  TEXT[] NOT NULL,
		fallback     BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (run_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS readersim_runs_finished_idx ON ` + runsTable + ` (finished_at DESC)`,
}

// RunSummary is one row of the run history.
type RunSummary struct {
	ID            string
	OriginalTitle string
	Model         string
	Language      domain.Language
	Reviews       int
	AverageScore  float64
	FinishedAt    time.Time
}

type Archive struct {
	db     *sql.DB
	logger *zap.Logger
}

func New(db *sql.DB, logger *zap.Logger) *Archive {
	return &Archive{db: db, logger: logger}
}

func (a *Archive) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return errors.NewServiceError("failed to create archive schema", "archive", "ensure_schema", err)
		}
	}
	return nil
}

// SaveRun writes the run and its reviews in one transaction.
func (a *Archive) SaveRun(ctx context.Context, res *domain.RunResult) error {
	runQuery, runArgs, err := insertRunQuery(res)
	if err != nil {
		return errors.NewServiceError("failed to build run insert", "archive", "save_run", err)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewServiceError("failed to begin transaction", "archive", "save_run", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, runQuery, runArgs...); err != nil {
		return errors.NewServiceError("failed to insert run", "archive", "save_run", err)
	}

	if len(res.Reviews) > 0 {
		reviewQuery, reviewArgs, err := insertReviewsQuery(res.RunID, res.Reviews)
		if err != nil {
			return errors.NewServiceError("failed to build review insert", "archive", "save_run", err)
		}
		if _, err := tx.ExecContext(ctx, reviewQuery, reviewArgs...); err != nil {
			return errors.NewServiceError("failed to insert reviews", "archive", "save_run", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewServiceError("failed to commit run", "archive", "save_run", err)
	}

	a.logger.Info("Run archived",
		zap.String("run_id", res.RunID),
		zap.Int("reviews", len(res.Reviews)),
	)
	return nil
}

// ListRuns returns the most recent runs first.
func (a *Archive) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query, args, err := listRunsQuery(limit)
	if err != nil {
		return nil, errors.NewServiceError("failed to build run listing", "archive", "list_runs", err)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewServiceError("failed to list runs", "archive", "list_runs", err)
	}
	defer rows.Close()

	runs := make([]RunSummary, 0)
	for rows.Next() {
		var r RunSummary
		var lang string
		if err := rows.Scan(&r.ID, &r.OriginalTitle, &r.Model, &lang, &r.AverageScore, &r.FinishedAt, &r.Reviews); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Language = domain.Language(lang)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return runs, nil
}

// Reviews loads a run's reviews in iteration order.
func (a *Archive) Reviews(ctx context.Context, runID string) ([]domain.Review, error) {
	query, args, err := reviewsQuery(runID)
	if err != nil {
		return nil, errors.NewServiceError("failed to build review query", "archive", "reviews", err)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewServiceError("failed to load reviews", "archive", "reviews", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		var r domain.Review
		var tags, suggestions pq.StringArray
		if err := rows.Scan(&r.Seq, &r.Title, &r.PersonaID, &r.PersonaName, &r.Score, &r.Comment, &tags, &suggestions, &r.Fallback, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		r.Tags, r.Suggestions = []string(tags), []string(suggestions)
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return reviews, nil
}

// GetRun rebuilds an archived run. Personas carry only their ids.
func (a *Archive) GetRun(ctx context.Context, runID string) (*domain.RunResult, error) {
	query, args, err := getRunQuery(runID)
	if err != nil {
		return nil, errors.NewServiceError("failed to build run query", "archive", "get_run", err)
	}

	var (
		res        domain.RunResult
		lang       string
		variants   []byte
		personaIDs pq.StringArray
	)
	err = a.db.QueryRowContext(ctx, query, args...).Scan(
		&res.RunID, &res.OriginalTitle, &lang, &res.Model, &res.Sufficiency.IsSufficient,
		&res.Sufficiency.Reason, &res.EnrichedInfo, &variants, &personaIDs, &res.StartedAt, &res.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewValidationError("run not found", "run", runID)
	}
	if err != nil {
		return nil, errors.NewServiceError("failed to load run", "archive", "get_run", err)
	}

	res.Language = domain.Language(lang)
	if err := json.Unmarshal(variants, &res.Variants); err != nil {
		return nil, fmt.Errorf("decode variants: %w", err)
	}
	for _, id := range personaIDs {
		res.Personas = append(res.Personas, domain.Persona{ID: id, Name: id})
	}

	res.Reviews, err = a.Reviews(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func insertRunQuery(res *domain.RunResult) (string, []any, error) {
	variants, err := json.Marshal(res.Variants)
	if err != nil {
		return "", nil, fmt.Errorf("marshal variants: %w", err)
	}

	personaIDs := make([]string, 0, len(res.Personas))
	for _, p := range res.Personas {
		personaIDs = append(personaIDs, p.ID)
	}

	return psql.Insert(runsTable).
		Columns("id", "original_title", "language", "model", "sufficient", "sufficiency_reason",
			"enriched_info", "variants", "persona_ids", "average_score", "started_at", "finished_at").
		Values(res.RunID, res.OriginalTitle, string(res.Language), res.Model, res.Sufficiency.IsSufficient,
			res.Sufficiency.Reason, res.EnrichedInfo, string(variants), pq.StringArray(personaIDs),
			averageScore(res.Reviews), res.StartedAt, res.FinishedAt).
		ToSql()
}

func insertReviewsQuery(runID string, reviews []domain.Review) (string, []any, error) {
	q := psql.Insert(reviewsTable).
		Columns("run_id", "seq", "title", "persona_id", "persona_name", "score", "comment",
			"tags", "suggestions", "fallback", "created_at")
	for _, r := range reviews {
		q = q.Values(runID, r.Seq, r.Title, r.PersonaID, r.PersonaName, r.Score, r.Comment,
			pq.StringArray(r.Tags), pq.StringArray(r.Suggestions), r.Fallback, r.Timestamp)
	}
	return q.ToSql()
}

func listRunsQuery(limit int) (string, []any, error) {
	if limit <= 0 {
		limit = 20
	}
	return psql.Select("r.id", "r.original_title", "r.model", "r.language", "r.average_score", "r.finished_at",
		"(SELECT COUNT(*) FROM "+reviewsTable+" v WHERE v.run_id = r.id)").
		From(runsTable + " r").
		OrderBy("r.finished_at DESC").
		Limit(uint64(limit)).
		ToSql()
}

func getRunQuery(runID string) (string, []any, error) {
	return psql.Select("id", "original_title", "language", "model", "sufficient", "sufficiency_reason",
		"enriched_info", "variants", "persona_ids", "started_at", "finished_at").
		From(runsTable).
		Where(sq.Eq{"id": runID}).
		ToSql()
}

func reviewsQuery(runID string) (string, []any, error) {
	return psql.Select("seq", "title", "persona_id", "persona_name", "score", "comment",
		"tags", "suggestions", "fallback", "created_at").
		From(reviewsTable).
		Where(sq.Eq{"run_id": runID}).
		OrderBy("seq").
		ToSql()
}

func averageScore(reviews []domain.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	total := 0
	for _, r := range reviews {
		total += r.Score
	}
	return float64(total) / float64(len(reviews))
}
