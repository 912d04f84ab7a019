package archive

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kapu/reader-sim-go/internal/domain"
)

func sampleRun() *domain.RunResult {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &domain.RunResult{
		RunID:         "6f1c1c9e-3f55-4c6b-9b8e-0d7a3a2f1b10",
		OriginalTitle: "Rice",
		Language:      domain.LanguageEnglish,
		Model:         "m",
		Sufficiency:   domain.SufficiencyResult{IsSufficient: true, Reason: "ok"},
		Variants:      []domain.VariantTitle{{Title: "A", Angle: "Emotional", Focus: "X"}},
		Personas:      []domain.Persona{{ID: "student"}, {ID: "techie"}},
		Reviews: []domain.Review{
			{Seq: 0, Title: "Rice", PersonaID: "student", Score: 6, Tags: []string{"a"}, Suggestions: []string{"b"}, Timestamp: at},
			{Seq: 1, Title: "Rice", PersonaID: "techie", Score: 9, Tags: []string{"c"}, Suggestions: []string{"d"}, Timestamp: at},
		},
		StartedAt:  at,
		FinishedAt: at.Add(time.Minute),
	}
}

func TestInsertRunQuery(t *testing.T) {
	query, args, err := insertRunQuery(sampleRun())
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO readersim_runs (id,original_title,language,model,sufficient,sufficiency_reason,enriched_info,variants,persona_ids,average_score,started_at,finished_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)", query)
	require.Len(t, args, 12)
	assert.Equal(t, "en", args[2])
	assert.JSONEq(t, `[{"title":"A","angle":"Emotional","focus":"X"}]`, args[7].(string))
	assert.Equal(t, pq.StringArray{"student", "techie"}, args[8])
	assert.Equal(t, 7.5, args[9])
}

func TestInsertReviewsQueryBatchesRows(t *testing.T) {
	run := sampleRun()
	query, args, err := insertReviewsQuery(run.RunID, run.Reviews)
	require.NoError(t, err)

	assert.Contains(t, query, "INSERT INTO readersim_reviews (run_id,seq,title,persona_id,persona_name,score,comment,tags,suggestions,fallback,created_at) VALUES ")
	assert.Contains(t, query, "($12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)")
	assert.Len(t, args, 22)
	assert.Equal(t, pq.StringArray{"c"}, args[18])
}

func TestListRunsQuery(t *testing.T) {
	query, args, err := listRunsQuery(0)
	require.NoError(t, err)

	assert.Contains(t, query, "FROM readersim_runs r ORDER BY r.finished_at DESC LIMIT 20")
	assert.Empty(t, args)
}

func TestReviewsQuery(t *testing.T) {
	query, args, err := reviewsQuery("run-1")
	require.NoError(t, err)

	assert.Equal(t, "SELECT seq, title, persona_id, persona_name, score, comment, tags, suggestions, fallback, created_at FROM readersim_reviews WHERE run_id = $1 ORDER BY seq", query)
	assert.Equal(t, []any{"run-1"}, args)
}

func TestGetRunQuery(t *testing.T) {
	query, args, err := getRunQuery("run-1")
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, original_title, language, model, sufficient, sufficiency_reason, enriched_info, variants, persona_ids, started_at, finished_at FROM readersim_runs WHERE id = $1", query)
	assert.Equal(t, []any{"run-1"}, args)
}

func TestAverageScore(t *testing.T) {
	assert.Zero(t, averageScore(nil))
	assert.Equal(t, 7.5, averageScore(sampleRun().Reviews))
}
