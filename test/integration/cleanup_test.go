package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constraint-watch/chokepoint/pkg/cleanup"
	"github.com/constraint-watch/chokepoint/pkg/models"
)

// TestRetentionSweepPrunesHistory seeds each retained table with one row
// inside and one row outside its window and runs a single sweep. Only the
// expired rows go; item text is cleared rather than the row deleted, and
// unfinished items keep their text regardless of age.
func TestRetentionSweepPrunesHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedSource(t, env, "nikkei_asia_tech", 1)

	// Pipeline runs: one 40 days old, one fresh.
	oldRun, err := env.Store.Runs.Start(ctx, "normalize", 5)
	require.NoError(t, err)
	_, err = env.DB.Pool().Exec(ctx,
		"UPDATE pipeline_runs SET started_at = now() - interval '40 days' WHERE id = $1", oldRun)
	require.NoError(t, err)
	_, err = env.Store.Runs.Start(ctx, "extract", 2)
	require.NoError(t, err)

	// Alerts: one 200 days old, one fresh.
	inserted, err := env.Store.Alerts.Insert(ctx, models.AlertDailyDigest, nil, nil, nil, "DAILY_DIGEST:none:2026-02-01")
	require.NoError(t, err)
	require.True(t, inserted)
	_, err = env.DB.Pool().Exec(ctx,
		"UPDATE alerts SET sent_at = now() - interval '200 days' WHERE dedup_key = $1",
		"DAILY_DIGEST:none:2026-02-01")
	require.NoError(t, err)
	inserted, err = env.Store.Alerts.Insert(ctx, models.AlertDailyDigest, nil, nil, nil, "DAILY_DIGEST:none:2026-08-20")
	require.NoError(t, err)
	require.True(t, inserted)

	// Items: an old finished one, a fresh finished one, and an old one still
	// waiting in the queue.
	oldDone := insertItem(t, env, "nikkei_asia_tech", "https://example.com/old", "Old", "old body")
	freshDone := insertItem(t, env, "nikkei_asia_tech", "https://example.com/fresh", "Fresh", "fresh body")
	oldQueued := insertItem(t, env, "nikkei_asia_tech", "https://example.com/queued", "Queued", "queued body")
	_, err = env.DB.Pool().Exec(ctx,
		`UPDATE items SET pipeline_status = 'DONE', text_en = 'old body translated',
		        fetched_at = now() - interval '90 days'
		 WHERE id = $1`, oldDone)
	require.NoError(t, err)
	_, err = env.DB.Pool().Exec(ctx,
		"UPDATE items SET pipeline_status = 'DONE', text_en = 'fresh body translated' WHERE id = $1", freshDone)
	require.NoError(t, err)
	_, err = env.DB.Pool().Exec(ctx,
		"UPDATE items SET fetched_at = now() - interval '90 days' WHERE id = $1", oldQueued)
	require.NoError(t, err)

	svc := cleanup.NewService(env.Store, cleanup.DefaultConfig())
	svc.RunAll(ctx)

	assert.Equal(t, 1, countRows(t, env, "SELECT COUNT(*) FROM pipeline_runs"))
	assert.Equal(t, 1, countRows(t, env,
		"SELECT COUNT(*) FROM pipeline_runs WHERE stage = 'extract'"))

	assert.Equal(t, 1, countRows(t, env, "SELECT COUNT(*) FROM alerts"))
	assert.Equal(t, 1, countRows(t, env,
		"SELECT COUNT(*) FROM alerts WHERE dedup_key = $1", "DAILY_DIGEST:none:2026-08-20"))

	var rawText string
	var textEN *string
	err = env.DB.Pool().QueryRow(ctx,
		"SELECT raw_text, text_en FROM items WHERE id = $1", oldDone).Scan(&rawText, &textEN)
	require.NoError(t, err)
	assert.Empty(t, rawText)
	assert.Nil(t, textEN)

	err = env.DB.Pool().QueryRow(ctx,
		"SELECT raw_text, text_en FROM items WHERE id = $1", freshDone).Scan(&rawText, &textEN)
	require.NoError(t, err)
	assert.Equal(t, "fresh body", rawText)
	require.NotNil(t, textEN)
	assert.Equal(t, "fresh body translated", *textEN)

	err = env.DB.Pool().QueryRow(ctx,
		"SELECT raw_text FROM items WHERE id = $1", oldQueued).Scan(&rawText)
	require.NoError(t, err)
	assert.Equal(t, "queued body", rawText)
}

// TestPruneTextReportsOnlyChangedRows verifies the prune predicate skips
// rows already cleared, so repeated sweeps report zero work.
func TestPruneTextReportsOnlyChangedRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedSource(t, env, "nikkei_asia_tech", 1)

	id := insertItem(t, env, "nikkei_asia_tech", "https://example.com/doc", "Doc", "body")
	_, err := env.DB.Pool().Exec(ctx,
		`UPDATE items SET pipeline_status = 'DONE', fetched_at = now() - interval '90 days'
		 WHERE id = $1`, id)
	require.NoError(t, err)

	cutoff := time.Now().Add(-60 * 24 * time.Hour)
	n, err := env.Store.Items.PruneTextBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = env.Store.Items.PruneTextBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.Zero(t, n)
}
