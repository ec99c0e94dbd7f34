package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/portfolio-import/internal/importer"
	"github.com/JonMunkholm/portfolio-import/internal/schema"
	"github.com/JonMunkholm/portfolio-import/internal/validate"
)

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Postgres)(nil)
)

func growth() validate.Record {
	return validate.Record{ID: "p1", Name: "Growth", Fields: map[string]any{"ragStatus": "green"}}
}

// ----------------------------------------------------------------------------
// Memory Tests
// ----------------------------------------------------------------------------

func TestMemory_CreateReplaceSnapshot(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)

	require.NoError(t, m.Create(ctx, schema.EntityPillar, growth()))
	assert.ErrorIs(t, m.Create(ctx, schema.EntityPillar, growth()), ErrDuplicateID)

	replacement := validate.Record{ID: "ignored", Name: "Growth & Scale", Fields: map[string]any{"ragStatus": "amber"}}
	require.NoError(t, m.Replace(ctx, schema.EntityPillar, "p1", replacement))
	assert.ErrorIs(t, m.Replace(ctx, schema.EntityPillar, "nope", replacement), ErrNotFound)

	snap, err := m.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap[schema.EntityPillar], 1)

	got := snap[schema.EntityPillar][0]
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, "Growth & Scale", got.Name)
	assert.Equal(t, "amber", got.Fields["ragStatus"])

	// Snapshots are copies.
	got.Fields["ragStatus"] = "red"
	again, _ := m.Snapshot(ctx)
	assert.Equal(t, "amber", again[schema.EntityPillar][0].Fields["ragStatus"])
}

func TestMemory_SeedIsCopied(t *testing.T) {
	seed := validate.Existing{schema.EntityPillar: {growth()}}
	m := NewMemory(seed)

	seed[schema.EntityPillar][0].Fields["ragStatus"] = "red"

	snap, err := m.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "green", snap[schema.EntityPillar][0].Fields["ragStatus"])
	assert.Equal(t, 1, m.Count(schema.EntityPillar))
}

func TestMemory_InTx(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)

	err := m.InTx(ctx, func(s Store) error {
		return s.Create(ctx, schema.EntityPillar, growth())
	})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Count(schema.EntityPillar))

	boom := errors.New("boom")
	err = m.InTx(ctx, func(s Store) error {
		require.NoError(t, s.Create(ctx, schema.EntityResource, validate.Record{ID: "r1", Name: "Jane Doe"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, m.Count(schema.EntityResource), "failed transaction must not leak writes")
}

func TestMemory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMemory(nil)
	assert.ErrorIs(t, m.Create(ctx, schema.EntityPillar, growth()), context.Canceled)

	_, err := m.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemory_Runs(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, m.RecordRun(ctx, Run{ID: id, StartedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	runs, err := m.Runs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}

func TestRunFromResult(t *testing.T) {
	started := time.Now()
	res := &importer.Result{ImportID: "imp-1", DurationMs: 42, Tally: importer.Tally{Created: 3, Failed: 1}}

	run := RunFromResult("plan.xlsx", res, started)

	assert.Equal(t, Run{ID: "imp-1", FileName: "plan.xlsx", Created: 3, Failed: 1, DurationMs: 42, StartedAt: started}, run)
}

// ----------------------------------------------------------------------------
// Postgres Tests (need TEST_DATABASE_URL)
// ----------------------------------------------------------------------------

func testPostgres(t *testing.T) *Postgres {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	p := NewPostgres(pool)
	require.NoError(t, p.Migrate(ctx))
	return p
}

func TestPostgres_RoundTrip(t *testing.T) {
	p := testPostgres(t)
	ctx := context.Background()

	rec := validate.Record{ID: uuid.NewString(), Name: "Growth " + uuid.NewString()[:8], Fields: map[string]any{"ragStatus": "green"}}
	require.NoError(t, p.Create(ctx, schema.EntityPillar, rec))
	assert.ErrorIs(t, p.Create(ctx, schema.EntityPillar, rec), ErrDuplicateID)

	rec.Fields["ragStatus"] = "amber"
	require.NoError(t, p.Replace(ctx, schema.EntityPillar, rec.ID, rec))
	assert.ErrorIs(t, p.Replace(ctx, schema.EntityPillar, uuid.NewString(), rec), ErrNotFound)

	snap, err := p.Snapshot(ctx)
	require.NoError(t, err)

	var found *validate.Record
	for i := range snap[schema.EntityPillar] {
		if snap[schema.EntityPillar][i].ID == rec.ID {
			found = &snap[schema.EntityPillar][i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "amber", found.Fields["ragStatus"])
}

func TestPostgres_InTxRollsBack(t *testing.T) {
	p := testPostgres(t)
	ctx := context.Background()

	id := uuid.NewString()
	boom := errors.New("boom")

	err := p.InTx(ctx, func(s Store) error {
		require.NoError(t, s.Create(ctx, schema.EntityPillar, validate.Record{ID: id, Name: "Temp"}))
		// A failing row inside the transaction must not poison it.
		assert.Error(t, s.Create(ctx, schema.EntityPillar, validate.Record{ID: id, Name: "Temp"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	snap, err := p.Snapshot(ctx)
	require.NoError(t, err)
	for _, r := range snap[schema.EntityPillar] {
		assert.NotEqual(t, id, r.ID)
	}
}
