package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/clone-service/internal/entity"
	"github.com/user/clone-service/internal/repository"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCloneRecordLifecycle(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.Insert(ctx, &entity.CloneRecord{
		ID: "c1", URL: "https://acme.test/", Status: entity.StatusScraping, CreatedAt: now, UpdatedAt: now,
	}))

	require.NoError(t, s.Update(ctx, "c1", entity.CloneUpdate{Status: entity.StatusGenerating}))
	require.NoError(t, s.Update(ctx, "c1", entity.CloneUpdate{
		Status:        entity.StatusDone,
		GeneratedCode: "// FILE: src/app/page.tsx\n",
		PreviewURL:    "https://preview.test",
		Usage:         &entity.Usage{TokensIn: 10, TokensOut: 20, Cost: 0.5},
	}))

	rec, err := s.FindByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDone, rec.Status)
	assert.Equal(t, "https://acme.test/", rec.URL)
	assert.Equal(t, "https://preview.test", rec.PreviewURL)
	assert.Equal(t, int64(20), rec.TokensOut)
	assert.InDelta(t, 0.5, rec.Cost, 1e-9)
	assert.True(t, rec.CreatedAt.Equal(now))
	assert.True(t, rec.UpdatedAt.After(now))
}

func TestMissingRecord(t *testing.T) {
	s := openTest(t)
	_, err := s.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	err = s.Update(context.Background(), "nope", entity.CloneUpdate{Status: entity.StatusDone})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestEventLogRange(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	for i := int64(1); i <= 4; i++ {
		require.NoError(t, s.Append(ctx, "c1", entity.Event{Seq: i, CloneID: "c1", Log: "line"}))
	}
	require.NoError(t, s.Append(ctx, "c1", entity.Event{Seq: 2, CloneID: "c1", Log: "duplicate"}))
	require.NoError(t, s.Append(ctx, "c2", entity.Event{Seq: 1, CloneID: "c2", Status: entity.StatusDone}))

	events, err := s.Range(ctx, "c1", 3)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(3), events[0].Seq)
	assert.Equal(t, int64(4), events[1].Seq)

	all, err := s.Range(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "line", all[1].Log)
}
