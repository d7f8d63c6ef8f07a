package store

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Farmer96/LuckGen/internal/models"
)

func sampleConfig() *models.LotteryConfig {
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	prizeID := "p1"
	return &models.LotteryConfig{
		ID:              "lottery-1",
		Title:           "五一抽奖",
		Description:     "快来参加",
		StartTime:       models.NewTime(start),
		EndTime:         models.NewTime(start.Add(48 * time.Hour)),
		ParticipantType: models.ParticipantPrivate,
		Prizes: []*models.Prize{
			{ID: "p1", Level: "一等奖", Name: "电视", Probability: 12.5, TotalCount: 3, RemainingCount: 2},
		},
		Users: []*models.User{
			{Phone: "13800000000", Name: "Alice", TotalChances: 3, UsedChances: 2},
		},
		DrawRecords: []*models.DrawRecord{
			{ID: "r2", Timestamp: models.NewTime(start.Add(time.Hour)), UserPhone: "13800000000", PrizeName: "谢谢参与"},
			{ID: "r1", Timestamp: models.NewTime(start), UserPhone: "13800000000", PrizeID: &prizeID, PrizeName: "电视"},
		},
	}
}

// exerciseStore checks the contract shared by every backend.
func exerciseStore(t *testing.T, s ConfigStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	want := sampleConfig()
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Title, got.Title)
	assert.True(t, want.StartTime.Equal(got.StartTime.Time))
	assert.Equal(t, want.Prizes, got.Prizes)
	assert.Equal(t, want.Users, got.Users)
	require.Len(t, got.DrawRecords, 2)
	assert.Nil(t, got.DrawRecords[0].PrizeID)
	require.NotNil(t, got.DrawRecords[1].PrizeID)
	assert.Equal(t, "p1", *got.DrawRecords[1].PrizeID)

	// Mutating a loaded copy must not leak into the store.
	got.Users[0].UsedChances = 3
	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Users[0].UsedChances)

	want.Title = "改名"
	require.NoError(t, s.Save(ctx, want))
	again, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "改名", again.Title)

	require.NoError(t, s.Delete(ctx))
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Delete(ctx))
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFile(t *testing.T) {
	exerciseStore(t, NewFile(filepath.Join(t.TempDir(), "data", "lottery.json")))
}

func TestCached_Contract(t *testing.T) {
	exerciseStore(t, NewCached(NewMemory(), time.Minute))
}

type countingStore struct {
	ConfigStore
	loads atomic.Int32
}

func (c *countingStore) Load(ctx context.Context) (*models.LotteryConfig, error) {
	c.loads.Add(1)
	return c.ConfigStore.Load(ctx)
}

func TestCached_ServesReadsFromCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{ConfigStore: NewMemory()}
	require.NoError(t, inner.Save(ctx, sampleConfig()))

	c := NewCached(inner, time.Minute)
	for i := 0; i < 5; i++ {
		_, err := c.Load(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), inner.loads.Load())

	latest, err := c.LoadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.loads.Load())

	latest.Title = "新标题"
	require.NoError(t, c.Save(ctx, latest))
	got, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "新标题", got.Title)
	assert.Equal(t, int32(2), inner.loads.Load())
}

// ctxStore fails reads whose context is already done, the way network
// backends do.
type ctxStore struct {
	countingStore
}

func (c *ctxStore) Load(ctx context.Context) (*models.LotteryConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.countingStore.Load(ctx)
}

func TestCached_SharedLoadIgnoresCallerCancellation(t *testing.T) {
	inner := &ctxStore{countingStore{ConfigStore: NewMemory()}}
	require.NoError(t, inner.Save(context.Background(), sampleConfig()))
	c := NewCached(inner, time.Minute)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := c.Load(cancelled)
	require.NoError(t, err)
	assert.Equal(t, "lottery-1", got.ID)

	_, err = c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), inner.loads.Load(), "later readers are served from the shared result")

	_, err = c.LoadLatest(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCached_ExpiresEntries(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{ConfigStore: NewMemory()}
	require.NoError(t, inner.Save(ctx, sampleConfig()))

	c := NewCached(inner, 20*time.Millisecond)
	_, err := c.Load(ctx)
	require.NoError(t, err)

	// Another writer bypassing the cache.
	changed := sampleConfig()
	changed.Title = "外部修改"
	require.NoError(t, inner.Save(ctx, changed))

	assert.Eventually(t, func() bool {
		got, err := c.Load(ctx)
		return err == nil && got.Title == "外部修改"
	}, time.Second, 10*time.Millisecond)
}
