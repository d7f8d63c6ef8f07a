package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Farmer96/LuckGen/internal/models"
)

var (
	windowStart = time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2026, 10, 8, 0, 0, 0, 0, time.UTC)
	duringEvent = windowStart.Add(time.Hour)
)

func newTestConfig(pt models.ParticipantType) *models.LotteryConfig {
	return &models.LotteryConfig{
		ID:              "lottery-1",
		Title:           "国庆抽奖",
		StartTime:       models.NewTime(windowStart),
		EndTime:         models.NewTime(windowEnd),
		ParticipantType: pt,
		Prizes: []*models.Prize{
			{ID: "P1", Level: "一等奖", Name: "电视", Probability: 30, TotalCount: 1, RemainingCount: 1},
			{ID: "P2", Level: "二等奖", Name: "马克杯", Probability: 20, TotalCount: 5, RemainingCount: 5},
		},
		Users:       []*models.User{},
		DrawRecords: []*models.DrawRecord{},
	}
}

func TestEvaluateEligibility_TimeWindow(t *testing.T) {
	tests := []struct {
		name   string
		now    time.Time
		reason *Error
	}{
		{name: "1ms before start", now: windowStart.Add(-time.Millisecond), reason: ErrNotStarted},
		{name: "exactly at start", now: windowStart},
		{name: "exactly at end", now: windowEnd},
		{name: "1ms after end", now: windowEnd.Add(time.Millisecond), reason: ErrEnded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(models.ParticipantPublic)
			res := evaluateEligibility(cfg, "13800000000", "", tt.now, 1)
			if tt.reason == nil {
				assert.True(t, res.Eligible)
				assert.Nil(t, res.Reason)
				return
			}
			assert.False(t, res.Eligible)
			assert.Equal(t, tt.reason, res.Reason)
			assert.Nil(t, res.User)
			assert.Empty(t, cfg.Users, "no registration outside the window")
		})
	}
}

func TestEvaluateEligibility_OpenWindow(t *testing.T) {
	cfg := newTestConfig(models.ParticipantPublic)
	cfg.StartTime = models.Time{}
	cfg.EndTime = models.Time{}

	res := evaluateEligibility(cfg, "13800000000", "", windowEnd.Add(1000*time.Hour), 1)
	assert.True(t, res.Eligible)
}

func TestEvaluateEligibility_Public(t *testing.T) {
	t.Run("auto-registers unknown phone", func(t *testing.T) {
		cfg := newTestConfig(models.ParticipantPublic)
		res := evaluateEligibility(cfg, "13800000000", "Alice", duringEvent, 1)

		require.True(t, res.Eligible)
		assert.True(t, res.Registered)
		require.NotNil(t, res.User)
		assert.Equal(t, models.User{Phone: "13800000000", Name: "Alice", TotalChances: 1}, *res.User)
		require.Len(t, cfg.Users, 1)
		assert.Same(t, res.User, cfg.Users[0])
	})

	t.Run("known phone is not registered again and name is not checked", func(t *testing.T) {
		cfg := newTestConfig(models.ParticipantPublic)
		cfg.Users = append(cfg.Users, &models.User{Phone: "13800000000", Name: "Alice", TotalChances: 2})

		res := evaluateEligibility(cfg, "13800000000", "Bob", duringEvent, 1)
		assert.True(t, res.Eligible)
		assert.False(t, res.Registered)
		assert.Len(t, cfg.Users, 1)
	})

	t.Run("zero default grant registers but refuses", func(t *testing.T) {
		cfg := newTestConfig(models.ParticipantPublic)
		res := evaluateEligibility(cfg, "13800000000", "", duringEvent, 0)
		assert.False(t, res.Eligible)
		assert.True(t, res.Registered)
		assert.Equal(t, ErrNoChancesLeft, res.Reason)
		assert.NotNil(t, res.User)
	})
}

func TestEvaluateEligibility_Private(t *testing.T) {
	newPrivate := func() *models.LotteryConfig {
		cfg := newTestConfig(models.ParticipantPrivate)
		cfg.Users = []*models.User{
			{Phone: "13900000000", Name: "Alice", TotalChances: 2, UsedChances: 0},
			{Phone: "13700000000", Name: "Bob", TotalChances: 1, UsedChances: 1},
		}
		return cfg
	}

	tests := []struct {
		name     string
		phone    string
		userName string
		eligible bool
		reason   *Error
		hasUser  bool
	}{
		{name: "not invited", phone: "13800000000", reason: ErrNotInvited},
		{name: "name mismatch", phone: "13900000000", userName: "Mallory", reason: ErrNameMismatch},
		{name: "empty name skips check", phone: "13900000000", eligible: true, hasUser: true},
		{name: "matching name", phone: "13900000000", userName: "Alice", eligible: true, hasUser: true},
		{name: "exhausted but known", phone: "13700000000", userName: "Bob", reason: ErrNoChancesLeft, hasUser: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newPrivate()
			res := evaluateEligibility(cfg, tt.phone, tt.userName, duringEvent, 1)
			assert.Equal(t, tt.eligible, res.Eligible)
			assert.Equal(t, tt.reason, res.Reason)
			assert.Equal(t, tt.hasUser, res.User != nil)
			assert.False(t, res.Registered)
			assert.Len(t, cfg.Users, 2)
		})
	}
}

func TestSelectPrize(t *testing.T) {
	pool := func() []*models.Prize {
		return []*models.Prize{
			{ID: "A", Probability: 10, RemainingCount: 1},
			{ID: "B", Probability: 20, RemainingCount: 1},
			{ID: "C", Probability: 10, RemainingCount: 1},
		}
	}

	tests := []struct {
		name   string
		mutate func(p []*models.Prize)
		r      float64
		want   string
	}{
		{name: "zero hits first", r: 0, want: "A"},
		{name: "boundary is inclusive", r: 10, want: "A"},
		{name: "just past first", r: 10.0001, want: "B"},
		{name: "second boundary", r: 30, want: "B"},
		{name: "third", r: 35, want: "C"},
		{name: "beyond sum is no prize", r: 85, want: ""},
		{name: "sold out prize is skipped", mutate: func(p []*models.Prize) { p[0].RemainingCount = 0 }, r: 5, want: "B"},
		{name: "filtering shrinks the winning range", mutate: func(p []*models.Prize) { p[1].RemainingCount = 0 }, r: 25, want: ""},
		{name: "zero weight never wins", mutate: func(p []*models.Prize) { p[0].Probability = 0 }, r: 0, want: "B"},
		{name: "negative weight does not shift later ranges", mutate: func(p []*models.Prize) { p[0].Probability = -5 }, r: 17, want: "B"},
		{name: "empty pool", mutate: func(p []*models.Prize) {
			for _, x := range p {
				x.RemainingCount = 0
			}
		}, r: 1, want: ""},
		{name: "over 100 shadows late prizes", mutate: func(p []*models.Prize) {
			p[0].Probability = 60
			p[1].Probability = 60
		}, r: 99.9, want: "B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prizes := pool()
			if tt.mutate != nil {
				tt.mutate(prizes)
			}
			got := selectPrize(prizes, tt.r)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.ID)

			// Same table and r always give the same answer.
			assert.Same(t, got, selectPrize(prizes, tt.r))
		})
	}
}

func TestApplyDraw(t *testing.T) {
	params := func(r float64) drawParams {
		return drawParams{r: r, now: duringEvent, recordID: "rec-1", noPrizeText: "谢谢参与"}
	}

	t.Run("win consumes chance and inventory", func(t *testing.T) {
		cfg := newTestConfig(models.ParticipantPublic)
		cfg.Users = append(cfg.Users, &models.User{Phone: "13800000000", TotalChances: 1})

		out, err := applyDraw(cfg, "13800000000", params(15))
		require.NoError(t, err)
		require.NotNil(t, out.Prize)
		assert.Equal(t, "P1", out.Prize.ID)
		assert.Equal(t, 0, out.Prize.RemainingCount)
		assert.Equal(t, 0, cfg.Prizes[0].RemainingCount)
		assert.Equal(t, 1, cfg.Users[0].UsedChances)

		require.Len(t, cfg.DrawRecords, 1)
		rec := cfg.DrawRecords[0]
		assert.Same(t, out.Record, rec)
		assert.Equal(t, "rec-1", rec.ID)
		assert.Equal(t, "13800000000", rec.UserPhone)
		require.NotNil(t, rec.PrizeID)
		assert.Equal(t, "P1", *rec.PrizeID)
		assert.Equal(t, "电视", rec.PrizeName)
		assert.True(t, rec.Timestamp.Equal(duringEvent))
	})

	t.Run("loss consumes chance only", func(t *testing.T) {
		cfg := newTestConfig(models.ParticipantPublic)
		cfg.Prizes[0].Probability = 25
		cfg.Prizes[1].Probability = 15
		cfg.Users = append(cfg.Users, &models.User{Phone: "13800000000", TotalChances: 1})

		out, err := applyDraw(cfg, "13800000000", params(85))
		require.NoError(t, err)
		assert.Nil(t, out.Prize)
		assert.Nil(t, out.Record.PrizeID)
		assert.Equal(t, "谢谢参与", out.Record.PrizeName)
		assert.Equal(t, 1, cfg.Prizes[0].RemainingCount)
		assert.Equal(t, 5, cfg.Prizes[1].RemainingCount)
		assert.Equal(t, 1, cfg.Users[0].UsedChances)
	})

	t.Run("records are prepended", func(t *testing.T) {
		cfg := newTestConfig(models.ParticipantPublic)
		cfg.Users = append(cfg.Users, &models.User{Phone: "13800000000", TotalChances: 2})

		p := params(99)
		_, err := applyDraw(cfg, "13800000000", p)
		require.NoError(t, err)
		p.recordID = "rec-2"
		_, err = applyDraw(cfg, "13800000000", p)
		require.NoError(t, err)

		require.Len(t, cfg.DrawRecords, 2)
		assert.Equal(t, "rec-2", cfg.DrawRecords[0].ID)
		assert.Equal(t, "rec-1", cfg.DrawRecords[1].ID)
	})

	t.Run("unknown user", func(t *testing.T) {
		cfg := newTestConfig(models.ParticipantPublic)
		_, err := applyDraw(cfg, "13800000000", params(1))
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.Empty(t, cfg.DrawRecords)
	})

	t.Run("exhausted user leaves state untouched", func(t *testing.T) {
		cfg := newTestConfig(models.ParticipantPublic)
		cfg.Users = append(cfg.Users, &models.User{Phone: "13800000000", TotalChances: 1, UsedChances: 1})
		before := cfg.Clone()

		_, err := applyDraw(cfg, "13800000000", params(1))
		assert.ErrorIs(t, err, ErrNoChancesLeft)
		assert.Equal(t, before, cfg)
	})
}
