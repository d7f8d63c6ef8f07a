package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"

	"github.com/Farmer96/LuckGen/internal/events"
	"github.com/Farmer96/LuckGen/internal/lock"
	"github.com/Farmer96/LuckGen/internal/metrics"
	"github.com/Farmer96/LuckGen/internal/models"
	"github.com/Farmer96/LuckGen/internal/store"
)

const (
	defaultPublicChances = 1
	defaultNoPrizeText   = "谢谢参与"
	defaultLockKey       = "lottery:config"
)

// latestLoader is implemented by stores that cache reads. Mutations must
// always start from the latest document.
type latestLoader interface {
	LoadLatest(ctx context.Context) (*models.LotteryConfig, error)
}

// LotteryService runs eligibility checks, draws and admin edits against the
// configuration document. Every mutation is a read-modify-write of the whole
// document performed under the document's write lock.
type LotteryService struct {
	store     store.ConfigStore
	locker    lock.Locker
	publisher events.Publisher
	lockKey   string

	now           func() time.Time
	random        func() float64
	newID         func() string
	publicChances int
	noPrizeText   string
}

// Option configures a LotteryService.
type Option func(*LotteryService)

// WithLocker sets the write lock. Defaults to an in-process lock.
func WithLocker(l lock.Locker) Option {
	return func(s *LotteryService) { s.locker = l }
}

// WithLockKey sets the key the write lock is taken on.
func WithLockKey(key string) Option {
	return func(s *LotteryService) { s.lockKey = key }
}

// WithPublisher sets where draw events go. Defaults to discarding them.
func WithPublisher(p events.Publisher) Option {
	return func(s *LotteryService) { s.publisher = p }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *LotteryService) { s.now = now }
}

// WithRandom overrides the draw source; it must return values in [0,100).
func WithRandom(random func() float64) Option {
	return func(s *LotteryService) { s.random = random }
}

// WithIDGenerator overrides how record, prize and config ids are made.
func WithIDGenerator(newID func() string) Option {
	return func(s *LotteryService) { s.newID = newID }
}

// WithPublicDefaultChances sets the chances granted on public self-registration.
func WithPublicDefaultChances(n int) Option {
	return func(s *LotteryService) { s.publicChances = n }
}

// WithNoPrizeText sets the prize name recorded for a losing draw.
func WithNoPrizeText(text string) Option {
	return func(s *LotteryService) { s.noPrizeText = text }
}

// NewLotteryService creates and initializes a new LotteryService.
func NewLotteryService(st store.ConfigStore, opts ...Option) *LotteryService {
	s := &LotteryService{
		store:         st,
		locker:        lock.NewLocal(),
		publisher:     events.Nop{},
		lockKey:       defaultLockKey,
		now:           time.Now,
		random:        randomPoints,
		newID:         uuid.NewString,
		publicChances: defaultPublicChances,
		noPrizeText:   defaultNoPrizeText,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// storeFailure records a persistence failure and wraps it so callers can
// detect it with errors.Is(err, ErrStoreUnavailable).
func (s *LotteryService) storeFailure(op string, err error) error {
	metrics.StoreErrors.WithLabelValues(op).Inc()
	logger.Errorf("%s: store failure: %v", op, err)
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func (s *LotteryService) loadLatest(ctx context.Context, op string) (*models.LotteryConfig, error) {
	var (
		cfg *models.LotteryConfig
		err error
	)
	if ll, ok := s.store.(latestLoader); ok {
		cfg, err = ll.LoadLatest(ctx)
	} else {
		cfg, err = s.store.Load(ctx)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotConfigured
	}
	if err != nil {
		return nil, s.storeFailure(op, err)
	}
	return cfg, nil
}

// update loads the latest document under the write lock, applies fn and
// saves the document when fn reports a change. fn's error is returned after
// any save, so a change can be persisted even when fn refuses the request.
func (s *LotteryService) update(ctx context.Context, op string, fn func(cfg *models.LotteryConfig) (bool, error)) (*models.LotteryConfig, error) {
	unlock, err := s.locker.Lock(ctx, s.lockKey)
	if err != nil {
		return nil, s.storeFailure(op, err)
	}
	defer unlock()

	cfg, err := s.loadLatest(ctx, op)
	if err != nil {
		return nil, err
	}

	changed, fnErr := fn(cfg)
	if changed {
		if err := s.store.Save(ctx, cfg); err != nil {
			return nil, s.storeFailure(op, err)
		}
	}
	return cfg, fnErr
}

// LoadConfig returns the current document, or nil when none exists.
func (s *LotteryService) LoadConfig(ctx context.Context) (*models.LotteryConfig, error) {
	cfg, err := s.store.Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.storeFailure("load", err)
	}
	return cfg, nil
}

// CheckEligibility decides whether phone may draw now. The returned error
// is reserved for infrastructure failures and a missing configuration;
// refusals are reported through EligibilityResult.Reason.
func (s *LotteryService) CheckEligibility(ctx context.Context, phone, name string) (*EligibilityResult, error) {
	var res EligibilityResult
	_, err := s.update(ctx, "check_eligibility", func(cfg *models.LotteryConfig) (bool, error) {
		res = evaluateEligibility(cfg, phone, name, s.now(), s.publicChances)
		return res.Registered, nil
	})
	if err != nil {
		return nil, err
	}

	if res.Registered {
		metrics.AutoRegistrations.Inc()
		logger.Infof("Auto-registered participant %s with %d chances", phone, res.User.TotalChances)
	}
	if res.Eligible {
		metrics.EligibilityChecks.WithLabelValues("eligible").Inc()
	} else {
		metrics.EligibilityChecks.WithLabelValues(string(res.Reason.Kind)).Inc()
	}
	return &res, nil
}

// PerformDraw consumes one of phone's chances and draws from the prize pool.
// The participant and chance checks are repeated against the latest
// document, since the caller's view may be stale.
func (s *LotteryService) PerformDraw(ctx context.Context, phone string) (*DrawOutcome, error) {
	var outcome *DrawOutcome
	cfg, err := s.update(ctx, "draw", func(cfg *models.LotteryConfig) (bool, error) {
		var err error
		outcome, err = applyDraw(cfg, phone, drawParams{
			r:           s.random(),
			now:         s.now(),
			recordID:    s.newID(),
			noPrizeText: s.noPrizeText,
		})
		return err == nil, err
	})
	if err != nil {
		return nil, err
	}

	if outcome.Prize != nil {
		metrics.DrawsTotal.WithLabelValues(metrics.OutcomeWin).Inc()
		metrics.PrizesAwarded.WithLabelValues(outcome.Prize.ID).Inc()
		logger.Infof("Draw %s: %s won %s (%s), %d left", outcome.Record.ID, phone, outcome.Prize.Name, outcome.Prize.ID, outcome.Prize.RemainingCount)
	} else {
		metrics.DrawsTotal.WithLabelValues(metrics.OutcomeLose).Inc()
		logger.Infof("Draw %s: %s won nothing", outcome.Record.ID, phone)
	}

	if err := s.publisher.PublishDraw(ctx, cfg.ID, outcome.Record); err != nil {
		metrics.PublishFailures.Inc()
		logger.Warningf("Draw %s persisted but event not published: %v", outcome.Record.ID, err)
	}
	return outcome, nil
}

// Draw checks eligibility and, when eligible, performs a draw. This is the
// participant-facing entry point; PerformDraw re-validates chances itself.
func (s *LotteryService) Draw(ctx context.Context, phone, name string) (*DrawOutcome, error) {
	res, err := s.CheckEligibility(ctx, phone, name)
	if err != nil {
		return nil, err
	}
	if !res.Eligible {
		return nil, res.Reason
	}
	return s.PerformDraw(ctx, phone)
}

// Stats summarizes the current document.
type Stats struct {
	TotalUsers      int `json:"totalUsers"`
	DrawCount       int `json:"drawCount"`
	RemainingPrizes int `json:"remainingPrizes"`
	TotalPrizes     int `json:"totalPrizes"`
}

// Stats returns participant, draw and inventory totals.
func (s *LotteryService) Stats(ctx context.Context) (*Stats, error) {
	cfg, err := s.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrNotConfigured
	}
	st := &Stats{
		TotalUsers: len(cfg.Users),
		DrawCount:  len(cfg.DrawRecords),
	}
	for _, p := range cfg.Prizes {
		st.RemainingPrizes += p.RemainingCount
		st.TotalPrizes += p.TotalCount
	}
	return st, nil
}

// UserRecords returns phone's draw history, newest first.
func (s *LotteryService) UserRecords(ctx context.Context, phone string) ([]*models.DrawRecord, error) {
	cfg, err := s.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrNotConfigured
	}
	records := make([]*models.DrawRecord, 0)
	for _, r := range cfg.DrawRecords {
		if r.UserPhone == phone {
			records = append(records, r)
		}
	}
	return records, nil
}
