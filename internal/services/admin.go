package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/logger"

	"github.com/Farmer96/LuckGen/internal/models"
)

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
}

// ConfigDetails are the organizer-editable campaign fields.
type ConfigDetails struct {
	Title           string
	Description     string
	StartTime       time.Time
	EndTime         time.Time
	ParticipantType models.ParticipantType
	ThemeColor      string
}

func (d ConfigDetails) validate() error {
	if d.ParticipantType != models.ParticipantPublic && d.ParticipantType != models.ParticipantPrivate {
		return invalid(fmt.Errorf("unknown participant type %q", d.ParticipantType))
	}
	if !d.StartTime.IsZero() && !d.EndTime.IsZero() && !d.StartTime.Before(d.EndTime) {
		return invalid(models.ErrInvalidTimeWindow)
	}
	return nil
}

// PrizeSpec describes a prize to add.
type PrizeSpec struct {
	Level       string
	Name        string
	Description string
	Probability float64
	TotalCount  int
}

// UserSpec describes a participant to add or update.
type UserSpec struct {
	Phone        string
	Name         string
	TotalChances int
}

// CreateConfig starts a new lottery, replacing any existing document.
func (s *LotteryService) CreateConfig(ctx context.Context, d ConfigDetails) (*models.LotteryConfig, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	cfg := &models.LotteryConfig{
		ID:              s.newID(),
		Title:           d.Title,
		Description:     d.Description,
		StartTime:       models.NewTime(d.StartTime),
		EndTime:         models.NewTime(d.EndTime),
		ParticipantType: d.ParticipantType,
		ThemeColor:      d.ThemeColor,
		Prizes:          []*models.Prize{},
		Users:           []*models.User{},
		DrawRecords:     []*models.DrawRecord{},
	}
	if err := s.SaveConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig replaces the whole document after validating it. A pool whose
// probabilities sum above 100 is refused here; the draw itself tolerates it.
func (s *LotteryService) SaveConfig(ctx context.Context, cfg *models.LotteryConfig) error {
	if cfg.Prizes == nil {
		cfg.Prizes = []*models.Prize{}
	}
	if cfg.Users == nil {
		cfg.Users = []*models.User{}
	}
	if cfg.DrawRecords == nil {
		cfg.DrawRecords = []*models.DrawRecord{}
	}
	if err := models.Validate(cfg); err != nil {
		return invalid(err)
	}

	unlock, err := s.locker.Lock(ctx, s.lockKey)
	if err != nil {
		return s.storeFailure("save_config", err)
	}
	defer unlock()

	if err := s.store.Save(ctx, cfg); err != nil {
		return s.storeFailure("save_config", err)
	}
	logger.Infof("Saved lottery %s (%d prizes, %d users)", cfg.ID, len(cfg.Prizes), len(cfg.Users))
	return nil
}

// UpdateDetails edits the campaign fields, keeping prizes, users and records.
func (s *LotteryService) UpdateDetails(ctx context.Context, d ConfigDetails) (*models.LotteryConfig, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	cfg, err := s.update(ctx, "update_details", func(cfg *models.LotteryConfig) (bool, error) {
		cfg.Title = d.Title
		cfg.Description = d.Description
		cfg.StartTime = models.NewTime(d.StartTime)
		cfg.EndTime = models.NewTime(d.EndTime)
		cfg.ParticipantType = d.ParticipantType
		cfg.ThemeColor = d.ThemeColor
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("Updated details of lottery %s", cfg.ID)
	return cfg, nil
}

// Reset discards the whole document.
func (s *LotteryService) Reset(ctx context.Context) error {
	unlock, err := s.locker.Lock(ctx, s.lockKey)
	if err != nil {
		return s.storeFailure("reset", err)
	}
	defer unlock()

	if err := s.store.Delete(ctx); err != nil {
		return s.storeFailure("reset", err)
	}
	logger.Infof("Lottery reset")
	return nil
}

// AddPrize appends a prize with full inventory.
func (s *LotteryService) AddPrize(ctx context.Context, spec PrizeSpec) (*models.Prize, error) {
	prize := &models.Prize{
		ID:             s.newID(),
		Level:          spec.Level,
		Name:           spec.Name,
		Description:    spec.Description,
		Probability:    spec.Probability,
		TotalCount:     spec.TotalCount,
		RemainingCount: spec.TotalCount,
	}
	if err := models.ValidatePrize(prize); err != nil {
		return nil, invalid(err)
	}

	_, err := s.update(ctx, "add_prize", func(cfg *models.LotteryConfig) (bool, error) {
		if total := cfg.TotalProbability() + prize.Probability; total > models.MaxTotalProbability {
			return false, invalid(fmt.Errorf("%w: %.2f", models.ErrTotalProbabilityExceeded, total))
		}
		cfg.Prizes = append(cfg.Prizes, prize)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("Added prize %s (%s, %.2f%%, %d)", prize.ID, prize.Name, prize.Probability, prize.TotalCount)
	return prize, nil
}

// updatePrize applies edit to a copy of the prize and stores it only if the
// result is valid.
func (s *LotteryService) updatePrize(ctx context.Context, op, id string, edit func(cfg *models.LotteryConfig, p *models.Prize) error) (*models.Prize, error) {
	var out models.Prize
	_, err := s.update(ctx, op, func(cfg *models.LotteryConfig) (bool, error) {
		p := cfg.FindPrize(id)
		if p == nil {
			return false, ErrPrizeNotFound
		}
		next := *p
		if err := edit(cfg, &next); err != nil {
			return false, err
		}
		if err := models.ValidatePrize(&next); err != nil {
			return false, invalid(err)
		}
		*p = next
		out = next
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("%s: prize %s updated", op, id)
	return &out, nil
}

// UpdatePrizeLevel renames the prize tier.
func (s *LotteryService) UpdatePrizeLevel(ctx context.Context, id, level string) (*models.Prize, error) {
	return s.updatePrize(ctx, "update_prize_level", id, func(_ *models.LotteryConfig, p *models.Prize) error {
		p.Level = level
		return nil
	})
}

// UpdatePrizeName renames the prize. Existing draw records keep the old name.
func (s *LotteryService) UpdatePrizeName(ctx context.Context, id, name string) (*models.Prize, error) {
	return s.updatePrize(ctx, "update_prize_name", id, func(_ *models.LotteryConfig, p *models.Prize) error {
		p.Name = name
		return nil
	})
}

// UpdatePrizeDescription changes the prize description.
func (s *LotteryService) UpdatePrizeDescription(ctx context.Context, id, description string) (*models.Prize, error) {
	return s.updatePrize(ctx, "update_prize_description", id, func(_ *models.LotteryConfig, p *models.Prize) error {
		p.Description = description
		return nil
	})
}

// UpdatePrizeProbability changes the prize weight, refusing a pool total
// above 100.
func (s *LotteryService) UpdatePrizeProbability(ctx context.Context, id string, probability float64) (*models.Prize, error) {
	return s.updatePrize(ctx, "update_prize_probability", id, func(cfg *models.LotteryConfig, p *models.Prize) error {
		total := cfg.TotalProbability() - p.Probability + probability
		if total > models.MaxTotalProbability {
			return invalid(fmt.Errorf("%w: %.2f", models.ErrTotalProbabilityExceeded, total))
		}
		p.Probability = probability
		return nil
	})
}

// UpdatePrizeCount sets the total inventory and restocks the prize to it.
// This is the only operation that raises RemainingCount.
func (s *LotteryService) UpdatePrizeCount(ctx context.Context, id string, total int) (*models.Prize, error) {
	return s.updatePrize(ctx, "update_prize_count", id, func(_ *models.LotteryConfig, p *models.Prize) error {
		p.TotalCount = total
		p.RemainingCount = total
		return nil
	})
}

// RemovePrize deletes a prize. Draw records referencing it are kept.
func (s *LotteryService) RemovePrize(ctx context.Context, id string) error {
	_, err := s.update(ctx, "remove_prize", func(cfg *models.LotteryConfig) (bool, error) {
		for i, p := range cfg.Prizes {
			if p.ID == id {
				cfg.Prizes = append(cfg.Prizes[:i], cfg.Prizes[i+1:]...)
				return true, nil
			}
		}
		return false, ErrPrizeNotFound
	})
	if err != nil {
		return err
	}
	logger.Infof("Removed prize %s", id)
	return nil
}

// UpsertUser adds a participant or updates an existing one's name and
// granted chances. Used chances are preserved.
func (s *LotteryService) UpsertUser(ctx context.Context, spec UserSpec) (*models.User, error) {
	cfg, err := s.upsertUsers(ctx, []UserSpec{spec})
	if err != nil {
		return nil, err
	}
	u := *cfg.FindUser(spec.Phone)
	return &u, nil
}

// UpsertUsers applies specs in one write. Either every spec is applied or
// none is.
func (s *LotteryService) UpsertUsers(ctx context.Context, specs []UserSpec) (int, error) {
	if _, err := s.upsertUsers(ctx, specs); err != nil {
		return 0, err
	}
	return len(specs), nil
}

func (s *LotteryService) upsertUsers(ctx context.Context, specs []UserSpec) (*models.LotteryConfig, error) {
	for _, spec := range specs {
		if spec.Phone == "" {
			return nil, invalid(fmt.Errorf("phone is required"))
		}
		if spec.TotalChances < 0 {
			return nil, invalid(fmt.Errorf("phone %s: total chances must not be negative", spec.Phone))
		}
	}

	cfg, err := s.update(ctx, "upsert_users", func(cfg *models.LotteryConfig) (bool, error) {
		for _, spec := range specs {
			u := cfg.FindUser(spec.Phone)
			if u == nil {
				cfg.Users = append(cfg.Users, &models.User{
					Phone:        spec.Phone,
					Name:         spec.Name,
					TotalChances: spec.TotalChances,
				})
				continue
			}
			if spec.TotalChances < u.UsedChances {
				return false, invalid(fmt.Errorf("phone %s: total chances %d below used %d", spec.Phone, spec.TotalChances, u.UsedChances))
			}
			u.Name = spec.Name
			u.TotalChances = spec.TotalChances
		}
		return len(specs) > 0, nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("Upserted %d participants", len(specs))
	return cfg, nil
}

// RemoveUser deletes a participant. Their draw records are kept.
func (s *LotteryService) RemoveUser(ctx context.Context, phone string) error {
	_, err := s.update(ctx, "remove_user", func(cfg *models.LotteryConfig) (bool, error) {
		for i, u := range cfg.Users {
			if u.Phone == phone {
				cfg.Users = append(cfg.Users[:i], cfg.Users[i+1:]...)
				return true, nil
			}
		}
		return false, ErrUserNotFound
	})
	if err != nil {
		return err
	}
	logger.Infof("Removed participant %s", phone)
	return nil
}
