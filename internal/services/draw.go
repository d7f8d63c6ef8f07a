package services

import (
	"math/rand"
	"time"

	"github.com/Farmer96/LuckGen/internal/models"
)

// DrawOutcome is the result of one draw. Prize is nil when nothing was won.
type DrawOutcome struct {
	Record *models.DrawRecord
	Prize  *models.Prize
}

// randomPoints returns a uniform value in [0,100).
func randomPoints() float64 {
	return rand.Float64() * 100 //nolint:gosec // Game logic randomness, not security critical
}

// selectPrize walks the prizes in configured order, skipping sold-out ones,
// and returns the first whose cumulative probability reaches r. It returns
// nil when r lies beyond the cumulative sum of the in-stock prizes.
//
// Prizes with Probability <= 0 are skipped outright, which departs from the
// plain "first prize where r <= cumulative" rule: a leading zero-weight prize
// does not win at r == 0, and a negative weight does not pull the running sum
// down for the prizes after it.
func selectPrize(prizes []*models.Prize, r float64) *models.Prize {
	var cumulative float64
	for _, p := range prizes {
		if p.RemainingCount <= 0 || p.Probability <= 0 {
			continue
		}
		cumulative += p.Probability
		if r <= cumulative {
			return p
		}
	}
	return nil
}

// drawParams carries the per-draw inputs that the service injects.
type drawParams struct {
	r           float64
	now         time.Time
	recordID    string
	noPrizeText string
}

// applyDraw performs one draw for phone against cfg, mutating cfg in place:
// one chance is consumed, the won prize loses one unit of inventory, and the
// record is prepended to the draw log. cfg is untouched on error.
func applyDraw(cfg *models.LotteryConfig, phone string, p drawParams) (*DrawOutcome, error) {
	user := cfg.FindUser(phone)
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.UsedChances >= user.TotalChances {
		return nil, ErrNoChancesLeft
	}

	won := selectPrize(cfg.Prizes, p.r)

	user.UsedChances++
	record := &models.DrawRecord{
		ID:        p.recordID,
		Timestamp: models.NewTime(p.now),
		UserPhone: phone,
		PrizeName: p.noPrizeText,
	}
	if won != nil {
		won.RemainingCount--
		id := won.ID
		record.PrizeID = &id
		record.PrizeName = won.Name
	}
	cfg.PrependRecord(record)

	outcome := &DrawOutcome{Record: record}
	if won != nil {
		prize := *won
		outcome.Prize = &prize
	}
	return outcome, nil
}
