package services

import (
	"time"

	"github.com/Farmer96/LuckGen/internal/models"
)

// EligibilityResult is the outcome of an eligibility check. User is set
// whenever the participant is known, including when Reason is
// ErrNoChancesLeft, so callers can still show draw history.
type EligibilityResult struct {
	Eligible   bool
	Reason     *Error
	User       *models.User
	Registered bool // the participant was auto-registered by this check
}

// evaluateEligibility applies the checks in order and stops at the first
// failure. In public mode an unknown phone is appended to cfg.Users with
// defaultChances; the caller must persist cfg when Registered is set.
// A zero start or end time leaves that side of the window open.
func evaluateEligibility(cfg *models.LotteryConfig, phone, name string, now time.Time, defaultChances int) EligibilityResult {
	if !cfg.StartTime.IsZero() && now.Before(cfg.StartTime.Time) {
		return EligibilityResult{Reason: ErrNotStarted}
	}
	if !cfg.EndTime.IsZero() && now.After(cfg.EndTime.Time) {
		return EligibilityResult{Reason: ErrEnded}
	}

	var res EligibilityResult
	user := cfg.FindUser(phone)

	switch cfg.ParticipantType {
	case models.ParticipantPublic:
		if user == nil {
			user = &models.User{
				Phone:        phone,
				Name:         name,
				TotalChances: defaultChances,
			}
			cfg.Users = append(cfg.Users, user)
			res.Registered = true
		}
	default:
		if user == nil {
			return EligibilityResult{Reason: ErrNotInvited}
		}
		if name != "" && user.Name != name {
			return EligibilityResult{Reason: ErrNameMismatch}
		}
	}

	res.User = user
	if user.UsedChances >= user.TotalChances {
		res.Reason = ErrNoChancesLeft
		return res
	}
	res.Eligible = true
	return res
}
