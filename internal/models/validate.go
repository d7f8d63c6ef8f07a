package models

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// MaxTotalProbability is the ceiling for the sum of prize probabilities
// accepted when a configuration is saved. The draw itself tolerates more.
const MaxTotalProbability = 100.0

var (
	ErrTotalProbabilityExceeded = errors.New("total prize probability exceeds 100")
	ErrInvalidTimeWindow        = errors.New("start time must be before end time")
	ErrDuplicatePrizeID         = errors.New("duplicate prize id")
	ErrDuplicatePhone           = errors.New("duplicate participant phone")
	ErrNilEntry                 = errors.New("list entry must not be null")
)

var validate = validator.New()

// Validate checks field constraints, registry uniqueness, the time window and
// the probability ceiling. All problems found are joined into one error.
func Validate(c *LotteryConfig) error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Errorf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err)
		}
	}

	// The remaining checks dereference every entry.
	if err := nilEntries(c); err != nil {
		return errors.Join(append(errs, err)...)
	}

	if !c.StartTime.IsZero() && !c.EndTime.IsZero() && !c.StartTime.Before(c.EndTime.Time) {
		errs = append(errs, ErrInvalidTimeWindow)
	}

	prizeIDs := make(map[string]struct{}, len(c.Prizes))
	for _, p := range c.Prizes {
		if _, dup := prizeIDs[p.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicatePrizeID, p.ID))
		}
		prizeIDs[p.ID] = struct{}{}
	}

	phones := make(map[string]struct{}, len(c.Users))
	for _, u := range c.Users {
		if _, dup := phones[u.Phone]; dup {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicatePhone, u.Phone))
		}
		phones[u.Phone] = struct{}{}
	}

	if total := c.TotalProbability(); total > MaxTotalProbability {
		errs = append(errs, fmt.Errorf("%w: %.2f", ErrTotalProbabilityExceeded, total))
	}

	return errors.Join(errs...)
}

func nilEntries(c *LotteryConfig) error {
	var errs []error
	for i, p := range c.Prizes {
		if p == nil {
			errs = append(errs, fmt.Errorf("%w: prizes[%d]", ErrNilEntry, i))
		}
	}
	for i, u := range c.Users {
		if u == nil {
			errs = append(errs, fmt.Errorf("%w: allowedUsers[%d]", ErrNilEntry, i))
		}
	}
	for i, r := range c.DrawRecords {
		if r == nil {
			errs = append(errs, fmt.Errorf("%w: drawRecords[%d]", ErrNilEntry, i))
		}
	}
	return errors.Join(errs...)
}

// ValidatePrize checks a single prize's field constraints.
func ValidatePrize(p *Prize) error {
	return validate.Struct(p)
}

// ValidateUser checks a single user's field constraints.
func ValidateUser(u *User) error {
	return validate.Struct(u)
}
