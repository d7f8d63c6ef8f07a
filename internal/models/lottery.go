package models

// ParticipantType decides who may take part in a lottery.
type ParticipantType string

const (
	// ParticipantPublic lets any phone number self-register on first login.
	ParticipantPublic ParticipantType = "PUBLIC"
	// ParticipantPrivate only admits phones pre-listed by the organizer.
	ParticipantPrivate ParticipantType = "PRIVATE"
)

// Prize represents a single prize category in the pool.
// Probability is expressed in points out of 100 and is compared against one
// uniform draw in [0,100); it is not normalized across the pool.
type Prize struct {
	ID             string  `json:"id" validate:"required"`
	Level          string  `json:"level"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Probability    float64 `json:"probability" validate:"gte=0,lte=100"`
	TotalCount     int     `json:"totalCount" validate:"gte=0"`
	RemainingCount int     `json:"remainingCount" validate:"gte=0,ltefield=TotalCount"`
}

// User is a participant, keyed by phone number within the registry.
type User struct {
	Phone        string `json:"phone" validate:"required"`
	Name         string `json:"name"`
	TotalChances int    `json:"totalChances" validate:"gte=0"`
	UsedChances  int    `json:"usedChances" validate:"gte=0,ltefield=TotalChances"`
}

// RemainingChances is the number of draws the user may still perform.
func (u *User) RemainingChances() int {
	if u.UsedChances >= u.TotalChances {
		return 0
	}
	return u.TotalChances - u.UsedChances
}

// DrawRecord stores the outcome of a single draw. PrizeName is a snapshot
// taken at draw time, so later prize edits do not rewrite history.
type DrawRecord struct {
	ID        string  `json:"id" validate:"required"`
	Timestamp Time    `json:"timestamp"`
	UserPhone string  `json:"userPhone" validate:"required"`
	PrizeID   *string `json:"prizeId"`
	PrizeName string  `json:"prizeName"`
}

// Won reports whether the record references a prize.
func (r *DrawRecord) Won() bool {
	return r.PrizeID != nil
}

// LotteryConfig is the aggregate root and the single unit of persistence.
// Users is the registry used in both PUBLIC and PRIVATE mode; the JSON name
// is kept compatible with documents written by the browser client.
type LotteryConfig struct {
	ID              string          `json:"id" validate:"required"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	StartTime       Time            `json:"startTime"`
	EndTime         Time            `json:"endTime"`
	ParticipantType ParticipantType `json:"participantType" validate:"oneof=PUBLIC PRIVATE"`
	ThemeColor      string          `json:"themeColor,omitempty"`
	Prizes          []*Prize        `json:"prizes" validate:"dive,required"`
	Users           []*User         `json:"allowedUsers" validate:"dive,required"`
	DrawRecords     []*DrawRecord   `json:"drawRecords" validate:"dive,required"`
}

// FindUser returns the registered user for phone, or nil.
func (c *LotteryConfig) FindUser(phone string) *User {
	for _, u := range c.Users {
		if u.Phone == phone {
			return u
		}
	}
	return nil
}

// FindPrize returns the prize with the given id, or nil.
func (c *LotteryConfig) FindPrize(id string) *Prize {
	for _, p := range c.Prizes {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// TotalProbability sums the configured probability of every prize.
func (c *LotteryConfig) TotalProbability() float64 {
	var total float64
	for _, p := range c.Prizes {
		total += p.Probability
	}
	return total
}

// PrependRecord adds a record to the front of the draw log.
func (c *LotteryConfig) PrependRecord(r *DrawRecord) {
	c.DrawRecords = append([]*DrawRecord{r}, c.DrawRecords...)
}

// Clone returns a deep copy that shares no pointers with c.
func (c *LotteryConfig) Clone() *LotteryConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.Prizes = make([]*Prize, len(c.Prizes))
	for i, p := range c.Prizes {
		cp := *p
		out.Prizes[i] = &cp
	}
	out.Users = make([]*User, len(c.Users))
	for i, u := range c.Users {
		cu := *u
		out.Users[i] = &cu
	}
	out.DrawRecords = make([]*DrawRecord, len(c.DrawRecords))
	for i, r := range c.DrawRecords {
		cr := *r
		if r.PrizeID != nil {
			id := *r.PrizeID
			cr.PrizeID = &id
		}
		out.DrawRecords[i] = &cr
	}
	return &out
}
