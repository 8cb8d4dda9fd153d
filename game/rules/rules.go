// Package rules tracks the bingo quota of a round and decides when it is won.
package rules

import (
	"fmt"
	"strings"

	"github.com/wricardo/blockbingo/game/board"
)

// Tier is the bingo level the round aims for.
type Tier int

const (
	Single Tier = iota
	Double
	Triple
	Full
)

var tierNames = [...]string{"single", "double", "triple", "full"}

// String returns the tier name
func (t Tier) String() string {
	if t < Single || t > Full {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// ParseTier parses a tier name
func ParseTier(s string) (Tier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Single, nil
	}
	for i, name := range tierNames {
		if s == name {
			return Tier(i), nil
		}
	}
	return Single, fmt.Errorf("%w: unknown tier %q", board.ErrInvalidIdentifier, s)
}

// MarshalText implements encoding.TextMarshaler
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// candidates lists, per tier, the circle sets that complete it. The first set
// containing the color circle is used.
var candidates = map[Tier][][]board.CircleID{
	Single: {
		{1, 2, 3},
		{3, 5, 8},
		{6, 7, 8},
		{1, 4, 6},
	},
	Double: {
		{1, 2, 3, 5, 8},
		{1, 2, 3, 4, 5},
		{3, 4, 8, 7, 6},
		{1, 4, 6, 7, 8},
	},
	Triple: {
		{1, 2, 3, 5, 8, 7, 6},
		{1, 2, 3, 4, 6, 7, 8},
		{3, 5, 8, 7, 6, 4, 1},
		{6, 4, 1, 2, 3, 5, 8},
	},
	Full: {
		{1, 2, 3, 4, 5, 6, 7, 8},
	},
}

const (
	initialBonus = 1
	// BonusTarget is the bonus count of a won round: the initial placement plus
	// the black block carried to the bonus circle.
	BonusTarget = 2
)

// RuleBook holds the circles still needing a color block and the bonus count.
type RuleBook struct {
	tier  Tier
	color board.CircleID
	quota []board.CircleID
	bonus int
}

// New creates the rule book of a round whose color block sits on color
func New(tier Tier, color board.CircleID) (*RuleBook, error) {
	quota, err := SelectQuota(tier, color)
	if err != nil {
		return nil, err
	}
	return &RuleBook{tier: tier, color: color, quota: quota, bonus: initialBonus}, nil
}

// SelectQuota returns the first candidate set of tier containing color, with
// color removed and the order kept.
func SelectQuota(tier Tier, color board.CircleID) ([]board.CircleID, error) {
	sets, ok := candidates[tier]
	if !ok {
		return nil, fmt.Errorf("%w: tier %d", board.ErrInvalidIdentifier, int(tier))
	}
	for _, set := range sets {
		for i, id := range set {
			if id != color {
				continue
			}
			quota := make([]board.CircleID, 0, len(set)-1)
			quota = append(quota, set[:i]...)
			return append(quota, set[i+1:]...), nil
		}
	}
	return nil, fmt.Errorf("%w: no %s bingo goes through circle %d", board.ErrInvalidState, tier, color)
}

// Tier returns the bingo tier
func (r *RuleBook) Tier() Tier { return r.tier }

// Quota returns the circles still needing a color block
func (r *RuleBook) Quota() []board.CircleID {
	out := make([]board.CircleID, len(r.quota))
	copy(out, r.quota)
	return out
}

// Bonus returns the number of successful bonus placements
func (r *RuleBook) Bonus() int { return r.bonus }

// PutColorBlock records a color block delivered to the quota entry at index
func (r *RuleBook) PutColorBlock(index int) error {
	if index < 0 || index >= len(r.quota) {
		return fmt.Errorf("%w: quota index %d out of %d", board.ErrInvalidIdentifier, index, len(r.quota))
	}
	r.quota = append(r.quota[:index], r.quota[index+1:]...)
	return nil
}

// PutBlackBlock records the black block delivered to the bonus circle
func (r *RuleBook) PutBlackBlock() {
	r.bonus++
}

// Achieved reports whether the quota is empty and the bonus target reached
func (r *RuleBook) Achieved() bool {
	return len(r.quota) == 0 && r.bonus == BonusTarget
}
