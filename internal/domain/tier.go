package domain

import "fmt"

// Tier is a session's current retention location. Sessions move strictly
// forward through the tiers; deleted is terminal.
type Tier string

const (
	TierHot     Tier = "hot"
	TierCold    Tier = "cold"
	TierDeep    Tier = "deep"
	TierDeleted Tier = "deleted"
)

var tierOrder = map[Tier]int{
	TierHot:     0,
	TierCold:    1,
	TierDeep:    2,
	TierDeleted: 3,
}

// Index returns the tier's position in the retention order. Unknown tiers
// report -1 so they never win a monotonicity comparison.
func (t Tier) Index() int {
	i, ok := tierOrder[t]
	if !ok {
		return -1
	}
	return i
}

func (t Tier) Valid() bool { return t.Index() >= 0 }

// Next returns the tier one step forward, or deleted for deleted itself.
func (t Tier) Next() Tier {
	switch t {
	case TierHot:
		return TierCold
	case TierCold:
		return TierDeep
	case TierDeep:
		return TierDeleted
	default:
		return TierDeleted
	}
}

func (t Tier) String() string { return string(t) }

func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return t, nil
}
