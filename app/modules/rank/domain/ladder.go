package rankdomain

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
)

var (
	ErrEmptyLadder     = errors.New("rank ladder has no tiers")
	ErrUnorderedLadder = errors.New("rank ladder requirements must be strictly increasing")
	ErrDuplicateRole   = errors.New("rank ladder role handles must be unique")
	ErrMissingRole     = errors.New("rank ladder tier has no role handle")
)

// Tier is one rung of the ladder.
type Tier struct {
	Name        string
	Requirement int64
	RoleHandle  platform.RoleHandle
}

// Ladder is the ordered, immutable tier table. Every score-to-rank derivation
// goes through it.
type Ladder struct {
	tiers []Tier
	roles map[platform.RoleHandle]struct{}
}

// NewLadder validates tiers and builds a ladder. Tiers must already be in
// ascending requirement order.
func NewLadder(tiers []Tier) (*Ladder, error) {
	if len(tiers) == 0 {
		return nil, ErrEmptyLadder
	}

	roles := make(map[platform.RoleHandle]struct{}, len(tiers))
	for i, t := range tiers {
		if i > 0 && t.Requirement <= tiers[i-1].Requirement {
			return nil, fmt.Errorf("%w: %s (%d) after %s (%d)",
				ErrUnorderedLadder, t.Name, t.Requirement, tiers[i-1].Name, tiers[i-1].Requirement)
		}
		if t.RoleHandle == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingRole, t.Name)
		}
		if _, dup := roles[t.RoleHandle]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRole, t.RoleHandle)
		}
		roles[t.RoleHandle] = struct{}{}
	}

	copied := make([]Tier, len(tiers))
	copy(copied, tiers)
	return &Ladder{tiers: copied, roles: roles}, nil
}

// Tiers returns a copy of the ladder in ascending order.
func (l *Ladder) Tiers() []Tier {
	out := make([]Tier, len(l.tiers))
	copy(out, l.tiers)
	return out
}

// TierFor returns the highest tier whose requirement score meets.
func (l *Ladder) TierFor(score int64) (Tier, bool) {
	// first index whose requirement exceeds score
	i := sort.Search(len(l.tiers), func(i int) bool { return l.tiers[i].Requirement > score })
	if i == 0 {
		return Tier{}, false
	}
	return l.tiers[i-1], true
}

// NextTierAfter returns the lowest tier whose requirement is above score.
func (l *Ladder) NextTierAfter(score int64) (Tier, bool) {
	i := sort.Search(len(l.tiers), func(i int) bool { return l.tiers[i].Requirement > score })
	if i == len(l.tiers) {
		return Tier{}, false
	}
	return l.tiers[i], true
}

// SameTier reports whether two scores map to the same tier (or both to none).
func (l *Ladder) SameTier(a, b int64) bool {
	ta, okA := l.TierFor(a)
	tb, okB := l.TierFor(b)
	if okA != okB {
		return false
	}
	return !okA || ta.Name == tb.Name
}

// IsRankRole reports whether role belongs to a ladder tier.
func (l *Ladder) IsRankRole(role platform.RoleHandle) bool {
	_, ok := l.roles[role]
	return ok
}

// RoleHandles lists the ladder roles in tier order.
func (l *Ladder) RoleHandles() []platform.RoleHandle {
	out := make([]platform.RoleHandle, 0, len(l.tiers))
	for _, t := range l.tiers {
		if t.RoleHandle != "" {
			out = append(out, t.RoleHandle)
		}
	}
	return out
}
