package activitydb

import (
	"time"

	"github.com/uptrace/bun"
)

// User is one tracked member and their activity score.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	UserID        string     `bun:"user_id,pk" json:"user_id"`
	ActivityScore int64      `bun:"activity_score,notnull,default:0" json:"activity_score"`
	FirstSeenAt   time.Time  `bun:"first_seen_at,type:timestamptz,notnull,default:current_timestamp" json:"first_seen_at"`
	LastMessageAt *time.Time `bun:"last_message_at,type:timestamptz,nullzero" json:"last_message_at,omitempty"`
}

// LastActivity returns the last scoring message time, if any.
func (u *User) LastActivity() (time.Time, bool) {
	if u.LastMessageAt == nil {
		return time.Time{}, false
	}
	return *u.LastMessageAt, true
}

// ScoreChange carries the score before and after a write.
type ScoreChange struct {
	OldScore int64 `bun:"old_score"`
	NewScore int64 `bun:"new_score"`
}
