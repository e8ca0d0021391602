package activityservice

import (
	"time"

	rankdomain "github.com/Black-And-White-Club/activity-bot/app/modules/rank/domain"
	roleservice "github.com/Black-And-White-Club/activity-bot/app/modules/roles/application"
	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
)

// MessageReceived is one chat message seen by the bot.
type MessageReceived struct {
	MessageID platform.MessageID
	UserID    platform.UserID
	ChannelID platform.ChannelID
	Content   string
	IsBot     bool
}

// Outcome says what happened to an ingested message.
type Outcome string

const (
	OutcomeScored          Outcome = "scored"
	OutcomeCooldown        Outcome = "cooldown"
	OutcomeLowQuality      Outcome = "low_quality"
	OutcomeExcludedChannel Outcome = "excluded_channel"
	OutcomeBot             Outcome = "bot"
	OutcomeUnknownUser     Outcome = "unknown_user"
	OutcomeDevFiltered     Outcome = "dev_filtered"
)

// IngestResult is the outcome of IngestMessage. Reconcile is set only when
// the message moved the member across a tier boundary.
type IngestResult struct {
	Outcome   Outcome
	OldScore  int64
	NewScore  int64
	Reconcile *roleservice.ReconcileResult
}

// DecayReport summarises one decay pass.
type DecayReport struct {
	Now     time.Time
	Cutoff  time.Time
	Scanned int
	Decayed int
	// Reconciled counts tier changes handed to the reconciler.
	Reconciled int
	// Failed counts users whose write failed or whose reconcile had soft failures.
	Failed   int
	Duration time.Duration
}

// FailureCode classifies a query or admin failure.
type FailureCode string

const (
	FailureUserNotFound FailureCode = "user_not_found"
	FailureInvalidInput FailureCode = "invalid_input"
)

// Failure is a business failure reported to the caller as text.
type Failure struct {
	Code    FailureCode
	UserID  platform.UserID
	Message string
}

// UserView is a stored user with the derived tier.
type UserView struct {
	UserID        platform.UserID
	Score         int64
	FirstSeenAt   time.Time
	LastMessageAt *time.Time
	Tier          string
}

// RankView is a member's progress toward the next tier.
type RankView struct {
	UserID   platform.UserID
	Progress rankdomain.Progress
}

// LeaderboardEntry is one leaderboard row; Position starts at 1.
type LeaderboardEntry struct {
	Position int
	UserID   platform.UserID
	Score    int64
	Tier     string
}

// InactiveUser is one row of the inactivity report.
type InactiveUser struct {
	UserID        platform.UserID
	Score         int64
	LastMessageAt time.Time
	DaysInactive  int
}

// ScoreUpdate is the result of an administrative score change.
type ScoreUpdate struct {
	UserID    platform.UserID
	OldScore  int64
	NewScore  int64
	Reconcile *roleservice.ReconcileResult
}

// SyncReport summarises a member list sync.
type SyncReport struct {
	Seen    int
	Created int
	Removed int
}
