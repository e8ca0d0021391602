package roleservice

import (
	"fmt"
	"strings"
	"time"

	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
)

// Transition is a score change that may move a member across tiers.
type Transition struct {
	UserID   platform.UserID
	OldScore int64
	NewScore int64
	// AnnounceChannel receives the promotion message; empty disables it.
	AnnounceChannel platform.ChannelID
	// Timeout overrides the service's call timeout when positive.
	Timeout time.Duration
}

// Step names the platform call a soft failure came from.
type Step string

const (
	StepListRoles  Step = "list_roles"
	StepRemoveRole Step = "remove_role"
	StepAddRole    Step = "add_role"
)

// SoftFailure is a platform call that failed without aborting reconciliation.
// The next reconciliation for the member repairs it.
type SoftFailure struct {
	Step Step
	Role platform.RoleHandle
	Err  error
}

func (f SoftFailure) Error() string {
	if f.Role == "" {
		return fmt.Sprintf("%s: %v", f.Step, f.Err)
	}
	return fmt.Sprintf("%s %s: %v", f.Step, f.Role, f.Err)
}

// ReconcileResult reports what a reconciliation did. Callers must check
// SoftFailures: a non-empty list means the member's roles may be stale.
type ReconcileResult struct {
	UserID   platform.UserID
	Changed  bool
	FromTier string
	ToTier   string
	Promoted bool

	Removed      []platform.RoleHandle
	Added        platform.RoleHandle
	MemberGone   bool
	SoftFailures []SoftFailure
}

// OK reports whether every platform call succeeded.
func (r ReconcileResult) OK() bool { return len(r.SoftFailures) == 0 }

// Outcome is the metrics label for the result.
func (r ReconcileResult) Outcome() string {
	switch {
	case !r.Changed:
		return "unchanged"
	case r.MemberGone:
		return "member_gone"
	case !r.OK():
		return "soft_failure"
	case r.Promoted:
		return "promoted"
	default:
		return "demoted"
	}
}

// FailureSummary joins the soft failures for logging.
func (r ReconcileResult) FailureSummary() string {
	parts := make([]string, len(r.SoftFailures))
	for i, f := range r.SoftFailures {
		parts[i] = f.Error()
	}
	return strings.Join(parts, "; ")
}
