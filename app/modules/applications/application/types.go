package applicationservice

import (
	"time"

	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
)

// Custom ids shared with the gateway.
const (
	ApplyButtonID       = "apply"
	ApplicationModalID  = "application"
	AcceptButtonPrefix  = "accept-application-"
	DeclineButtonPrefix = "decline-application-"
)

// Question is one application form question.
type Question struct {
	ID     string `yaml:"id"`
	Prompt string `yaml:"prompt"`
}

// DefaultQuestions is the stock application form.
var DefaultQuestions = []Question{
	{ID: "q1", Prompt: "Are you interested in the development/future of RSPS?"},
	{ID: "q2", Prompt: "What was the last thing you worked on in RSPS big or small?"},
	{ID: "q3", Prompt: "How long ago did you do this?"},
	{ID: "q4", Prompt: "If one side of a square is 25 pixels wide, how wide are all four sides combined?"},
	{ID: "q5", Prompt: "Write \"hello world\" in Java/Kotlin to console?"},
}

// Config wires the flow to guild channels and roles.
type Config struct {
	LobbyChannel   platform.ChannelID
	ReviewChannel  platform.ChannelID
	WelcomeChannel platform.ChannelID
	MemberRole     platform.RoleHandle
	// ReviewerRole is mentioned in the applicant's confirmation.
	ReviewerRole platform.RoleHandle
	Questions    []Question
	// GuardTTL is how long a resolved review message is remembered.
	GuardTTL time.Duration
}

// Submission is a submitted application modal.
type Submission struct {
	Ref      platform.InteractionRef
	UserID   platform.UserID
	UserName string
	Answers  map[string]string
}

// Decision is a reviewer pressing accept or decline.
type Decision struct {
	Ref          platform.InteractionRef
	CustomID     string
	ChannelID    platform.ChannelID
	MessageID    platform.MessageID
	Embed        *platform.Embed
	ReviewerID   platform.UserID
	ReviewerName string
}

// Resolution is the outcome of a decision.
type Resolution struct {
	ApplicantID platform.UserID
	Accepted    bool
	// StepErrors are platform steps that failed after the decision was recorded.
	StepErrors []error
}

// FailureCode classifies a rejected decision.
type FailureCode string

const (
	FailureAlreadyResolved FailureCode = "already_resolved"
	FailureUnknownButton   FailureCode = "unknown_button"
)

// Failure is a decision that was not applied.
type Failure struct {
	Code    FailureCode
	Message string
}
