package activityevents

import "github.com/Black-And-White-Club/activity-bot/app/shared/platform"

// MessageReceivedPayloadV1 is one chat message.
type MessageReceivedPayloadV1 struct {
	MessageID platform.MessageID `json:"message_id"`
	ChannelID platform.ChannelID `json:"channel_id"`
	AuthorID  platform.UserID    `json:"author_id"`
	IsBot     bool               `json:"is_bot"`
	Content   string             `json:"content"`
}

// MemberPayloadV1 identifies a member that joined or left.
type MemberPayloadV1 struct {
	UserID platform.UserID `json:"user_id"`
	IsBot  bool            `json:"is_bot"`
}

// MembersSyncPayloadV1 lists every non-bot member of the guild.
type MembersSyncPayloadV1 struct {
	UserIDs []platform.UserID `json:"user_ids"`
	// Prune removes tracked users missing from UserIDs.
	Prune bool `json:"prune"`
}

// InteractionKind tells commands, buttons and modal submits apart.
type InteractionKind string

const (
	InteractionCommand   InteractionKind = "command"
	InteractionComponent InteractionKind = "component"
	InteractionModal     InteractionKind = "modal"
)

// InteractionPayloadV1 is a user interaction with the bot.
type InteractionPayloadV1 struct {
	Ref       platform.InteractionRef `json:"ref"`
	Kind      InteractionKind         `json:"kind"`
	ChannelID platform.ChannelID      `json:"channel_id"`

	UserID   platform.UserID `json:"user_id"`
	UserName string          `json:"user_name"`
	IsAdmin  bool            `json:"is_admin"`
	IsOwner  bool            `json:"is_owner"`
	IsBot    bool            `json:"is_bot"`

	// Command is the slash command name; Options its arguments.
	Command string            `json:"command,omitempty"`
	Options map[string]string `json:"options,omitempty"`

	// CustomID names the pressed button or submitted modal.
	CustomID string `json:"custom_id,omitempty"`
	// Fields are the modal's text inputs keyed by input id.
	Fields map[string]string `json:"fields,omitempty"`

	// MessageID and Embed describe the message a button belongs to.
	MessageID platform.MessageID `json:"message_id,omitempty"`
	Embed     *platform.Embed    `json:"embed,omitempty"`
}

// RankChangedPayloadV1 announces a committed tier change.
type RankChangedPayloadV1 struct {
	UserID   platform.UserID `json:"user_id"`
	OldScore int64           `json:"old_score"`
	NewScore int64           `json:"new_score"`
	FromTier string          `json:"from_tier,omitempty"`
	ToTier   string          `json:"to_tier,omitempty"`
	Source   string          `json:"source"`
	RolesOK  bool            `json:"roles_ok"`
}

// ApplicationResolvedPayloadV1 records a reviewer's decision.
type ApplicationResolvedPayloadV1 struct {
	ApplicantID platform.UserID `json:"applicant_id"`
	ReviewerID  platform.UserID `json:"reviewer_id"`
	Accepted    bool            `json:"accepted"`
}
