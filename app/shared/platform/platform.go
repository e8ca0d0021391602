// Package platform defines what the bot needs from the chat platform. The
// connection, gateway events and slash-command registration live in a separate
// gateway process; this package only names the calls the core makes back.
package platform

import (
	"context"
	"errors"
)

// UserID is the platform's stable member identifier (a Discord snowflake).
type UserID string

// ChannelID identifies a text channel.
type ChannelID string

// MessageID identifies a posted message.
type MessageID string

// RoleHandle is the platform's reference to a role.
type RoleHandle string

// Missing-entity outcomes. Callers treat these as races with external state.
var (
	ErrRoleNotHeld     = errors.New("member does not hold role")
	ErrMemberNotFound  = errors.New("member not found")
	ErrRoleNotFound    = errors.New("role not found")
	ErrChannelNotFound = errors.New("channel not found")
	ErrMessageNotFound = errors.New("message not found")
)

// IsMissingEntity reports whether err is one of the missing-entity sentinels.
func IsMissingEntity(err error) bool {
	return errors.Is(err, ErrMemberNotFound) ||
		errors.Is(err, ErrRoleNotFound) ||
		errors.Is(err, ErrChannelNotFound) ||
		errors.Is(err, ErrMessageNotFound)
}

// RoleClient mutates and reads member role assignments.
type RoleClient interface {
	ListRoles(ctx context.Context, userID UserID) ([]RoleHandle, error)
	AddRole(ctx context.Context, userID UserID, role RoleHandle) error
	RemoveRole(ctx context.Context, userID UserID, role RoleHandle) error
}

// Messenger posts and edits messages.
type Messenger interface {
	SendMessage(ctx context.Context, channelID ChannelID, msg OutgoingMessage) (MessageID, error)
	UpdateMessage(ctx context.Context, channelID ChannelID, messageID MessageID, msg OutgoingMessage) error
	SendDirectMessage(ctx context.Context, userID UserID, text string) error
}

// Interactions answers slash commands, button presses and modal submissions.
type Interactions interface {
	Respond(ctx context.Context, ref InteractionRef, resp InteractionResponse) error
	OpenModal(ctx context.Context, ref InteractionRef, modal Modal) error
}

// Client is everything the gateway offers.
type Client interface {
	RoleClient
	Messenger
	Interactions
}
