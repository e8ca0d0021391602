package natsgateway

import (
	"encoding/json"

	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
)

// Request subjects served by the chat gateway, relative to the prefix.
const (
	SubjectListRoles   = "roles.list"
	SubjectAddRole     = "roles.add"
	SubjectRemoveRole  = "roles.remove"
	SubjectSendMessage = "messages.send"
	SubjectUpdate      = "messages.update"
	SubjectSendDM      = "messages.dm"
	SubjectRespond     = "interactions.respond"
	SubjectOpenModal   = "interactions.modal"
)

// Error codes the gateway returns for missing entities.
const (
	CodeRoleNotHeld     = "role_not_held"
	CodeMemberNotFound  = "member_not_found"
	CodeRoleNotFound    = "role_not_found"
	CodeChannelNotFound = "channel_not_found"
	CodeMessageNotFound = "message_not_found"
)

type roleRequest struct {
	UserID platform.UserID     `json:"user_id"`
	Role   platform.RoleHandle `json:"role,omitempty"`
}

type listRolesReply struct {
	Roles []platform.RoleHandle `json:"roles"`
}

type messageRequest struct {
	ChannelID platform.ChannelID       `json:"channel_id"`
	MessageID platform.MessageID       `json:"message_id,omitempty"`
	Message   platform.OutgoingMessage `json:"message"`
}

type messageReply struct {
	MessageID platform.MessageID `json:"message_id"`
}

type dmRequest struct {
	UserID platform.UserID `json:"user_id"`
	Text   string          `json:"text"`
}

type respondRequest struct {
	Ref      platform.InteractionRef      `json:"ref"`
	Response platform.InteractionResponse `json:"response"`
}

type modalRequest struct {
	Ref   platform.InteractionRef `json:"ref"`
	Modal platform.Modal          `json:"modal"`
}

// Reply is the envelope of every gateway answer.
type Reply struct {
	OK    bool            `json:"ok"`
	Error *ReplyError     `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ReplyError is a failed gateway call.
type ReplyError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
