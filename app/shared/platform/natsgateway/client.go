// Package natsgateway implements platform.Client over NATS request/reply
// against the gateway process that owns the chat connection.
package natsgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
	"github.com/nats-io/nats.go"
)

const defaultTimeout = 5 * time.Second

// Requester is the request half of a NATS connection.
type Requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

// Client sends platform calls to the gateway.
type Client struct {
	conn    Requester
	prefix  string
	timeout time.Duration
}

var _ platform.Client = (*Client)(nil)

// NewClient creates a Client. Subjects are "<prefix>.<call>"; timeout bounds
// calls whose context has no deadline.
func NewClient(conn Requester, prefix string, timeout time.Duration) *Client {
	if prefix == "" {
		prefix = "gateway"
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{conn: conn, prefix: prefix, timeout: timeout}
}

// GatewayError is an error code the gateway returned that maps to no sentinel.
type GatewayError struct {
	Subject string
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %s: %s", e.Subject, e.Code, e.Message)
}

func sentinelFor(code string) error {
	switch code {
	case CodeRoleNotHeld:
		return platform.ErrRoleNotHeld
	case CodeMemberNotFound:
		return platform.ErrMemberNotFound
	case CodeRoleNotFound:
		return platform.ErrRoleNotFound
	case CodeChannelNotFound:
		return platform.ErrChannelNotFound
	case CodeMessageNotFound:
		return platform.ErrMessageNotFound
	default:
		return nil
	}
}

// call sends req and decodes the reply data into out when out is non-nil.
func (c *Client) call(ctx context.Context, subject string, req, out any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", subject, err)
	}
	full := c.prefix + "." + subject
	msg, err := c.conn.RequestWithContext(ctx, full, body)
	if err != nil {
		return fmt.Errorf("request %s: %w", full, err)
	}

	var reply Reply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return fmt.Errorf("decode %s reply: %w", full, err)
	}
	if !reply.OK {
		if reply.Error == nil {
			return &GatewayError{Subject: full, Code: "unknown", Message: "call failed without error"}
		}
		if sentinel := sentinelFor(reply.Error.Code); sentinel != nil {
			return fmt.Errorf("%s: %w", full, sentinel)
		}
		return &GatewayError{Subject: full, Code: reply.Error.Code, Message: reply.Error.Message}
	}
	if out != nil && len(reply.Data) > 0 {
		if err := json.Unmarshal(reply.Data, out); err != nil {
			return fmt.Errorf("decode %s data: %w", full, err)
		}
	}
	return nil
}

func (c *Client) ListRoles(ctx context.Context, userID platform.UserID) ([]platform.RoleHandle, error) {
	var out listRolesReply
	if err := c.call(ctx, SubjectListRoles, roleRequest{UserID: userID}, &out); err != nil {
		return nil, err
	}
	return out.Roles, nil
}

func (c *Client) AddRole(ctx context.Context, userID platform.UserID, role platform.RoleHandle) error {
	return c.call(ctx, SubjectAddRole, roleRequest{UserID: userID, Role: role}, nil)
}

func (c *Client) RemoveRole(ctx context.Context, userID platform.UserID, role platform.RoleHandle) error {
	return c.call(ctx, SubjectRemoveRole, roleRequest{UserID: userID, Role: role}, nil)
}

func (c *Client) SendMessage(ctx context.Context, channelID platform.ChannelID, msg platform.OutgoingMessage) (platform.MessageID, error) {
	var out messageReply
	if err := c.call(ctx, SubjectSendMessage, messageRequest{ChannelID: channelID, Message: msg}, &out); err != nil {
		return "", err
	}
	return out.MessageID, nil
}

func (c *Client) UpdateMessage(ctx context.Context, channelID platform.ChannelID, messageID platform.MessageID, msg platform.OutgoingMessage) error {
	return c.call(ctx, SubjectUpdate, messageRequest{ChannelID: channelID, MessageID: messageID, Message: msg}, nil)
}

func (c *Client) SendDirectMessage(ctx context.Context, userID platform.UserID, text string) error {
	return c.call(ctx, SubjectSendDM, dmRequest{UserID: userID, Text: text}, nil)
}

func (c *Client) Respond(ctx context.Context, ref platform.InteractionRef, resp platform.InteractionResponse) error {
	return c.call(ctx, SubjectRespond, respondRequest{Ref: ref, Response: resp}, nil)
}

func (c *Client) OpenModal(ctx context.Context, ref platform.InteractionRef, modal platform.Modal) error {
	return c.call(ctx, SubjectOpenModal, modalRequest{Ref: ref, Modal: modal}, nil)
}
