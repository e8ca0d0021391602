package natsgateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
	"github.com/google/go-cmp/cmp"
	"github.com/nats-io/nats.go"
)

type fakeRequester struct {
	subjects []string
	bodies   [][]byte
	reply    func(subj string, data []byte) ([]byte, error)
	deadline bool
}

func (f *fakeRequester) RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error) {
	_, f.deadline = ctx.Deadline()
	f.subjects = append(f.subjects, subj)
	f.bodies = append(f.bodies, data)
	out, err := f.reply(subj, data)
	if err != nil {
		return nil, err
	}
	return &nats.Msg{Subject: subj, Data: out}, nil
}

func okReply(t *testing.T, data any) []byte {
	t.Helper()
	r := Reply{OK: true}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r.Data = raw
	}
	b, _ := json.Marshal(r)
	return b
}

func errReply(code string) []byte {
	b, _ := json.Marshal(Reply{Error: &ReplyError{Code: code, Message: "nope"}})
	return b
}

func TestClient_ListRoles(t *testing.T) {
	req := &fakeRequester{reply: func(string, []byte) ([]byte, error) {
		return okReply(t, listRolesReply{Roles: []platform.RoleHandle{"iron", "member"}}), nil
	}}
	c := NewClient(req, "gw", time.Second)

	roles, err := c.ListRoles(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListRoles: %v", err)
	}
	if diff := cmp.Diff([]platform.RoleHandle{"iron", "member"}, roles); diff != "" {
		t.Errorf("roles mismatch (-want +got):\n%s", diff)
	}
	if req.subjects[0] != "gw.roles.list" {
		t.Errorf("unexpected subject %q", req.subjects[0])
	}
	if !req.deadline {
		t.Errorf("expected a default deadline on the request context")
	}
	if string(req.bodies[0]) != `{"user_id":"u1"}` {
		t.Errorf("unexpected body %s", req.bodies[0])
	}
}

func TestClient_SendMessageReturnsID(t *testing.T) {
	req := &fakeRequester{reply: func(string, []byte) ([]byte, error) {
		return okReply(t, messageReply{MessageID: "123"}), nil
	}}
	c := NewClient(req, "", 0)

	id, err := c.SendMessage(context.Background(), "general", platform.OutgoingMessage{Content: "hi"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if id != "123" || req.subjects[0] != "gateway.messages.send" {
		t.Errorf("got id %q subject %q", id, req.subjects[0])
	}
}

func TestClient_MapsErrorCodes(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{CodeRoleNotHeld, platform.ErrRoleNotHeld},
		{CodeMemberNotFound, platform.ErrMemberNotFound},
		{CodeRoleNotFound, platform.ErrRoleNotFound},
		{CodeChannelNotFound, platform.ErrChannelNotFound},
		{CodeMessageNotFound, platform.ErrMessageNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			req := &fakeRequester{reply: func(string, []byte) ([]byte, error) { return errReply(tt.code), nil }}
			err := NewClient(req, "gw", time.Second).RemoveRole(context.Background(), "u1", "iron")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestClient_UnknownCodeIsGatewayError(t *testing.T) {
	req := &fakeRequester{reply: func(string, []byte) ([]byte, error) { return errReply("rate_limited"), nil }}
	err := NewClient(req, "gw", time.Second).AddRole(context.Background(), "u1", "iron")

	var gwErr *GatewayError
	if !errors.As(err, &gwErr) || gwErr.Code != "rate_limited" {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if platform.IsMissingEntity(err) {
		t.Errorf("unknown code must not look like a missing entity")
	}
}

func TestClient_TransportError(t *testing.T) {
	req := &fakeRequester{reply: func(string, []byte) ([]byte, error) { return nil, nats.ErrNoResponders }}
	err := NewClient(req, "gw", time.Second).SendDirectMessage(context.Background(), "u1", "hi")
	if !errors.Is(err, nats.ErrNoResponders) {
		t.Fatalf("expected transport error, got %v", err)
	}
}
