package natsgateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	tcnats "github.com/testcontainers/testcontainers-go/modules/nats"
)

func TestClient_AgainstNATS(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcnats.Run(ctx, "nats:2.10-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	conn, err := nats.Connect(url)
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	// A stand-in gateway: u1 holds "iron", everyone else is unknown.
	_, err = conn.Subscribe("gw.roles.list", func(m *nats.Msg) {
		var req roleRequest
		_ = json.Unmarshal(m.Data, &req)
		var reply Reply
		if req.UserID == "u1" {
			data, _ := json.Marshal(listRolesReply{Roles: []platform.RoleHandle{"iron"}})
			reply = Reply{OK: true, Data: data}
		} else {
			reply = Reply{Error: &ReplyError{Code: CodeMemberNotFound}}
		}
		body, _ := json.Marshal(reply)
		_ = m.Respond(body)
	})
	require.NoError(t, err)
	require.NoError(t, conn.Flush())

	client := NewClient(conn, "gw", 5*time.Second)

	roles, err := client.ListRoles(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []platform.RoleHandle{"iron"}, roles)

	_, err = client.ListRoles(ctx, "ghost")
	require.True(t, errors.Is(err, platform.ErrMemberNotFound), "got %v", err)

	err = client.AddRole(ctx, "u1", "steel")
	require.Error(t, err, "no responder for roles.add")
}
