package eventbus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nats-io/nkeys"
)

func writeSeed(t *testing.T, kp nkeys.KeyPair) string {
	t.Helper()
	seed, err := kp.Seed()
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "user.nk")
	if err := os.WriteFile(path, append(seed, '\n'), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestConnectOptions(t *testing.T) {
	user, err := nkeys.CreateUser()
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	account, err := nkeys.CreateAccount()
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	tests := []struct {
		name    string
		auth    Auth
		want    int
		wantErr bool
	}{
		{name: "none", auth: Auth{}, want: 0},
		{name: "token", auth: Auth{Token: "s3cret"}, want: 1},
		{name: "creds", auth: Auth{CredsFile: "/etc/bot.creds"}, want: 1},
		{name: "user nkey", auth: Auth{NKeySeedFile: writeSeed(t, user)}, want: 1},
		{name: "account nkey rejected", auth: Auth{NKeySeedFile: writeSeed(t, account)}, wantErr: true},
		{name: "missing seed file", auth: Auth{NKeySeedFile: filepath.Join(t.TempDir(), "nope")}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ConnectOptions(tt.auth)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ConnectOptions: %v", err)
			}
			if len(opts) != tt.want {
				t.Errorf("expected %d options, got %d", tt.want, len(opts))
			}
		})
	}
}
