package eventbus

import (
	"fmt"
	"os"
	"strings"

	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"
)

// Auth selects how to authenticate to NATS. At most one of the fields
// should be set; CredsFile wins over NKeySeedFile.
type Auth struct {
	// CredsFile is a decentralized-auth .creds file (JWT plus seed).
	CredsFile string
	// NKeySeedFile holds a user nkey seed ("SU...").
	NKeySeedFile string
	Token        string
}

// ConnectOptions turns Auth into nats.go options.
func ConnectOptions(a Auth) ([]nc.Option, error) {
	switch {
	case a.CredsFile != "":
		return []nc.Option{nc.UserCredentials(a.CredsFile)}, nil
	case a.NKeySeedFile != "":
		opt, err := nkeyOption(a.NKeySeedFile)
		if err != nil {
			return nil, err
		}
		return []nc.Option{opt}, nil
	case a.Token != "":
		return []nc.Option{nc.Token(a.Token)}, nil
	default:
		return nil, nil
	}
}

func nkeyOption(path string) (nc.Option, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read nkey seed: %w", err)
	}
	kp, err := nkeys.FromSeed([]byte(strings.TrimSpace(string(raw))))
	if err != nil {
		return nil, fmt.Errorf("parse nkey seed: %w", err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("nkey public key: %w", err)
	}
	if !nkeys.IsValidPublicUserKey(pub) {
		return nil, fmt.Errorf("nkey seed is not a user key")
	}
	return nc.Nkey(pub, kp.Sign), nil
}
