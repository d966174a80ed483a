// Package app wires the sealroom dependency graph for the CLI: stores,
// crypto provider, room-key manager, cipher and sync protocol.
package app

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"sealroom/internal/crypto"
	"sealroom/internal/domain"
	"sealroom/internal/message"
	"sealroom/internal/relay"
	"sealroom/internal/roomkey"
	"sealroom/internal/services/identity"
	"sealroom/internal/store"
	"sealroom/internal/syncproto"
)

// App is the assembled dependency graph.
type App struct {
	Log      zerolog.Logger
	Identity *identity.Service
	Self     domain.IdentityKeyPair
	Rooms    *roomkey.Manager
	Cipher   *message.Cipher
	Sync     *syncproto.Protocol
	Relay    *relay.Client

	keys *store.BoltStore
}

// Build constructs the full graph. The passphrase unlocks (or on first run
// creates) both the identity file and the room-key database; handlers
// receive decrypted traffic routed by the sync protocol.
func Build(cfg Config, passphrase string, log zerolog.Logger, handlers syncproto.Handlers) (*App, error) {
	if cfg.UserID == "" {
		return nil, fmt.Errorf("user_id not configured")
	}
	if cfg.RelayURL == "" {
		return nil, fmt.Errorf("relay_url not configured")
	}

	provider, err := crypto.NewProvider()
	if err != nil {
		return nil, err
	}

	idsvc := identity.New(provider, store.NewFileStore(cfg.DataDir))
	pair, _, err := idsvc.Ensure(passphrase)
	if err != nil {
		return nil, err
	}

	keys, err := store.OpenBolt(filepath.Join(cfg.DataDir, "roomkeys.db"), passphrase)
	if err != nil {
		return nil, err
	}

	rc := relay.New(cfg.RelayURL)
	rooms := roomkey.NewManager(provider, keys, rc, domain.UserID(cfg.UserID), pair)
	cipher := message.New(provider, rooms)
	sync := syncproto.New(log, cipher, rooms, rc, rc, handlers)

	return &App{
		Log:      log,
		Identity: idsvc,
		Self:     pair,
		Rooms:    rooms,
		Cipher:   cipher,
		Sync:     sync,
		Relay:    rc,
		keys:     keys,
	}, nil
}

// Close releases the room-key database.
func (a *App) Close() error { return a.keys.Close() }
