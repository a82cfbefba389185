// Package auth guards the front door: a fresh connection must present
// credentials in its first frame before it is bound to a session and
// allowed into an area.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/delvegame/delve/internal/game/session"
	"github.com/delvegame/delve/internal/net"
	"github.com/delvegame/delve/internal/protocol"
	"github.com/delvegame/delve/internal/storage/postgres"
)

const storeTimeout = 5 * time.Second

// AccountStore authenticates and registers accounts. The postgres account
// repository implements it.
type AccountStore interface {
	Create(ctx context.Context, username, password string) (postgres.Account, error)
	Authenticate(ctx context.Context, username, password string) (postgres.Account, error)
}

// CharacterStore loads and saves an account's persisted characters. The
// postgres character repository implements it.
type CharacterStore interface {
	ListByAccount(ctx context.Context, accountID int64) ([]postgres.CharacterRecord, error)
	// SaveStateByOwner addresses the character by account name and
	// character name, so characters created during the connection are
	// saved too.
	SaveStateByOwner(ctx context.Context, owner, name string, currentHP int32) error
}

// Gate owns the pre-session protocol. Its HandleConn method is the
// transport server's connection handler.
type Gate struct {
	logger     *zap.Logger
	accounts   AccountStore
	characters CharacterStore
	sessions   *session.Registry
	lobby      func() session.Area
	creator    func() session.Area
}

// NewGate creates a Gate. characters may be nil to disable persistence.
// lobby and creator resolve the landing areas: sessions that own at least
// one character land in the lobby, fresh ones in the creation area.
func NewGate(logger *zap.Logger, accounts AccountStore, characters CharacterStore, sessions *session.Registry, lobby, creator func() session.Area) *Gate {
	return &Gate{
		logger:     logger,
		accounts:   accounts,
		characters: characters,
		sessions:   sessions,
		lobby:      lobby,
		creator:    creator,
	}
}

// HandleConn runs the connection's read loop. It blocks until the
// connection closes.
func (g *Gate) HandleConn(c *net.Conn) {
	c.Start(&connState{gate: g})
}

// connState tracks one connection from handshake to logout. Until login
// succeeds every frame must be a credentials frame; afterwards frames are
// forwarded to the bound session.
type connState struct {
	gate *Gate

	mu      sync.Mutex
	session *session.Session
}

func (cs *connState) ReceivedMessage(c *net.Conn, msg []byte) {
	cs.mu.Lock()
	s := cs.session
	cs.mu.Unlock()
	if s != nil {
		s.ReceivedMessage(msg)
		return
	}
	cs.authenticate(c, msg)
}

func (cs *connState) Disconnected(c *net.Conn) {
	cs.mu.Lock()
	s := cs.session
	cs.session = nil
	cs.mu.Unlock()
	if s == nil {
		return
	}
	cs.saveCharacters(s)
	s.Disconnected()
}

func (cs *connState) authenticate(c *net.Conn, msg []byte) {
	g := cs.gate
	if len(msg) == 0 {
		return
	}

	name, password, err := protocol.DecodeCredentials(msg)
	if err != nil || name == "" || password == "" {
		c.Send(protocol.EncodeAuthFailed("malformed credentials"))
		c.Close()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	var acct postgres.Account
	switch protocol.Command(msg) {
	case protocol.CmdLogin:
		acct, err = g.accounts.Authenticate(ctx, name, password)
	case protocol.CmdRegister:
		acct, err = g.accounts.Create(ctx, name, password)
	default:
		c.Send(protocol.EncodeAuthFailed("authentication required"))
		c.Close()
		return
	}
	if err != nil {
		g.logger.Info("authentication rejected",
			zap.String("account", name),
			zap.Error(err),
		)
		c.Send(protocol.EncodeAuthFailed(rejectionReason(err)))
		c.Close()
		return
	}

	s := g.sessions.FindOrCreate(name)
	// Claiming the session and checking for an existing connection is one
	// atomic step; two racing logins for the same name cannot both pass.
	if !s.AttachConnection(c) {
		c.Send(protocol.EncodeAuthFailed("already connected"))
		c.Close()
		return
	}

	cs.loadCharacters(s, acct.ID)

	cs.mu.Lock()
	cs.session = s
	cs.mu.Unlock()

	c.Send(protocol.EncodeAuthOK(name))
	if len(s.CharacterManager().Characters()) > 0 {
		s.MoveToArea(g.lobby())
	} else {
		s.MoveToArea(g.creator())
	}
}

// loadCharacters pulls the account's persisted characters into the session
// manager. Characters already present from an earlier login stay as they
// are.
func (cs *connState) loadCharacters(s *session.Session, accountID int64) {
	g := cs.gate
	if g.characters == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	records, err := g.characters.ListByAccount(ctx, accountID)
	if err != nil {
		g.logger.Error("loading characters failed",
			zap.String("session", s.Name()),
			zap.Error(err),
		)
		return
	}
	for _, rec := range records {
		if _, err := s.CharacterManager().AddCharacter(int32(rec.ID), rec.Stats); err != nil {
			// Already loaded during a previous connection.
			continue
		}
	}
}

// saveCharacters writes current hit points back for every character on the
// session, including ones created during this connection.
func (cs *connState) saveCharacters(s *session.Session) {
	g := cs.gate
	if g.characters == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	for _, stats := range s.CharacterManager().Characters() {
		if err := g.characters.SaveStateByOwner(ctx, s.Name(), stats.Name, stats.HitPoints); err != nil {
			g.logger.Error("saving character failed",
				zap.String("session", s.Name()),
				zap.String("character", stats.Name),
				zap.Error(err),
			)
		}
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, postgres.ErrAccountNotFound),
		errors.Is(err, postgres.ErrInvalidCredentials):
		return "invalid credentials"
	case errors.Is(err, postgres.ErrAccountExists):
		return "name already taken"
	}
	return "authentication failed"
}
