package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Rehearsal/internal/core"
	"github.com/dkeye/Rehearsal/internal/domain"
)

type connEntry struct {
	RoomID  domain.RoomID
	Session core.MemberSession
	Cancel  context.CancelFunc
}

// Registry is the Connection Registry: it maps each live transport
// connection to the identity it assumed on join. Before join the entry
// holds no room or session.
type Registry struct {
	mu    sync.RWMutex
	conns map[core.SessionID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[core.SessionID]*connEntry)}
}

func (r *Registry) Bind(sid core.SessionID, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[sid] = &connEntry{Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound connection")
}

// SetMembership records the identity a connection assumed on join.
func (r *Registry) SetMembership(sid core.SessionID, roomID domain.RoomID, ms core.MemberSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[sid]; ok {
		e.RoomID = roomID
		e.Session = ms
		log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(roomID)).Str("user", string(ms.User().ID)).Msg("joined")
	}
}

// Membership returns the joined identity, if any.
func (r *Registry) Membership(sid core.SessionID) (domain.RoomID, core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[sid]
	if !ok || e.Session == nil {
		return "", nil, false
	}
	return e.RoomID, e.Session, true
}

// Unbind drops the entry and cancels the connection's context so both
// pumps are released with it.
func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	e, ok := r.conns[sid]
	delete(r.conns, sid)
	r.mu.Unlock()
	if ok && e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbound connection")
}

// Count reports live connections, joined or not.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
