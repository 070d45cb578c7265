package app

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Rehearsal/internal/core"
	"github.com/dkeye/Rehearsal/internal/domain"
)

// Coordinator ties the Connection Registry and the Room Directory
// together for the two membership mutations, join and leave. Broadcast
// fan-out stays in the transport adapter; this layer only mutates state
// and reports what happened so the adapter knows whom to notify.
type Coordinator struct {
	Registry  *Registry
	Directory *Directory
}

func NewCoordinator(reg *Registry, dir *Directory) *Coordinator {
	return &Coordinator{Registry: reg, Directory: dir}
}

// Departure describes a completed removal from a room.
type Departure struct {
	RoomID    domain.RoomID
	UserID    domain.UserID
	Remaining int
}

// Join registers ms in roomID, displacing any earlier session holding
// the same userId (the displaced socket is not closed; its late close
// no longer owns the slot). If the connection was already in another
// room it leaves that room first and the departure is returned so the
// old room can be told. A rejoin of the room it is already in replaces
// the slot silently and reports no departure.
func (c *Coordinator) Join(sid core.SessionID, roomID domain.RoomID, ms core.MemberSession) (prev *Departure, displaced bool) {
	if dep, ok := c.leave(sid); ok && dep.RoomID != roomID {
		prev = &dep
	}
	room := c.Directory.GetOrCreate(roomID)
	displaced = room.AddMember(ms)
	c.Registry.SetMembership(sid, roomID, ms)
	return prev, displaced
}

// Leave handles connection close. It is a no-op for connections that
// never joined, and for superseded connections whose slot was taken
// over by a rejoin.
func (c *Coordinator) Leave(sid core.SessionID) (Departure, bool) {
	dep, ok := c.leave(sid)
	c.Registry.Unbind(sid)
	return dep, ok
}

func (c *Coordinator) leave(sid core.SessionID) (Departure, bool) {
	roomID, ms, ok := c.Registry.Membership(sid)
	if !ok {
		return Departure{}, false
	}
	uid := ms.User().ID
	room, ok := c.Directory.Get(roomID)
	if !ok {
		return Departure{}, false
	}
	if !room.RemoveMemberIfOwner(uid, ms) {
		// Slot superseded by a rejoin; nothing to announce.
		log.Info().Str("module", "app.coordinator").Str("sid", string(sid)).Str("user", string(uid)).Msg("stale leave ignored")
		return Departure{}, false
	}
	remaining := room.MemberCount()
	if remaining == 0 {
		c.Directory.DropIfEmpty(roomID)
	}
	return Departure{RoomID: roomID, UserID: uid, Remaining: remaining}, true
}
