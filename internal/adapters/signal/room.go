package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Rehearsal/internal/app"
	"github.com/dkeye/Rehearsal/internal/core"
	"github.com/dkeye/Rehearsal/internal/domain"
	"github.com/dkeye/Rehearsal/pkg/protocol"
)

func (ctl *Controller) handleJoin(sid core.SessionID, c core.SignalConnection, env *protocol.Envelope) {
	if err := domain.ValidRoomID(env.RoomID); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("join rejected")
		return
	}
	user, err := domain.NewUser(env.UserID, env.Nickname)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("join rejected")
		return
	}

	roomID := domain.RoomID(env.RoomID)
	ms := core.NewMemberSession(user, c)
	prev, displaced := ctl.Coord.Join(sid, roomID, ms)
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", env.RoomID).Str("user", env.UserID).Bool("displaced", displaced).Msg("join")

	// A rejoin under a different room leaves the old one first.
	if prev != nil && prev.Remaining > 0 {
		ctl.notifyLeft(*prev)
	}

	room, ok := ctl.Coord.Directory.Get(roomID)
	if !ok {
		return
	}

	roster := room.MembersSnapshot()
	users := make([]protocol.RoomUser, 0, len(roster))
	for _, m := range roster {
		users = append(users, protocol.RoomUser{UserID: string(m.UserID), Nickname: m.Nickname})
	}
	ctl.sendJSON(c, protocol.RoomUsers{
		Type:   protocol.TypeRoomUsers,
		RoomID: env.RoomID,
		Users:  users,
	})

	ctl.broadcast(room, protocol.UserJoined{
		Type:     protocol.TypeUserJoined,
		RoomID:   env.RoomID,
		UserID:   string(user.ID),
		Nickname: user.Nickname,
	}, user.ID)
}

// handleClose runs after the read pump exits; it is the only trigger
// for leave. Connections that never joined, or whose slot was taken
// over by a rejoin, produce no announcement.
func (ctl *Controller) handleClose(sid core.SessionID) {
	dep, ok := ctl.Coord.Leave(sid)
	if !ok {
		return
	}
	if dep.Remaining > 0 {
		ctl.notifyLeft(dep)
	}
}

func (ctl *Controller) notifyLeft(dep app.Departure) {
	room, ok := ctl.Coord.Directory.Get(dep.RoomID)
	if !ok {
		return
	}
	ctl.broadcast(room, protocol.UserLeft{
		Type:   protocol.TypeUserLeft,
		RoomID: string(dep.RoomID),
		UserID: string(dep.UserID),
	}, "")
}
