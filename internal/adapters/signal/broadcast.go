package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Rehearsal/internal/core"
	"github.com/dkeye/Rehearsal/internal/domain"
	"github.com/dkeye/Rehearsal/pkg/protocol"
)

// broadcast marshals once and fans out; except == "" includes everyone.
func (ctl *Controller) broadcast(room core.RoomService, v any, except domain.UserID) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("broadcast marshal")
		return
	}
	res := room.Broadcast(b, except)
	ctl.applyPolicy(room, res)
}

// senderID resolves the joined identity of the sending connection, or
// "" if it never joined. Broadcast exclusions key off this, not off any
// field the sender can forge in the envelope.
func (ctl *Controller) senderID(sid core.SessionID) domain.UserID {
	if _, ms, ok := ctl.Coord.Registry.Membership(sid); ok {
		return ms.User().ID
	}
	return ""
}

// handleChat echoes to the whole room, sender included, so clients keep
// a single rendering path for chat.
func (ctl *Controller) handleChat(sid core.SessionID, env *protocol.Envelope) {
	room, ok := ctl.Coord.Directory.Get(domain.RoomID(env.RoomID))
	if !ok {
		return
	}
	ctl.broadcast(room, protocol.Chat{
		Type:      protocol.TypeChat,
		RoomID:    env.RoomID,
		UserID:    env.UserID,
		Text:      env.Text,
		Timestamp: env.Timestamp,
	}, "")
}

// handleMetronome relays transport state to everyone but the sender;
// the sender already applied it locally.
func (ctl *Controller) handleMetronome(sid core.SessionID, env *protocol.Envelope) {
	room, ok := ctl.Coord.Directory.Get(domain.RoomID(env.RoomID))
	if !ok {
		return
	}
	ctl.broadcast(room, protocol.Metronome{
		Type:          protocol.TypeMetronome,
		RoomID:        env.RoomID,
		Running:       env.Running,
		BPM:           env.BPM,
		TimeSignature: env.TimeSignature,
		StartTime:     env.StartTime,
	}, ctl.senderID(sid))
}

// handleRecordingState mirrors the shared session state machine to the
// rest of the room. The server does not arbitrate transitions.
func (ctl *Controller) handleRecordingState(sid core.SessionID, env *protocol.Envelope) {
	room, ok := ctl.Coord.Directory.Get(domain.RoomID(env.RoomID))
	if !ok {
		return
	}
	if !domain.RecordingState(env.State).Valid() {
		log.Warn().Str("module", "signal").Str("state", env.State).Msg("unknown recording state relayed")
	}
	ctl.broadcast(room, protocol.RecordingState{
		Type:       protocol.TypeRecordingState,
		RoomID:     env.RoomID,
		State:      env.State,
		RecorderID: env.RecorderID,
		Timestamp:  env.Timestamp,
	}, ctl.senderID(sid))
}
