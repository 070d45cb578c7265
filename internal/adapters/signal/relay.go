package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Rehearsal/internal/core"
	"github.com/dkeye/Rehearsal/internal/domain"
	"github.com/dkeye/Rehearsal/pkg/protocol"
)

// handleRelay forwards a peer negotiation payload to exactly one room
// member. The payload is opaque; only its top-level discriminator
// (offer/answer/candidate) is read, and only for logging. A missing
// room or target is a silent no-op.
func (ctl *Controller) handleRelay(sid core.SessionID, env *protocol.Envelope) {
	room, ok := ctl.Coord.Directory.Get(domain.RoomID(env.RoomID))
	if !ok {
		return
	}
	target, ok := room.Member(domain.UserID(env.TargetUserID))
	if !ok {
		return
	}

	log.Debug().
		Str("module", "signal").
		Str("from", env.FromUserID).
		Str("to", env.TargetUserID).
		Str("kind", payloadKind(env.Data)).
		Msg("relay")

	out, err := json.Marshal(protocol.Signal{
		Type:       protocol.TypeSignal,
		FromUserID: env.FromUserID,
		Data:       env.Data,
	})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("relay marshal")
		return
	}
	if err := target.Signal().TrySend(core.Frame(out)); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("to", env.TargetUserID).Msg("relay dropped")
	}
}

func payloadKind(data json.RawMessage) string {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil || head.Type == "" {
		return "unknown"
	}
	return head.Type
}
