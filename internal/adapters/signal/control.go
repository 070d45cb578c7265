package signal

import (
	"time"

	"github.com/dkeye/Rehearsal/internal/core"
	"github.com/dkeye/Rehearsal/pkg/protocol"
)

// handlePing echoes the client clock next to the server clock. No room
// lookup is involved; the probe works before join.
func (ctl *Controller) handlePing(c core.SignalConnection, env *protocol.Envelope) {
	ctl.sendJSON(c, protocol.Pong{
		Type:       protocol.TypePong,
		ClientTime: env.ClientTime,
		ServerTime: time.Now().UnixMilli(),
	})
}
