package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Rehearsal/internal/core"
	"github.com/dkeye/Rehearsal/pkg/protocol"
)

func (ctl *Controller) writePump(ctx context.Context, c *wsSignalConn) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, sid core.SessionID, c *wsSignalConn) {
	limiter := newMessageLimiter(ctl.Opts.MsgRate, ctl.Opts.MsgBurst)
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		c.Close()
		ctl.handleClose(sid)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				}
				return
			}
			if !limiter.Allow() {
				log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("message rate exceeded, dropping")
				continue
			}
			ctl.route(sid, c, data)
		}
	}
}

// route classifies one inbound envelope and dispatches it. Malformed
// JSON and unknown types are logged and dropped; the connection stays
// alive either way.
func (ctl *Controller) route(sid core.SessionID, c core.SignalConnection, data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad json")
		return
	}

	switch env.Type {
	case protocol.TypeJoin:
		ctl.handleJoin(sid, c, &env)
	case protocol.TypeSignal:
		ctl.handleRelay(sid, &env)
	case protocol.TypeChat:
		ctl.handleChat(sid, &env)
	case protocol.TypeMetronome:
		ctl.handleMetronome(sid, &env)
	case protocol.TypeRecordingState:
		ctl.handleRecordingState(sid, &env)
	case protocol.TypePing:
		ctl.handlePing(c, &env)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *Controller) sendJSON(c core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
