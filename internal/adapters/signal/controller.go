package signal

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Rehearsal/internal/app"
	"github.com/dkeye/Rehearsal/internal/core"
)

// Options are the transport knobs the controller needs from config.
type Options struct {
	ReadLimit  int64
	SendBuffer int
	WriteWait  time.Duration
	MsgRate    float64
	MsgBurst   int
}

func DefaultOptions() Options {
	return Options{
		ReadLimit:  32768,
		SendBuffer: 64,
		WriteWait:  5 * time.Second,
		MsgRate:    50,
		MsgBurst:   100,
	}
}

// Controller owns the websocket signaling endpoint: it upgrades
// connections, runs their pumps and routes every inbound envelope.
type Controller struct {
	Coord  *app.Coordinator
	Policy app.Policy
	Opts   Options
}

func NewController(coord *app.Coordinator, policy app.Policy, opts Options) *Controller {
	if policy == nil {
		policy = app.DropPolicy{}
	}
	return &Controller{Coord: coord, Policy: policy, Opts: opts}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and services the connection until
// it closes. Membership cleanup is driven by the read pump exiting.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	// Every socket gets its own session id. The client token is shared
	// by all tabs of one browser and only ties log lines together.
	sid := core.SessionID(uuid.NewString())
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("ct", c.GetString("client_token")).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.Opts.ReadLimit)

	conn := newWSSignalConn(ws, ctl.Opts.SendBuffer)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Coord.Registry.Bind(sid, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}

// applyPolicy reacts to recipients whose buffers were full during a
// broadcast. The default policy drops the frame and moves on.
func (ctl *Controller) applyPolicy(room core.RoomService, res core.PublishResult) {
	for _, uid := range res.Dropped {
		switch ctl.Policy.OnBackpressure(room, uid) {
		case app.KickMember:
			if ms, ok := room.Member(uid); ok {
				ms.Signal().Close()
			}
		case app.DropFrame, app.NoAction:
			log.Warn().Str("module", "signal").Str("user", string(uid)).Msg("frame dropped on backpressure")
		}
	}
}
