// Package client is a Go client for the Rehearsal signaling server,
// used by bots, load tools and integration tests. It mirrors the
// browser client's protocol behavior: join a room, exchange opaque
// negotiation payloads, share chat/metronome/recording state and
// measure latency.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/ksuid"

	"github.com/dkeye/Rehearsal/internal/domain"
	"github.com/dkeye/Rehearsal/pkg/protocol"
)

// Config holds connection parameters. UserID defaults to a fresh ksuid,
// matching the browser client's self-generated identity.
type Config struct {
	ServerURL string // e.g. ws://localhost:3000/api/ws/signal
	RoomID    string
	UserID    string
	Nickname  string
	UserAgent string
}

// EventHandler receives server events. Implementations must be fast;
// callbacks run on the read loop goroutine.
type EventHandler interface {
	OnConnected()
	OnDisconnected()
	OnRoomUsers(users []protocol.RoomUser)
	OnUserJoined(userID, nickname string)
	OnUserLeft(userID string)
	OnSignal(fromUserID string, data json.RawMessage)
	OnChat(userID, text string, timestamp int64)
	OnMetronome(m protocol.Metronome)
	OnRecordingState(s protocol.RecordingState)
	OnLatency(oneWayMs float64, stats domain.LatencyStats)
}

// DefaultEventHandler logs every event and is meant to be embedded.
type DefaultEventHandler struct{}

func (DefaultEventHandler) OnConnected()    { log.Info().Str("module", "client").Msg("connected") }
func (DefaultEventHandler) OnDisconnected() { log.Info().Str("module", "client").Msg("disconnected") }
func (DefaultEventHandler) OnRoomUsers(users []protocol.RoomUser) {
	log.Info().Str("module", "client").Int("count", len(users)).Msg("room roster")
}
func (DefaultEventHandler) OnUserJoined(userID, nickname string) {
	log.Info().Str("module", "client").Str("user", userID).Str("nickname", nickname).Msg("user joined")
}
func (DefaultEventHandler) OnUserLeft(userID string) {
	log.Info().Str("module", "client").Str("user", userID).Msg("user left")
}
func (DefaultEventHandler) OnSignal(fromUserID string, data json.RawMessage) {
	log.Info().Str("module", "client").Str("from", fromUserID).Int("bytes", len(data)).Msg("signal")
}
func (DefaultEventHandler) OnChat(userID, text string, timestamp int64) {
	log.Info().Str("module", "client").Str("user", userID).Str("text", text).Msg("chat")
}
func (DefaultEventHandler) OnMetronome(m protocol.Metronome) {
	log.Info().Str("module", "client").Bool("running", m.Running).Int("bpm", m.BPM).Msg("metronome")
}
func (DefaultEventHandler) OnRecordingState(s protocol.RecordingState) {
	log.Info().Str("module", "client").Str("state", s.State).Str("recorder", s.RecorderID).Msg("recording state")
}
func (DefaultEventHandler) OnLatency(oneWayMs float64, stats domain.LatencyStats) {
	log.Debug().Str("module", "client").Float64("one_way_ms", oneWayMs).Msg("latency sample")
}

// Client is safe for concurrent sends; the read loop runs in Listen.
type Client struct {
	config  Config
	handler EventHandler

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool

	latency domain.LatencyWindow
	mirror  *Mirror

	now func() time.Time
}

func New(config Config) *Client {
	if config.UserID == "" {
		config.UserID = ksuid.New().String()
	}
	if config.Nickname == "" {
		config.Nickname = protocol.DefaultNickname
	}
	if config.UserAgent == "" {
		config.UserAgent = "rehearsal-client/1.0"
	}
	return &Client{
		config:  config,
		handler: DefaultEventHandler{},
		mirror:  NewMirror(domain.UserID(config.UserID)),
		now:     time.Now,
	}
}

func (c *Client) SetEventHandler(h EventHandler) { c.handler = h }
func (c *Client) UserID() string                 { return c.config.UserID }

// Session returns the mirrored recording session state machine.
func (c *Client) Session() *Mirror { return c.mirror }

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.config.ServerURL, &websocket.DialOptions{
		HTTPHeader: map[string][]string{"User-Agent": {c.config.UserAgent}},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.handler.OnConnected()
	return nil
}

func (c *Client) Disconnect() error {
	c.mu.Lock()
	conn := c.conn
	c.connected = false
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	err := conn.Close(websocket.StatusNormalClosure, "client disconnect")
	c.handler.OnDisconnected()
	return err
}

// Join announces this client's identity to its configured room.
func (c *Client) Join(ctx context.Context) error {
	return c.send(ctx, protocol.Envelope{
		Type:     protocol.TypeJoin,
		RoomID:   c.config.RoomID,
		UserID:   c.config.UserID,
		Nickname: c.config.Nickname,
	})
}

// SendSignal relays an opaque negotiation payload to one room member.
func (c *Client) SendSignal(ctx context.Context, targetUserID string, data json.RawMessage) error {
	return c.send(ctx, protocol.Envelope{
		Type:         protocol.TypeSignal,
		RoomID:       c.config.RoomID,
		TargetUserID: targetUserID,
		FromUserID:   c.config.UserID,
		Data:         data,
	})
}

func (c *Client) SendChat(ctx context.Context, text string) error {
	return c.send(ctx, protocol.Envelope{
		Type:      protocol.TypeChat,
		RoomID:    c.config.RoomID,
		UserID:    c.config.UserID,
		Text:      text,
		Timestamp: c.now().UnixMilli(),
	})
}

// SendMetronome shares transport state with the rest of the room. The
// local metronome is expected to already run; the broadcast only
// informs the others.
func (c *Client) SendMetronome(ctx context.Context, running bool, bpm int, timeSignature string, startTime int64) error {
	return c.send(ctx, protocol.Envelope{
		Type:          protocol.TypeMetronome,
		RoomID:        c.config.RoomID,
		Running:       running,
		BPM:           bpm,
		TimeSignature: timeSignature,
		StartTime:     startTime,
	})
}

// Ping sends one latency probe; the answer arrives via OnLatency.
func (c *Client) Ping(ctx context.Context) error {
	return c.send(ctx, protocol.Envelope{
		Type:       protocol.TypePing,
		ClientTime: c.now().UnixMilli(),
	})
}

// StartLatencyProbe pings on an interval until ctx is done.
func (c *Client) StartLatencyProbe(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.Ping(ctx); err != nil {
					return
				}
			}
		}
	}()
}

// LatencyStats summarizes the bounded sample window.
func (c *Client) LatencyStats() (domain.LatencyStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latency.Stats()
}

// Listen reads server messages until ctx is done or the socket fails.
func (c *Client) Listen(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msgType, data, err := c.conn.Read(ctx)
			if err != nil {
				c.mu.Lock()
				c.connected = false
				c.mu.Unlock()
				return fmt.Errorf("read error: %w", err)
			}
			if msgType != websocket.MessageText {
				continue
			}
			var env protocol.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				log.Warn().Err(err).Str("module", "client").Msg("unmarshal server message")
				continue
			}
			c.handleServerMessage(&env, data)
		}
	}
}

func (c *Client) handleServerMessage(env *protocol.Envelope, raw []byte) {
	switch env.Type {
	case protocol.TypeRoomUsers:
		var msg protocol.RoomUsers
		if err := json.Unmarshal(raw, &msg); err == nil {
			c.handler.OnRoomUsers(msg.Users)
		}
	case protocol.TypeUserJoined:
		c.handler.OnUserJoined(env.UserID, env.Nickname)
	case protocol.TypeUserLeft:
		c.handler.OnUserLeft(env.UserID)
	case protocol.TypeSignal:
		c.handler.OnSignal(env.FromUserID, env.Data)
	case protocol.TypeChat:
		c.handler.OnChat(env.UserID, env.Text, env.Timestamp)
	case protocol.TypeMetronome:
		c.handler.OnMetronome(protocol.Metronome{
			Type:          env.Type,
			RoomID:        env.RoomID,
			Running:       env.Running,
			BPM:           env.BPM,
			TimeSignature: env.TimeSignature,
			StartTime:     env.StartTime,
		})
	case protocol.TypeRecordingState:
		s := protocol.RecordingState{
			Type:       env.Type,
			RoomID:     env.RoomID,
			State:      env.State,
			RecorderID: env.RecorderID,
			Timestamp:  env.Timestamp,
		}
		c.mirror.Apply(domain.Session{
			State:      domain.RecordingState(s.State),
			RecorderID: domain.UserID(s.RecorderID),
			Timestamp:  s.Timestamp,
		})
		c.handler.OnRecordingState(s)
	case protocol.TypePong:
		c.handlePong(env)
	default:
		log.Debug().Str("module", "client").Str("type", env.Type).Msg("unhandled server message")
	}
}

func (c *Client) handlePong(env *protocol.Envelope) {
	rtt := c.now().UnixMilli() - env.ClientTime
	if rtt < 0 {
		return
	}
	// Halving assumes symmetric up/down latency; an approximation the
	// room UI accepts.
	oneWay := float64(rtt) / 2
	c.mu.Lock()
	c.latency.Add(oneWay)
	stats, _ := c.latency.Stats()
	c.mu.Unlock()
	c.handler.OnLatency(oneWay, stats)
}

func (c *Client) send(ctx context.Context, env protocol.Envelope) error {
	c.mu.Lock()
	conn, connected := c.conn, c.connected
	c.mu.Unlock()
	if !connected || conn == nil {
		return fmt.Errorf("client not connected")
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
