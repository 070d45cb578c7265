package client

import (
	"context"
	"errors"
	"sync"

	"github.com/dkeye/Rehearsal/internal/domain"
	"github.com/dkeye/Rehearsal/pkg/protocol"
)

var (
	ErrNotIdle     = errors.New("session is not idle")
	ErrNotRecorder = errors.New("not the current recorder")
	ErrWrongState  = errors.New("transition not allowed from current state")
)

// Mirror is the client-replicated recording session state machine.
// Every room member holds one; the server only relays transitions.
// Remote broadcasts are applied with a newest-timestamp-wins rule;
// local transitions must follow the session lifecycle and, past
// count-in, are reserved to the recorder.
type Mirror struct {
	mu   sync.Mutex
	self domain.UserID
	cur  domain.Session
}

func NewMirror(self domain.UserID) *Mirror {
	return &Mirror{self: self, cur: domain.IdleSession()}
}

func (m *Mirror) Current() domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur
}

// IsRecorder reports whether this client currently holds record
// privilege.
func (m *Mirror) IsRecorder() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur.RecorderID == m.self && m.cur.State != domain.StateIdle
}

// Apply accepts a broadcast from another member. A broadcast older
// than the applied one is stale and ignored; equal timestamps are
// last-arrival-wins (the protocol carries no tie-break).
func (m *Mirror) Apply(s domain.Session) bool {
	if !s.State.Valid() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Timestamp < m.cur.Timestamp {
		return false
	}
	m.cur = s
	return true
}

// BeginCountIn claims record privilege: idle -> count_in.
func (m *Mirror) BeginCountIn(now int64) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur.State != domain.StateIdle {
		return m.cur, ErrNotIdle
	}
	m.cur = domain.Session{State: domain.StateCountIn, RecorderID: m.self, Timestamp: now}
	return m.cur, nil
}

// FinishCountIn moves count_in -> recording, but only if the mirrored
// state is still our own count-in. A broadcast that changed the state
// mid-count-in wins and the capture must not start.
func (m *Mirror) FinishCountIn(now int64) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur.State != domain.StateCountIn || m.cur.RecorderID != m.self {
		return m.cur, ErrWrongState
	}
	m.cur = domain.Session{State: domain.StateRecording, RecorderID: m.self, Timestamp: now}
	return m.cur, nil
}

// StopRecording moves recording -> saving. Recorder only.
func (m *Mirror) StopRecording(now int64) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur.RecorderID != m.self {
		return m.cur, ErrNotRecorder
	}
	if !m.cur.State.CanTransition(domain.StateSaving) {
		return m.cur, ErrWrongState
	}
	m.cur = domain.Session{State: domain.StateSaving, RecorderID: m.self, Timestamp: now}
	return m.cur, nil
}

// FinishSaving releases the session: saving -> idle.
func (m *Mirror) FinishSaving(now int64) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur.RecorderID != m.self {
		return m.cur, ErrNotRecorder
	}
	if !m.cur.State.CanTransition(domain.StateIdle) {
		return m.cur, ErrWrongState
	}
	m.cur = domain.Session{State: domain.StateIdle, Timestamp: now}
	return m.cur, nil
}

// Recording transitions on the Client: each local transition is
// broadcast so the rest of the room mirrors it.

func (c *Client) BeginCountIn(ctx context.Context) error {
	s, err := c.mirror.BeginCountIn(c.now().UnixMilli())
	if err != nil {
		return err
	}
	return c.sendRecordingState(ctx, s)
}

func (c *Client) FinishCountIn(ctx context.Context) error {
	s, err := c.mirror.FinishCountIn(c.now().UnixMilli())
	if err != nil {
		return err
	}
	return c.sendRecordingState(ctx, s)
}

func (c *Client) StopRecording(ctx context.Context) error {
	s, err := c.mirror.StopRecording(c.now().UnixMilli())
	if err != nil {
		return err
	}
	return c.sendRecordingState(ctx, s)
}

func (c *Client) FinishSaving(ctx context.Context) error {
	s, err := c.mirror.FinishSaving(c.now().UnixMilli())
	if err != nil {
		return err
	}
	return c.sendRecordingState(ctx, s)
}

func (c *Client) sendRecordingState(ctx context.Context, s domain.Session) error {
	return c.send(ctx, protocol.Envelope{
		Type:       protocol.TypeRecordingState,
		RoomID:     c.config.RoomID,
		State:      string(s.State),
		RecorderID: string(s.RecorderID),
		Timestamp:  s.Timestamp,
	})
}
