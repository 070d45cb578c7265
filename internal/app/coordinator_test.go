package app

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Rehearsal/internal/core"
	"github.com/dkeye/Rehearsal/internal/domain"
)

type nopConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (c *nopConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *nopConn) Close() {}

func newCoordinator() *Coordinator {
	return NewCoordinator(NewRegistry(), NewDirectory())
}

func session(uid string) core.MemberSession {
	u, _ := domain.NewUser(uid, uid)
	return core.NewMemberSession(u, &nopConn{})
}

func TestCoordinator_JoinCreatesRoomLazily(t *testing.T) {
	c := newCoordinator()

	_, ok := c.Directory.Get("r1")
	assert.False(t, ok, "room must not exist before first join")

	c.Registry.Bind("sid1", nil)
	prev, displaced := c.Join("sid1", "r1", session("u1"))
	assert.Nil(t, prev)
	assert.False(t, displaced)

	room, ok := c.Directory.Get("r1")
	require.True(t, ok)
	assert.Equal(t, 1, room.MemberCount())
}

func TestCoordinator_LeaveRemovesEmptyRoom(t *testing.T) {
	c := newCoordinator()
	c.Registry.Bind("sid1", nil)
	c.Registry.Bind("sid2", nil)
	c.Join("sid1", "r1", session("u1"))
	c.Join("sid2", "r1", session("u2"))

	dep, ok := c.Leave("sid1")
	require.True(t, ok)
	assert.Equal(t, domain.UserID("u1"), dep.UserID)
	assert.Equal(t, 1, dep.Remaining)

	room, ok := c.Directory.Get("r1")
	require.True(t, ok, "room survives while members remain")
	assert.Equal(t, 1, room.MemberCount())

	dep, ok = c.Leave("sid2")
	require.True(t, ok)
	assert.Equal(t, 0, dep.Remaining)

	_, ok = c.Directory.Get("r1")
	assert.False(t, ok, "room gone after last member leaves")
}

func TestCoordinator_LeaveWithoutJoinIsNoop(t *testing.T) {
	c := newCoordinator()
	c.Registry.Bind("sid1", nil)

	_, ok := c.Leave("sid1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Registry.Count())
}

func TestCoordinator_DuplicateUserIDOverwrite(t *testing.T) {
	c := newCoordinator()
	c.Registry.Bind("old", nil)
	c.Registry.Bind("new", nil)

	c.Join("old", "r1", session("u1"))
	_, displaced := c.Join("new", "r1", session("u1"))
	assert.True(t, displaced)

	room, _ := c.Directory.Get("r1")
	assert.Equal(t, 1, room.MemberCount())

	// The displaced connection's close fires later; it no longer owns
	// the slot, so nothing is removed or announced.
	_, ok := c.Leave("old")
	assert.False(t, ok)
	room, stillThere := c.Directory.Get("r1")
	require.True(t, stillThere)
	assert.Equal(t, 1, room.MemberCount())

	dep, ok := c.Leave("new")
	require.True(t, ok)
	assert.Equal(t, domain.UserID("u1"), dep.UserID)
	_, stillThere = c.Directory.Get("r1")
	assert.False(t, stillThere)
}

func TestCoordinator_SameRoomRejoinReportsNoDeparture(t *testing.T) {
	c := newCoordinator()
	c.Registry.Bind("sid1", nil)
	c.Registry.Bind("sid2", nil)
	c.Join("sid2", "r1", session("u2"))
	c.Join("sid1", "r1", session("u1"))

	prev, displaced := c.Join("sid1", "r1", session("u1"))
	assert.Nil(t, prev, "same-room rejoin is silent")
	assert.False(t, displaced)

	room, ok := c.Directory.Get("r1")
	require.True(t, ok)
	assert.Equal(t, 2, room.MemberCount())
}

func TestRegistry_UnbindCancelsConnection(t *testing.T) {
	r := NewRegistry()
	cancelled := false
	r.Bind("sid1", func() { cancelled = true })
	require.Equal(t, 1, r.Count())

	r.Unbind("sid1")
	assert.True(t, cancelled, "connection context must be released")
	assert.Equal(t, 0, r.Count())

	// Unknown ids and nil cancels are no-ops.
	r.Unbind("ghost")
	r.Bind("sid2", nil)
	r.Unbind("sid2")
}

func TestCoordinator_RejoinMovesRooms(t *testing.T) {
	c := newCoordinator()
	c.Registry.Bind("sid1", nil)
	c.Registry.Bind("sid2", nil)
	c.Join("sid2", "r1", session("u2"))

	c.Join("sid1", "r1", session("u1"))
	prev, _ := c.Join("sid1", "r2", session("u1"))
	require.NotNil(t, prev)
	assert.Equal(t, domain.RoomID("r1"), prev.RoomID)
	assert.Equal(t, 1, prev.Remaining)

	r1, ok := c.Directory.Get("r1")
	require.True(t, ok)
	assert.Equal(t, 1, r1.MemberCount())
	r2, ok := c.Directory.Get("r2")
	require.True(t, ok)
	assert.Equal(t, 1, r2.MemberCount())
}

func TestDirectory_Stats(t *testing.T) {
	d := NewDirectory()
	d.GetOrCreate("r1").AddMember(session("u1"))
	d.GetOrCreate("r1").AddMember(session("u2"))
	d.GetOrCreate("r2").AddMember(session("u3"))

	rooms, members := d.Stats()
	assert.Equal(t, 2, rooms)
	assert.Equal(t, 3, members)
}

func TestDirectory_DropIfEmptyOnlyWhenEmpty(t *testing.T) {
	d := NewDirectory()
	room := d.GetOrCreate("r1")
	ms := session("u1")
	room.AddMember(ms)

	assert.False(t, d.DropIfEmpty("r1"))
	room.RemoveMemberIfOwner("u1", ms)
	assert.True(t, d.DropIfEmpty("r1"))
	assert.False(t, d.DropIfEmpty("r1"), "already gone")
}
