package core

import "github.com/dkeye/Rehearsal/internal/domain"

// Frame is a marshaled wire message.
type Frame []byte

// SessionID identifies one live transport connection. Distinct from
// domain.UserID: a user may reconnect and assume a new session.
type SessionID string

// SignalConnection abstracts the system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberSession binds a joined identity and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	User() *domain.User
	Signal() SignalConnection
}

// PublishResult reports delivery stats and dropped recipients to the
// caller; one failing recipient never aborts the rest of a broadcast.
type PublishResult struct {
	SentTo  int
	Dropped []domain.UserID
}

// MemberDTO is a read-only roster view (no transport fields).
type MemberDTO struct {
	UserID   domain.UserID `json:"userId"`
	Nickname string        `json:"nickname"`
}

// RoomService is the core-facing API of a room. It owns the membership
// map but never touches transport resources.
type RoomService interface {
	ID() domain.RoomID
	MemberCount() int
	MembersSnapshot() []MemberDTO

	// AddMember inserts or overwrites the userId slot and reports
	// whether an earlier session was displaced.
	AddMember(ms MemberSession) (displaced bool)
	// RemoveMemberIfOwner deletes the slot only while ms still owns it,
	// so a superseded connection's late close cannot evict its
	// replacement.
	RemoveMemberIfOwner(uid domain.UserID, ms MemberSession) bool
	Member(uid domain.UserID) (MemberSession, bool)

	// Broadcast fans data out to every member; except skips one userId
	// (pass "" to include everyone).
	Broadcast(data Frame, except domain.UserID) PublishResult
}
