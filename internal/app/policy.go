package app

import (
	"github.com/dkeye/Rehearsal/internal/core"
	"github.com/dkeye/Rehearsal/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what to do with a recipient whose send buffer is full.
type Policy interface {
	OnBackpressure(room core.RoomService, uid domain.UserID) BackpressureAction
}

// DropPolicy keeps delivery fire-and-forget: a slow peer loses frames
// but stays in the room and never blocks the others.
type DropPolicy struct{}

func (DropPolicy) OnBackpressure(room core.RoomService, uid domain.UserID) BackpressureAction {
	return DropFrame
}
