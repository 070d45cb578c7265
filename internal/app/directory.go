package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Rehearsal/internal/core"
	"github.com/dkeye/Rehearsal/internal/domain"
)

// Directory is the Room Directory: roomId -> room. Rooms are created
// lazily on first join and dropped when their last member leaves. It is
// an injectable object, not a package singleton, so tests can run
// isolated instances.
type Directory struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]core.RoomService
}

func NewDirectory() *Directory {
	return &Directory{rooms: make(map[domain.RoomID]core.RoomService)}
}

func (d *Directory) GetOrCreate(id domain.RoomID) core.RoomService {
	d.mu.RLock()
	room, ok := d.rooms[id]
	d.mu.RUnlock()
	if ok {
		return room
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if room, ok = d.rooms[id]; ok {
		return room
	}
	room = core.NewRoom(id)
	d.rooms[id] = room
	log.Info().Str("module", "app.directory").Str("room", string(id)).Msg("room created")
	return room
}

func (d *Directory) Get(id domain.RoomID) (core.RoomService, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.rooms[id]
	return room, ok
}

// DropIfEmpty removes the room once its member map is empty. The check
// and delete happen under the directory lock so a concurrent join that
// already fetched the room cannot race it away; GetOrCreate would then
// recreate the id, which is the documented fresh-room behavior.
func (d *Directory) DropIfEmpty(id domain.RoomID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.rooms[id]
	if !ok || room.MemberCount() > 0 {
		return false
	}
	delete(d.rooms, id)
	log.Info().Str("module", "app.directory").Str("room", string(id)).Msg("room removed")
	return true
}

// Stats counts rooms and members for the stats endpoint.
func (d *Directory) Stats() (rooms, members int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rooms = len(d.rooms)
	for _, r := range d.rooms {
		members += r.MemberCount()
	}
	return rooms, members
}
