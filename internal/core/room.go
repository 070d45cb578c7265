package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Rehearsal/internal/domain"
)

// roomImpl is a threadsafe in-memory room keyed by userId.
// It never closes adapter-owned resources.
type roomImpl struct {
	id     domain.RoomID
	mu     sync.RWMutex
	byUser map[domain.UserID]MemberSession
}

func NewRoom(id domain.RoomID) RoomService {
	return &roomImpl{
		id:     id,
		byUser: make(map[domain.UserID]MemberSession),
	}
}

func (r *roomImpl) ID() domain.RoomID { return r.id }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

func (r *roomImpl) AddMember(ms MemberSession) bool {
	uid := ms.User().ID
	r.mu.Lock()
	defer r.mu.Unlock()
	_, displaced := r.byUser[uid]
	r.byUser[uid] = ms
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("user", string(uid)).Bool("displaced", displaced).Msg("member added")
	return displaced
}

func (r *roomImpl) RemoveMemberIfOwner(uid domain.UserID, ms MemberSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byUser[uid]
	if !ok || cur != ms {
		return false
	}
	delete(r.byUser, uid)
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("user", string(uid)).Msg("member removed")
	return true
}

func (r *roomImpl) Member(uid domain.UserID) (MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ms, ok := r.byUser[uid]
	return ms, ok
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberDTO, 0, len(r.byUser))
	for _, ms := range r.byUser {
		u := ms.User()
		out = append(out, MemberDTO{UserID: u.ID, Nickname: u.Nickname})
	}
	return out
}

func (r *roomImpl) Broadcast(data Frame, except domain.UserID) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for uid, ms := range r.byUser {
		if except != "" && uid == except {
			continue
		}
		if err := ms.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, uid)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
