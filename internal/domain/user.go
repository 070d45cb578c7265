// Package domain contains entities without logic, just meta-data.
package domain

import "errors"

const (
	// MaxNicknameLen caps the display name; longer names are truncated,
	// never rejected.
	MaxNicknameLen = 36

	// DefaultNickname is applied when a join supplies none.
	DefaultNickname = "Anonymous"
)

var ErrUserIDEmpty = errors.New("user id empty")

type UserID string

// User is the identity a connection assumes on join. The id is
// client-generated and only required to be unique within a room.
type User struct {
	ID       UserID `json:"userId"`
	Nickname string `json:"nickname"`
}

// NewUser validates the join identity and fills the nickname default.
func NewUser(id, nickname string) (*User, error) {
	if id == "" {
		return nil, ErrUserIDEmpty
	}
	return &User{ID: UserID(id), Nickname: CleanNickname(nickname)}, nil
}

// CleanNickname applies the default and the display length cap.
func CleanNickname(nickname string) string {
	if nickname == "" {
		return DefaultNickname
	}
	if len(nickname) > MaxNicknameLen {
		return nickname[:MaxNicknameLen]
	}
	return nickname
}
