package domain

import "errors"

var ErrRoomIDEmpty = errors.New("room id empty")

type RoomID string

// A room has no attributes of its own; its identity is the id and its
// lifetime is derived entirely from membership.
func ValidRoomID(id string) error {
	if id == "" {
		return ErrRoomIDEmpty
	}
	return nil
}
