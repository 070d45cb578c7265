package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordingState_Valid(t *testing.T) {
	for _, s := range []RecordingState{StateIdle, StateCountIn, StateRecording, StateSaving} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, RecordingState("paused").Valid())
	assert.False(t, RecordingState("").Valid())
}

func TestRecordingState_CanTransition(t *testing.T) {
	tests := []struct {
		from, to RecordingState
		want     bool
	}{
		{StateIdle, StateCountIn, true},
		{StateIdle, StateRecording, false},
		{StateCountIn, StateRecording, true},
		{StateCountIn, StateIdle, true}, // abandoned count-in
		{StateCountIn, StateSaving, false},
		{StateRecording, StateSaving, true},
		{StateRecording, StateIdle, false},
		{StateSaving, StateIdle, true},
		{StateSaving, StateRecording, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestNewUser(t *testing.T) {
	_, err := NewUser("", "nick")
	assert.ErrorIs(t, err, ErrUserIDEmpty)

	u, err := NewUser("u1", "")
	assert.NoError(t, err)
	assert.Equal(t, DefaultNickname, u.Nickname)

	long := make([]byte, MaxNicknameLen+10)
	for i := range long {
		long[i] = 'x'
	}
	u, err = NewUser("u1", string(long))
	assert.NoError(t, err)
	assert.Len(t, u.Nickname, MaxNicknameLen)
}
