package domain

// RecordingState is the shared session state every room member mirrors.
// The server never arbitrates it; clients assert transitions and
// broadcast them, last broadcast wins.
type RecordingState string

const (
	StateIdle      RecordingState = "idle"
	StateCountIn   RecordingState = "count_in"
	StateRecording RecordingState = "recording"
	StateSaving    RecordingState = "saving"
)

// Valid reports whether s is one of the four known states.
func (s RecordingState) Valid() bool {
	switch s {
	case StateIdle, StateCountIn, StateRecording, StateSaving:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next follows the
// session lifecycle: idle -> count_in -> recording -> saving -> idle.
func (s RecordingState) CanTransition(next RecordingState) bool {
	switch s {
	case StateIdle:
		return next == StateCountIn
	case StateCountIn:
		// A count-in may be abandoned back to idle (capture never started).
		return next == StateRecording || next == StateIdle
	case StateRecording:
		return next == StateSaving
	case StateSaving:
		return next == StateIdle
	}
	return false
}

// Session pairs the state with the member currently holding record
// privilege. RecorderID is empty in idle.
type Session struct {
	State      RecordingState `json:"state"`
	RecorderID UserID         `json:"recorderId"`
	Timestamp  int64          `json:"timestamp"`
}

// IdleSession is the initial session value for every client.
func IdleSession() Session {
	return Session{State: StateIdle}
}
