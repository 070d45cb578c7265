// Package protocol defines the JSON wire contract shared between the
// signaling server and every client (browser, pkg/client, bots).
//
// Every message is a single JSON object tagged by a "type" field. Fields
// not listed for a given type are ignored on receipt; unknown types are
// dropped by the server without closing the connection.
package protocol

import "encoding/json"

// Inbound message types (client -> server).
const (
	TypeJoin           = "join"
	TypeSignal         = "signal"
	TypeChat           = "chat"
	TypeMetronome      = "metronome"
	TypeRecordingState = "recording-state"
	TypePing           = "ping"
)

// Outbound message types (server -> client).
const (
	TypeRoomUsers  = "room-users"
	TypeUserJoined = "user-joined"
	TypeUserLeft   = "user-left"
	TypePong       = "pong"
)

// Recording session states mirrored by every room member.
const (
	StateIdle      = "idle"
	StateCountIn   = "count_in"
	StateRecording = "recording"
	StateSaving    = "saving"
)

// DefaultNickname is used when a join carries no nickname.
const DefaultNickname = "Anonymous"

// Envelope carries the superset of all message fields. The router
// unmarshals into it once and picks the fields the type requires.
// Data is kept raw so negotiation payloads pass through byte-exact.
type Envelope struct {
	Type          string          `json:"type"`
	RoomID        string          `json:"roomId,omitempty"`
	UserID        string          `json:"userId,omitempty"`
	Nickname      string          `json:"nickname,omitempty"`
	TargetUserID  string          `json:"targetUserId,omitempty"`
	FromUserID    string          `json:"fromUserId,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
	Text          string          `json:"text,omitempty"`
	Timestamp     int64           `json:"timestamp,omitempty"`
	Running       bool            `json:"running,omitempty"`
	BPM           int             `json:"bpm,omitempty"`
	TimeSignature string          `json:"timeSignature,omitempty"`
	StartTime     int64           `json:"startTime,omitempty"`
	State         string          `json:"state,omitempty"`
	RecorderID    string          `json:"recorderId,omitempty"`
	ClientTime    int64           `json:"clientTime,omitempty"`
	ServerTime    int64           `json:"serverTime,omitempty"`
}

// RoomUser is one entry of a room-users roster.
type RoomUser struct {
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
}

// RoomUsers is sent to a joining client and enumerates every current
// member of the room, the joiner included.
type RoomUsers struct {
	Type   string     `json:"type"`
	RoomID string     `json:"roomId"`
	Users  []RoomUser `json:"users"`
}

// UserJoined announces a new member to everyone already in the room.
type UserJoined struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
}

// UserLeft announces a departure to the remaining members.
type UserLeft struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// Signal is the unicast relay shape delivered to the target peer. Data
// is the sender's negotiation payload, untouched.
type Signal struct {
	Type       string          `json:"type"`
	FromUserID string          `json:"fromUserId"`
	Data       json.RawMessage `json:"data"`
}

// Chat is broadcast to every room member, the sender included.
type Chat struct {
	Type      string `json:"type"`
	RoomID    string `json:"roomId"`
	UserID    string `json:"userId"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Metronome is broadcast to every room member except the sender.
type Metronome struct {
	Type          string `json:"type"`
	RoomID        string `json:"roomId"`
	Running       bool   `json:"running"`
	BPM           int    `json:"bpm"`
	TimeSignature string `json:"timeSignature"`
	StartTime     int64  `json:"startTime"`
}

// RecordingState is broadcast to every room member except the sender.
type RecordingState struct {
	Type       string `json:"type"`
	RoomID     string `json:"roomId"`
	State      string `json:"state"`
	RecorderID string `json:"recorderId"`
	Timestamp  int64  `json:"timestamp"`
}

// Pong echoes the client's timestamp next to the server's clock so the
// client can compute a round trip.
type Pong struct {
	Type       string `json:"type"`
	ClientTime int64  `json:"clientTime"`
	ServerTime int64  `json:"serverTime"`
}
