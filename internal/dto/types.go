package dto

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// RoomID normalizes the room identifier once at the wire boundary. Clients
// historically sent it as either a JSON number or a numeric string; inside
// the engine it is always an int64.
type RoomID int64

func (r *RoomID) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid roomId %q: %w", string(b), err)
	}
	*r = RoomID(n)
	return nil
}

func (r RoomID) Int64() int64 { return int64(r) }

// ----------------------------------------------------------
// Client → server frames
// ----------------------------------------------------------

// Envelope is the framing for every client event. Seq is echoed back on the
// matching Ack so the client can correlate completions.
type Envelope struct {
	Event string          `json:"event"`
	Seq   int64           `json:"seq,omitempty"`
	Data  json.RawMessage `json:"data"`
}

// RoomRef is the payload of room_in, room_back and room_out.
type RoomRef struct {
	RoomID RoomID `json:"roomId"`
}

// MessageSubmit is the payload of a client message event. TempID is an opaque
// correlation token echoed back verbatim; it is never an identity key.
type MessageSubmit struct {
	RoomID  RoomID          `json:"roomId"`
	Type    string          `json:"type,omitempty"`
	Message string          `json:"message,omitempty"`
	TempID  json.RawMessage `json:"tempId,omitempty"`
}

// ----------------------------------------------------------
// Server → client frames
// ----------------------------------------------------------

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Ack completes a client event. Chat is set on successful message submissions.
type Ack struct {
	Event  string        `json:"event"`
	Seq    int64         `json:"seq,omitempty"`
	Status string        `json:"status"`
	Chat   *MessageEvent `json:"chat,omitempty"`
}

// MessageEvent is the live fan-out payload of a new message and the record
// shape returned by the attachment upload endpoint. ID is present only once
// the store has assigned it; the fan-out sent before the append completes
// carries tempId for correlation instead.
type MessageEvent struct {
	ID          int64           `json:"id,omitempty"`
	Type        string          `json:"type"`
	RoomID      int64           `json:"roomId"`
	SenderID    int64           `json:"senderId"`
	TempID      json.RawMessage `json:"tempId,omitempty"`
	Message     string          `json:"message"`
	CreatedDate time.Time       `json:"createdDate"`
}

// RoomOutEvent tells remaining live members that a peer exited the room.
type RoomOutEvent struct {
	SenderID int64 `json:"senderId"`
}
