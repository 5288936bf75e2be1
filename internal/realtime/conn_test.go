package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/buddy-ya/chat-engine/internal/dto"
	"github.com/buddy-ya/chat-engine/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEvents struct {
	submitted []string
	exits     []int64
	submitErr error
	exitErr   error
}

func (f *fakeEvents) SubmitText(_ context.Context, roomID, senderID int64, body string, tempID json.RawMessage) (dto.MessageEvent, error) {
	f.submitted = append(f.submitted, body)
	if f.submitErr != nil {
		return dto.MessageEvent{}, f.submitErr
	}
	return dto.MessageEvent{ID: 1, Type: "TEXT", RoomID: roomID, SenderID: senderID, TempID: tempID, Message: body}, nil
}

func (f *fakeEvents) ExitRoom(_ context.Context, _, memberID int64) error {
	f.exits = append(f.exits, memberID)
	return f.exitErr
}

func wiredConn(member int64, hub *Hub, reg *Registry, events RoomEvents) *Conn {
	c := &Conn{
		id:     uuid.New(),
		member: member,
		hub:    hub,
		reg:    reg,
		events: events,
		out:    make(chan []byte, 16),
	}
	reg.Register(c.id, member)
	return c
}

func envelope(event string, seq int64, data string) dto.Envelope {
	return dto.Envelope{Event: event, Seq: seq, Data: json.RawMessage(data)}
}

func lastAck(t *testing.T, c *Conn) dto.Ack {
	t.Helper()
	var ack dto.Ack
	found := false
	for {
		select {
		case b := <-c.out:
			var a dto.Ack
			if err := json.Unmarshal(b, &a); err == nil && a.Status != "" {
				ack = a
				found = true
			}
		default:
			require.True(t, found, "no ack frame seen")
			return ack
		}
	}
}

func TestRoomInJoinsLiveSetAndAcks(t *testing.T) {
	hub, reg := NewHub(), NewRegistry()
	c := wiredConn(1, hub, reg, &fakeEvents{})

	c.dispatch(envelope("room_in", 1, `{"roomId":7}`))

	ack := lastAck(t, c)
	assert.Equal(t, "room_in", ack.Event)
	assert.Equal(t, int64(1), ack.Seq)
	assert.Equal(t, dto.StatusSuccess, ack.Status)
	assert.Contains(t, reg.MembersPresentIn(7), int64(1))
}

func TestRoomBackLeavesLiveSetButStaysConnected(t *testing.T) {
	hub, reg := NewHub(), NewRegistry()
	c := wiredConn(1, hub, reg, &fakeEvents{})

	c.dispatch(envelope("room_in", 1, `{"roomId":7}`))
	c.dispatch(envelope("room_back", 2, `{"roomId":7}`))

	assert.Empty(t, reg.MembersPresentIn(7))
	// Still registered: a later join works.
	c.dispatch(envelope("room_in", 3, `{"roomId":7}`))
	assert.Contains(t, reg.MembersPresentIn(7), int64(1))
}

func TestRoomOutMarksExitedAndBroadcastsToRemaining(t *testing.T) {
	hub, reg := NewHub(), NewRegistry()
	events := &fakeEvents{}
	leaver := wiredConn(1, hub, reg, events)
	peer := wiredConn(2, hub, reg, events)

	leaver.dispatch(envelope("room_in", 1, `{"roomId":7}`))
	peer.dispatch(envelope("room_in", 1, `{"roomId":7}`))
	drain(peer)

	leaver.dispatch(envelope("room_out", 2, `{"roomId":7}`))

	assert.Equal(t, []int64{1}, events.exits)
	assert.Empty(t, reg.MembersPresentIn(7), "leaver gone from live set")

	frames := drain(peer)
	require.Len(t, frames, 1)
	assert.Equal(t, "roomOut", frames[0].Event)
	var out dto.RoomOutEvent
	require.NoError(t, json.Unmarshal(frames[0].Data, &out))
	assert.Equal(t, int64(1), out.SenderID)
}

func TestRoomOutMissingMembershipStillSucceeds(t *testing.T) {
	hub, reg := NewHub(), NewRegistry()
	events := &fakeEvents{exitErr: repository.ErrMembershipMissing}
	c := wiredConn(1, hub, reg, events)

	c.dispatch(envelope("room_in", 1, `{"roomId":7}`))
	c.dispatch(envelope("room_out", 2, `{"roomId":7}`))

	ack := lastAck(t, c)
	assert.Equal(t, dto.StatusSuccess, ack.Status)
	assert.Empty(t, reg.MembersPresentIn(7))
}

func TestRoomOutStoreFailureAcksError(t *testing.T) {
	hub, reg := NewHub(), NewRegistry()
	events := &fakeEvents{exitErr: errors.New("store down")}
	c := wiredConn(1, hub, reg, events)

	c.dispatch(envelope("room_in", 1, `{"roomId":7}`))
	c.dispatch(envelope("room_out", 2, `{"roomId":7}`))

	ack := lastAck(t, c)
	assert.Equal(t, dto.StatusError, ack.Status)
	// Exit did not happen; the member stays in the live set.
	assert.Contains(t, reg.MembersPresentIn(7), int64(1))
}

func TestMessageAckCarriesChatRecord(t *testing.T) {
	hub, reg := NewHub(), NewRegistry()
	events := &fakeEvents{}
	c := wiredConn(1, hub, reg, events)

	c.dispatch(envelope("message", 5, `{"roomId":7,"message":"hi","tempId":42}`))

	ack := lastAck(t, c)
	assert.Equal(t, dto.StatusSuccess, ack.Status)
	require.NotNil(t, ack.Chat)
	assert.Equal(t, "hi", ack.Chat.Message)
	assert.JSONEq(t, "42", string(ack.Chat.TempID))
	assert.Equal(t, []string{"hi"}, events.submitted)
}

func TestMessageFailureAcksError(t *testing.T) {
	hub, reg := NewHub(), NewRegistry()
	events := &fakeEvents{submitErr: errors.New("append failed")}
	c := wiredConn(1, hub, reg, events)

	c.dispatch(envelope("message", 5, `{"roomId":7,"message":"hi"}`))

	ack := lastAck(t, c)
	assert.Equal(t, dto.StatusError, ack.Status)
	assert.Nil(t, ack.Chat)
}

func TestMalformedPayloadAcksError(t *testing.T) {
	hub, reg := NewHub(), NewRegistry()
	c := wiredConn(1, hub, reg, &fakeEvents{})

	c.dispatch(envelope("room_in", 1, `{"roomId":"seven"}`))

	ack := lastAck(t, c)
	assert.Equal(t, dto.StatusError, ack.Status)
}

func TestUnknownEventAcksError(t *testing.T) {
	hub, reg := NewHub(), NewRegistry()
	c := wiredConn(1, hub, reg, &fakeEvents{})

	c.dispatch(envelope("presence_ping", 9, `{}`))

	ack := lastAck(t, c)
	assert.Equal(t, dto.StatusError, ack.Status)
}
