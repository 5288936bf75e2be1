package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/buddy-ya/chat-engine/internal/dto"
	"github.com/buddy-ya/chat-engine/internal/repository"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	pingInterval = 25 * time.Second
	pongTimeout  = 60 * time.Second
	writeWait    = 10 * time.Second
)

// RoomEvents is what the connection needs from the message pipeline.
type RoomEvents interface {
	SubmitText(ctx context.Context, roomID, senderID int64, body string, tempID json.RawMessage) (dto.MessageEvent, error)
	ExitRoom(ctx context.Context, roomID, memberID int64) error
}

// Conn represents one live websocket connection of one member.
type Conn struct {
	id     uuid.UUID
	member int64
	ws     *websocket.Conn
	hub    *Hub
	reg    *Registry
	events RoomEvents

	out       chan []byte
	closeOnce sync.Once
}

// NewConn registers the connection and starts its loops. Called from the
// upgrade handler.
func NewConn(memberID int64, ws *websocket.Conn, hub *Hub, reg *Registry, events RoomEvents) *Conn {
	c := &Conn{
		id:     uuid.New(),
		member: memberID,
		ws:     ws,
		hub:    hub,
		reg:    reg,
		events: events,
		out:    make(chan []byte, 16),
	}
	reg.Register(c.id, memberID)

	go c.writeLoop()
	go c.readLoop()

	return c
}

// enqueue hands a pre-marshaled frame to the write loop without blocking.
func (c *Conn) enqueue(b []byte) {
	select {
	case c.out <- b:
	default: // channel full, drop rather than stall the room
	}
}

func (c *Conn) send(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Int64("member_id", c.member).Msg("encode frame")
		return
	}
	c.enqueue(b)
}

func (c *Conn) ack(event string, seq int64, status string, chat *dto.MessageEvent) {
	c.send(dto.Ack{Event: event, Seq: seq, Status: status, Chat: chat})
}

// ----------------------------------------------------------
// private loops
// ----------------------------------------------------------

func (c *Conn) readLoop() {
	defer c.close()

	_ = c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		var in dto.Envelope
		if err := c.ws.ReadJSON(&in); err != nil {
			return // closed
		}
		c.dispatch(in)
	}
}

// dispatch handles one client event. Events of a single connection run in
// arrival order; concurrency comes from other connections' handlers.
func (c *Conn) dispatch(in dto.Envelope) {
	ctx := context.Background()

	switch in.Event {
	case "room_in":
		var ref dto.RoomRef
		if err := json.Unmarshal(in.Data, &ref); err != nil {
			c.ack(in.Event, in.Seq, dto.StatusError, nil)
			return
		}
		// Join the live set before flipping presence: a message landing in
		// between is then both broadcast and counted, never silently lost.
		c.hub.Join(c, ref.RoomID.Int64())
		c.reg.SetCurrentRoom(c.id, ref.RoomID.Int64())
		c.ack(in.Event, in.Seq, dto.StatusSuccess, nil)

	case "room_back":
		var ref dto.RoomRef
		if err := json.Unmarshal(in.Data, &ref); err != nil {
			c.ack(in.Event, in.Seq, dto.StatusError, nil)
			return
		}
		c.reg.SetCurrentRoom(c.id, 0)
		c.hub.Leave(c, ref.RoomID.Int64())
		c.ack(in.Event, in.Seq, dto.StatusSuccess, nil)

	case "room_out":
		var ref dto.RoomRef
		if err := json.Unmarshal(in.Data, &ref); err != nil {
			c.ack(in.Event, in.Seq, dto.StatusError, nil)
			return
		}
		roomID := ref.RoomID.Int64()
		if err := c.events.ExitRoom(ctx, roomID, c.member); err != nil {
			if errors.Is(err, repository.ErrMembershipMissing) {
				log.Warn().Int64("room_id", roomID).Int64("member_id", c.member).
					Msg("room_out for missing membership")
			} else {
				log.Error().Err(err).Int64("room_id", roomID).Int64("member_id", c.member).
					Msg("exit room failed")
				c.ack(in.Event, in.Seq, dto.StatusError, nil)
				return
			}
		}
		c.reg.SetCurrentRoom(c.id, 0)
		c.hub.Leave(c, roomID)
		c.hub.Emit(roomID, c.member, "roomOut", dto.RoomOutEvent{SenderID: c.member})
		c.ack(in.Event, in.Seq, dto.StatusSuccess, nil)

	case "message":
		var sub dto.MessageSubmit
		if err := json.Unmarshal(in.Data, &sub); err != nil {
			c.ack(in.Event, in.Seq, dto.StatusError, nil)
			return
		}
		chat, err := c.events.SubmitText(ctx, sub.RoomID.Int64(), c.member, sub.Message, sub.TempID)
		if err != nil {
			log.Error().Err(err).Int64("room_id", sub.RoomID.Int64()).Int64("member_id", c.member).
				Msg("message submission failed")
			c.ack(in.Event, in.Seq, dto.StatusError, nil)
			return
		}
		c.ack(in.Event, in.Seq, dto.StatusSuccess, &chat)

	default:
		log.Warn().Str("event", in.Event).Int64("member_id", c.member).Msg("unknown client event")
		c.ack(in.Event, in.Seq, dto.StatusError, nil)
	}
}

func (c *Conn) writeLoop() {
	tick := time.NewTicker(pingInterval)
	defer tick.Stop()

	for {
		select {
		case msg, ok := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-tick.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ----------------------------------------------------------

// close tears the connection down. Disconnect is not a durable room exit:
// only the live-set and session state go away.
func (c *Conn) close() {
	c.closeOnce.Do(func() {
		c.hub.Detach(c)
		c.reg.Unregister(c.id)
		close(c.out)
		_ = c.ws.Close()
	})
}
