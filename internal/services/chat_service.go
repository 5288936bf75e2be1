package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/buddy-ya/chat-engine/internal/dto"
	"github.com/buddy-ya/chat-engine/internal/localization"
	"github.com/buddy-ya/chat-engine/internal/models"

	"github.com/rs/zerolog/log"
)

// Presence answers "who is live in this room right now". The snapshot must be
// a consistent cut across concurrent joins and leaves.
type Presence interface {
	MembersPresentIn(roomID int64) map[int64]struct{}
}

// Broadcaster fans an event out to the room's live connections, excluding the
// given member. Non-blocking.
type Broadcaster interface {
	Emit(roomID, exceptMember int64, event string, data any)
}

type MessageStore interface {
	Append(ctx context.Context, msg *models.Message) error
}

type RoomStore interface {
	UpdateSummary(ctx context.Context, roomID int64, content string, at time.Time) error
}

type MembershipStore interface {
	IncrementUnread(ctx context.Context, roomID int64, memberIDs []int64) error
	MarkExited(ctx context.Context, roomID, memberID int64) error
	MemberIDs(ctx context.Context, roomID int64) ([]int64, error)
	FindForRoom(ctx context.Context, roomID int64, memberIDs []int64) ([]models.Membership, error)
}

type AttachmentStore interface {
	Upload(ctx context.Context, filename, contentType string, r io.Reader) (string, error)
}

// Dispatcher decides and fires the push for one absent member. Fire-and-forget:
// implementations contain their own failures.
type Dispatcher interface {
	Dispatch(ctx context.Context, senderID, recipientID, roomID int64, kind models.MessageKind, textBody string)
}

// Attachment is one uploaded file as the transport hands it over.
type Attachment struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

// ChatService is the message pipeline: build the record, fan it out, persist
// it, refresh the room summary, then reconcile unread counters and pushes for
// members not present in the room.
type ChatService struct {
	messages      MessageStore
	rooms         RoomStore
	memberships   MembershipStore
	attachments   AttachmentStore
	presence      Presence
	broadcaster   Broadcaster
	notifier      Dispatcher
	uploadTimeout time.Duration
	now           func() time.Time
}

func NewChatService(
	messages MessageStore,
	rooms RoomStore,
	memberships MembershipStore,
	attachments AttachmentStore,
	presence Presence,
	broadcaster Broadcaster,
	notifier Dispatcher,
	uploadTimeout time.Duration,
) *ChatService {
	return &ChatService{
		messages:      messages,
		rooms:         rooms,
		memberships:   memberships,
		attachments:   attachments,
		presence:      presence,
		broadcaster:   broadcaster,
		notifier:      notifier,
		uploadTimeout: uploadTimeout,
		now:           time.Now,
	}
}

// SubmitText runs the pipeline for a plain text message.
func (s *ChatService) SubmitText(ctx context.Context, roomID, senderID int64, body string, tempID json.RawMessage) (dto.MessageEvent, error) {
	return s.submit(ctx, roomID, senderID, models.MessageText, body, tempID)
}

// SubmitImage uploads the attachment first; the rest of the pipeline only runs
// once the durable reference exists. An upload failure or timeout aborts the
// whole submission: nothing is persisted or broadcast.
func (s *ChatService) SubmitImage(ctx context.Context, roomID, senderID int64, att Attachment, tempID json.RawMessage) (dto.MessageEvent, error) {
	upCtx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	url, err := s.attachments.Upload(upCtx, att.Filename, att.ContentType, att.Data)
	if err != nil {
		return dto.MessageEvent{}, fmt.Errorf("%w: %v", ErrAttachmentUploadFailed, err)
	}
	return s.submit(ctx, roomID, senderID, models.MessageImage, url, tempID)
}

func (s *ChatService) submit(ctx context.Context, roomID, senderID int64, kind models.MessageKind, body string, tempID json.RawMessage) (dto.MessageEvent, error) {
	msg := &models.Message{
		RoomID:    roomID,
		SenderID:  senderID,
		Kind:      kind,
		Body:      body,
		CreatedAt: s.now(),
	}

	// Fan out before the append completes; tempId correlates on the client.
	// A failed append afterwards is not retracted: clients may observe an
	// ephemeral message that never reached the log.
	ev := dto.MessageEvent{
		Type:        string(kind),
		RoomID:      roomID,
		SenderID:    senderID,
		TempID:      tempID,
		Message:     body,
		CreatedDate: msg.CreatedAt,
	}
	s.broadcaster.Emit(roomID, senderID, "message", ev)

	if err := s.messages.Append(ctx, msg); err != nil {
		return dto.MessageEvent{}, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	ev.ID = msg.ID
	messagesSubmitted.WithLabelValues(string(kind)).Inc()

	summary := body
	if kind == models.MessageImage {
		summary = localization.ImagePlaceholder(localization.Korean)
	}
	if err := s.rooms.UpdateSummary(ctx, roomID, summary, msg.CreatedAt); err != nil {
		// The message is already durable; a stale summary heals on the next
		// append. Logged, not surfaced.
		log.Ctx(ctx).Warn().Err(err).Int64("room_id", roomID).Msg("room summary update failed")
	}

	if err := s.reconcileAbsent(ctx, roomID, senderID, kind, body); err != nil {
		return dto.MessageEvent{}, err
	}
	return ev, nil
}

// reconcileAbsent computes absent = allMembers − present − {sender}, bumps
// their unread counters and fires pushes for those who have not exited.
func (s *ChatService) reconcileAbsent(ctx context.Context, roomID, senderID int64, kind models.MessageKind, body string) error {
	all, err := s.memberships.MemberIDs(ctx, roomID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	present := s.presence.MembersPresentIn(roomID)

	absent := make([]int64, 0, len(all))
	for _, id := range all {
		if id == senderID {
			continue
		}
		if _, ok := present[id]; ok {
			continue
		}
		absent = append(absent, id)
	}
	if len(absent) == 0 {
		return nil
	}

	// One batched relative update; exited members are skipped inside the store.
	if err := s.memberships.IncrementUnread(ctx, roomID, absent); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	unreadIncrements.Add(float64(len(absent)))

	records, err := s.memberships.FindForRoom(ctx, roomID, absent)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("room_id", roomID).Msg("membership lookup for push skipped")
		return nil
	}
	textBody := body
	if kind == models.MessageImage {
		textBody = ""
	}
	for _, rec := range records {
		if rec.Exited {
			continue
		}
		s.notifier.Dispatch(ctx, senderID, rec.MemberID, roomID, kind, textBody)
	}
	return nil
}

// ExitRoom marks the member as durably exited. The sticky flag suppresses
// unread increments and pushes until an explicit re-join record is created
// elsewhere.
func (s *ChatService) ExitRoom(ctx context.Context, roomID, memberID int64) error {
	return s.memberships.MarkExited(ctx, roomID, memberID)
}
