package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/buddy-ya/chat-engine/internal/localization"
	"github.com/buddy-ya/chat-engine/internal/models"
	"github.com/buddy-ya/chat-engine/internal/push"
	"github.com/buddy-ya/chat-engine/internal/repository"

	"github.com/rs/zerolog/log"
)

type TokenSource interface {
	TokenFor(ctx context.Context, memberID int64) (string, error)
}

type MemberSource interface {
	Find(ctx context.Context, memberID int64) (*models.Member, error)
}

type Pusher interface {
	Send(ctx context.Context, n push.Notification) error
}

// NotificationService builds and fires the push for one absent member.
// Everything here is best-effort: a member without a token is a no-op, a
// gateway failure is logged and contained, nothing propagates back into the
// message pipeline.
type NotificationService struct {
	tokens  TokenSource
	members MemberSource
	pusher  Pusher
	timeout time.Duration
}

func NewNotificationService(tokens TokenSource, members MemberSource, pusher Pusher, timeout time.Duration) *NotificationService {
	return &NotificationService{tokens: tokens, members: members, pusher: pusher, timeout: timeout}
}

func (s *NotificationService) Dispatch(ctx context.Context, senderID, recipientID, roomID int64, kind models.MessageKind, textBody string) {
	token, err := s.tokens.TokenFor(ctx, recipientID)
	if err != nil {
		if errors.Is(err, repository.ErrNoPushToken) {
			log.Ctx(ctx).Debug().Int64("member_id", recipientID).Msg("no push token on file")
			pushDispatched.WithLabelValues("skipped").Inc()
			return
		}
		log.Ctx(ctx).Warn().Err(err).Int64("member_id", recipientID).Msg("push token lookup failed")
		pushDispatched.WithLabelValues("failed").Inc()
		return
	}

	recipient, err := s.members.Find(ctx, recipientID)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("member_id", recipientID).Msg("push recipient lookup failed")
		pushDispatched.WithLabelValues("failed").Inc()
		return
	}
	sender, err := s.members.Find(ctx, senderID)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("member_id", senderID).Msg("push sender lookup failed")
		pushDispatched.WithLabelValues("failed").Inc()
		return
	}

	locale := localization.ForKorean(recipient.Korean)
	body := textBody
	if kind == models.MessageImage {
		body = localization.ImagePlaceholder(locale)
	}

	n := push.Notification{
		To:    token,
		Title: localization.PushTitle(locale),
		Body:  localization.PushBody(sender.Name, body),
		Sound: "default",
		Data: map[string]any{
			"type":   "chat",
			"roomId": strconv.FormatInt(roomID, 10),
		},
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.pusher.Send(sendCtx, n); err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("member_id", recipientID).Int64("room_id", roomID).
			Msg("push delivery failed")
		pushDispatched.WithLabelValues("failed").Inc()
		return
	}
	pushDispatched.WithLabelValues("sent").Inc()
}
