package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/buddy-ya/chat-engine/internal/models"

	"gorm.io/gorm"
)

// ErrNoPushToken means the member has no registered delivery target. The
// dispatcher treats it as a logged no-op, not a failure.
var ErrNoPushToken = errors.New("no push token on file")

type PushTokenRepo struct {
	db *gorm.DB
}

func NewPushTokenRepo(db *gorm.DB) *PushTokenRepo {
	return &PushTokenRepo{db: db}
}

func (r *PushTokenRepo) TokenFor(ctx context.Context, memberID int64) (string, error) {
	var t models.PushToken
	err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNoPushToken
	}
	if err != nil {
		return "", fmt.Errorf("find push token for member %d: %w", memberID, err)
	}
	return t.Token, nil
}
