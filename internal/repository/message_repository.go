package repository

import (
	"context"
	"fmt"

	"github.com/buddy-ya/chat-engine/internal/models"

	"gorm.io/gorm"
)

type MessageRepo struct {
	db *gorm.DB
}

func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append writes one message to the room log. The store assigns the id and it
// is set on the passed record before returning.
func (r *MessageRepo) Append(ctx context.Context, msg *models.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("append message to room %d: %w", msg.RoomID, err)
	}
	return nil
}
