package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/buddy-ya/chat-engine/internal/models"

	"gorm.io/gorm"
)

var ErrRoomNotFound = errors.New("room not found")

type RoomRepo struct {
	db *gorm.DB
}

func NewRoomRepo(db *gorm.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

func (r *RoomRepo) FindByID(ctx context.Context, roomID int64) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).First(&room, roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find room %d: %w", roomID, err)
	}
	return &room, nil
}

// UpdateSummary refreshes the room's denormalized last-message cache. Called
// after every successful append; eventually consistent with the log.
func (r *RoomRepo) UpdateSummary(ctx context.Context, roomID int64, content string, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ?", roomID).
		Updates(map[string]interface{}{
			"last_message":      content,
			"last_message_time": at,
		}).Error
	if err != nil {
		return fmt.Errorf("update summary of room %d: %w", roomID, err)
	}
	return nil
}
