package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/buddy-ya/chat-engine/internal/models"

	"gorm.io/gorm"
)

var ErrMemberNotFound = errors.New("member not found")

type MemberRepo struct {
	db *gorm.DB
}

func NewMemberRepo(db *gorm.DB) *MemberRepo {
	return &MemberRepo{db: db}
}

func (r *MemberRepo) Find(ctx context.Context, memberID int64) (*models.Member, error) {
	var m models.Member
	err := r.db.WithContext(ctx).First(&m, memberID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find member %d: %w", memberID, err)
	}
	return &m, nil
}
