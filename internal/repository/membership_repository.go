package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/buddy-ya/chat-engine/internal/models"

	"gorm.io/gorm"
)

// ErrMembershipMissing signals that no (room, member) record exists. Callers
// treat it as a non-fatal warning: the member may have been removed from the
// room out-of-band.
var ErrMembershipMissing = errors.New("membership record missing")

type MembershipRepo struct {
	db *gorm.DB
}

func NewMembershipRepo(db *gorm.DB) *MembershipRepo {
	return &MembershipRepo{db: db}
}

// IncrementUnread bumps the unread counter by exactly one for every given
// member of the room, skipping exited members. The increment runs as a single
// relative UPDATE inside the store so concurrent calls compose and never lose
// updates.
func (r *MembershipRepo) IncrementUnread(ctx context.Context, roomID int64, memberIDs []int64) error {
	if len(memberIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("room_id = ? AND member_id IN ? AND exited = ?", roomID, memberIDs, false).
		Update("unread_count", gorm.Expr("unread_count + 1")).Error
	if err != nil {
		return fmt.Errorf("increment unread for room %d: %w", roomID, err)
	}
	return nil
}

// MarkExited sets the sticky exited flag. Idempotent: marking an already
// exited member leaves the record unchanged.
func (r *MembershipRepo) MarkExited(ctx context.Context, roomID, memberID int64) error {
	res := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("room_id = ? AND member_id = ?", roomID, memberID).
		Update("exited", true)
	if res.Error != nil {
		return fmt.Errorf("mark exited for room %d member %d: %w", roomID, memberID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrMembershipMissing
	}
	return nil
}

// Lookup fetches one (room, member) record.
func (r *MembershipRepo) Lookup(ctx context.Context, roomID, memberID int64) (*models.Membership, error) {
	var m models.Membership
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND member_id = ?", roomID, memberID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMembershipMissing
	}
	if err != nil {
		return nil, fmt.Errorf("lookup membership for room %d member %d: %w", roomID, memberID, err)
	}
	return &m, nil
}

// MemberIDs returns every member of the room, exited ones included. Exited
// members are filtered where it matters (increments, pushes), not here.
func (r *MembershipRepo) MemberIDs(ctx context.Context, roomID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("room_id = ?", roomID).
		Pluck("member_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list members of room %d: %w", roomID, err)
	}
	return ids, nil
}

// FindForRoom fetches the membership records of the given members, used to
// read the exited flags when deciding who gets a push.
func (r *MembershipRepo) FindForRoom(ctx context.Context, roomID int64, memberIDs []int64) ([]models.Membership, error) {
	if len(memberIDs) == 0 {
		return nil, nil
	}
	var records []models.Membership
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND member_id IN ?", roomID, memberIDs).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("find memberships for room %d: %w", roomID, err)
	}
	return records, nil
}
