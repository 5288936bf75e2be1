package models

import (
	"time"
)

// -------------------------------
// Member and Room Models
// -------------------------------

// Member is the chat participant as the account service stores it. Loaded
// read-only for a request; this service never mutates member rows.
type Member struct {
	ID           int64     `gorm:"primaryKey"`
	Name         string    `gorm:"type:text"`
	Country      string    `gorm:"type:text"`
	Korean       bool      `gorm:"default:false"` // drives notification language
	ProfileImage string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Room carries the denormalized last-message summary. The summary is a cache
// over the message log and may lag it by one pipeline step.
type Room struct {
	ID              int64     `gorm:"primaryKey"`
	LastMessage     string    `gorm:"type:text"`
	LastMessageTime time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

// Membership is the per-(room,member) read state: the unread counter and the
// sticky exited flag. Exited stays true until an explicit re-join record is
// created elsewhere; while set, the member gets no increments and no pushes.
type Membership struct {
	ID          int64     `gorm:"primaryKey"`
	RoomID      int64     `gorm:"not null;uniqueIndex:idx_membership_room_member"`
	MemberID    int64     `gorm:"not null;uniqueIndex:idx_membership_room_member"`
	UnreadCount int       `gorm:"not null;default:0"`
	Exited      bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// -------------------------------
// Message Model
// -------------------------------

type MessageKind string

const (
	MessageText  MessageKind = "TEXT"
	MessageImage MessageKind = "IMAGE"
)

// Message is one entry of the append-only room log. ID is assigned by the
// store on append, never by the engine.
type Message struct {
	ID        int64       `gorm:"primaryKey;autoIncrement"`
	RoomID    int64       `gorm:"not null;index"`
	SenderID  int64       `gorm:"not null;index"`
	Kind      MessageKind `gorm:"type:varchar(10);not null"`
	Body      string      `gorm:"type:text"` // text content or attachment URL
	CreatedAt time.Time
}

// -------------------------------
// Push Token Model
// -------------------------------

// PushToken maps a member to their registered push delivery target.
type PushToken struct {
	ID        int64     `gorm:"primaryKey"`
	MemberID  int64     `gorm:"not null;uniqueIndex"`
	Token     string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
