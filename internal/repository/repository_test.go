package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/buddy-ya/chat-engine/internal/db"
	"github.com/buddy-ya/chat-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// sqlite handles one writer; serialize the pool so concurrent tests
	// exercise the relative-update semantics without SQLITE_BUSY noise.
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(conn))
	return conn
}

func seedMembership(t *testing.T, conn *gorm.DB, roomID, memberID int64, exited bool) {
	t.Helper()
	require.NoError(t, conn.Create(&models.Membership{
		RoomID:   roomID,
		MemberID: memberID,
		Exited:   exited,
	}).Error)
}

// ----------------------------------------------------------
// Membership ledger
// ----------------------------------------------------------

func TestIncrementUnreadComposesUnderConcurrency(t *testing.T) {
	conn := newTestDB(t)
	repo := NewMembershipRepo(conn)
	seedMembership(t, conn, 7, 2, false)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.IncrementUnread(context.Background(), 7, []int64{2}))
		}()
	}
	wg.Wait()

	rec, err := repo.Lookup(context.Background(), 7, 2)
	require.NoError(t, err)
	assert.Equal(t, n, rec.UnreadCount, "concurrent increments must compose, not lose updates")
}

func TestIncrementUnreadSkipsExitedMembers(t *testing.T) {
	conn := newTestDB(t)
	repo := NewMembershipRepo(conn)
	seedMembership(t, conn, 7, 2, false)
	seedMembership(t, conn, 7, 3, true)

	require.NoError(t, repo.IncrementUnread(context.Background(), 7, []int64{2, 3}))

	active, err := repo.Lookup(context.Background(), 7, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, active.UnreadCount)

	exited, err := repo.Lookup(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, exited.UnreadCount, "exited members never get unread increments")
}

func TestIncrementUnreadScopedToRoom(t *testing.T) {
	conn := newTestDB(t)
	repo := NewMembershipRepo(conn)
	seedMembership(t, conn, 7, 2, false)
	seedMembership(t, conn, 8, 2, false)

	require.NoError(t, repo.IncrementUnread(context.Background(), 7, []int64{2}))

	other, err := repo.Lookup(context.Background(), 8, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, other.UnreadCount)
}

func TestIncrementUnreadEmptyListIsNoOp(t *testing.T) {
	conn := newTestDB(t)
	repo := NewMembershipRepo(conn)
	assert.NoError(t, repo.IncrementUnread(context.Background(), 7, nil))
}

func TestMarkExitedIsIdempotent(t *testing.T) {
	conn := newTestDB(t)
	repo := NewMembershipRepo(conn)
	seedMembership(t, conn, 7, 2, false)

	require.NoError(t, repo.MarkExited(context.Background(), 7, 2))
	first, err := repo.Lookup(context.Background(), 7, 2)
	require.NoError(t, err)

	require.NoError(t, repo.MarkExited(context.Background(), 7, 2))
	second, err := repo.Lookup(context.Background(), 7, 2)
	require.NoError(t, err)

	assert.True(t, first.Exited)
	assert.Equal(t, first.Exited, second.Exited)
	assert.Equal(t, first.UnreadCount, second.UnreadCount)
}

func TestMarkExitedMissingMembership(t *testing.T) {
	conn := newTestDB(t)
	repo := NewMembershipRepo(conn)

	err := repo.MarkExited(context.Background(), 7, 99)
	assert.ErrorIs(t, err, ErrMembershipMissing)
}

func TestLookupMissingMembership(t *testing.T) {
	conn := newTestDB(t)
	repo := NewMembershipRepo(conn)

	_, err := repo.Lookup(context.Background(), 7, 99)
	assert.ErrorIs(t, err, ErrMembershipMissing)
}

func TestMemberIDsIncludesExited(t *testing.T) {
	conn := newTestDB(t)
	repo := NewMembershipRepo(conn)
	seedMembership(t, conn, 7, 2, false)
	seedMembership(t, conn, 7, 3, true)
	seedMembership(t, conn, 8, 4, false)

	ids, err := repo.MemberIDs(context.Background(), 7)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{2, 3}, ids)
}

func TestFindForRoomReturnsExitedFlags(t *testing.T) {
	conn := newTestDB(t)
	repo := NewMembershipRepo(conn)
	seedMembership(t, conn, 7, 2, false)
	seedMembership(t, conn, 7, 3, true)

	records, err := repo.FindForRoom(context.Background(), 7, []int64{2, 3})
	require.NoError(t, err)
	require.Len(t, records, 2)

	flags := map[int64]bool{}
	for _, rec := range records {
		flags[rec.MemberID] = rec.Exited
	}
	assert.False(t, flags[2])
	assert.True(t, flags[3])
}

// ----------------------------------------------------------
// Message log and room summary
// ----------------------------------------------------------

func TestAppendAssignsID(t *testing.T) {
	conn := newTestDB(t)
	repo := NewMessageRepo(conn)

	msg := &models.Message{RoomID: 7, SenderID: 1, Kind: models.MessageText, Body: "hello", CreatedAt: time.Now()}
	require.NoError(t, repo.Append(context.Background(), msg))
	assert.NotZero(t, msg.ID)

	second := &models.Message{RoomID: 7, SenderID: 2, Kind: models.MessageText, Body: "again", CreatedAt: time.Now()}
	require.NoError(t, repo.Append(context.Background(), second))
	assert.Greater(t, second.ID, msg.ID)
}

func TestUpdateSummary(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRoomRepo(conn)
	require.NoError(t, conn.Create(&models.Room{ID: 7}).Error)

	at := time.Now().Truncate(time.Second)
	require.NoError(t, repo.UpdateSummary(context.Background(), 7, "hello", at))

	room, err := repo.FindByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "hello", room.LastMessage)
	assert.WithinDuration(t, at, room.LastMessageTime, time.Second)
}

func TestFindRoomMissing(t *testing.T) {
	conn := newTestDB(t)
	repo := NewRoomRepo(conn)

	_, err := repo.FindByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

// ----------------------------------------------------------
// Push tokens
// ----------------------------------------------------------

func TestTokenFor(t *testing.T) {
	conn := newTestDB(t)
	repo := NewPushTokenRepo(conn)
	require.NoError(t, conn.Create(&models.PushToken{MemberID: 2, Token: "ExponentPushToken[abc]"}).Error)

	token, err := repo.TokenFor(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "ExponentPushToken[abc]", token)

	_, err = repo.TokenFor(context.Background(), 3)
	assert.ErrorIs(t, err, ErrNoPushToken)
}
