package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepository(t *testing.T) (*PgKaraokeRepository, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err, "expected sqlmock to open")
	t.Cleanup(func() { conn.Close() })

	return &PgKaraokeRepository{conn: conn}, mock
}

var songRowColumns = []string{
	"id", "party_id", "video_id", "title", "thumbnail", "channel_title",
	"added_by_user_id", "added_by_guest_name", "added_by_name", "added_at", "played", "played_at",
}

func Test_mapError(t *testing.T) {
	otherErr := errors.New("connection reset")

	tcases := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "nil", err: nil, expected: nil},
		{name: "no rows", err: sql.ErrNoRows, expected: ErrNotFound},
		{
			name:     "duplicate email",
			err:      &pq.Error{Code: "23505", Constraint: accountsEmailKey},
			expected: ErrDuplicateEmail,
		},
		{
			name:     "duplicate join code",
			err:      &pq.Error{Code: "23505", Constraint: partiesJoinCodeKey},
			expected: ErrDuplicateJoinCode,
		},
		{
			name:     "second active party",
			err:      &pq.Error{Code: "23505", Constraint: partiesActiveHostKey},
			expected: ErrActivePartyExists,
		},
		{name: "other error", err: otherErr, expected: otherErr},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			err := mapError(tc.err)
			if tc.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestSwapSongOrder(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 20, 0, 1, 0, time.UTC)
	t2 := time.Date(2024, 1, 1, 20, 0, 2, 0, time.UTC)

	t.Run("swaps timestamps in one transaction", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockSongsForSwapQuery).
			WithArgs(7, 2, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "added_at", "played"}).
				AddRow(1, t1, false).
				AddRow(2, t2, false))
		mock.ExpectExec(setSongAddedAtQuery).WithArgs(t1, 2).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(setSongAddedAtQuery).WithArgs(t2, 1).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.SwapSongOrder(context.Background(), 7, 2, 1)
		assert.NoError(t, err, "expected swap to succeed")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("equal timestamps still change the order", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockSongsForSwapQuery).
			WithArgs(7, 2, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "added_at", "played"}).
				AddRow(1, t1, false).
				AddRow(2, t1, false))
		mock.ExpectExec(setSongAddedAtQuery).WithArgs(t1, 2).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(setSongAddedAtQuery).WithArgs(t1.Add(time.Microsecond), 1).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.SwapSongOrder(context.Background(), 7, 2, 1)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet(), "expected song 1 to move behind song 2")
	})

	t.Run("rolls back both rows when the second update fails", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockSongsForSwapQuery).
			WithArgs(7, 2, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "added_at", "played"}).
				AddRow(1, t1, false).
				AddRow(2, t2, false))
		mock.ExpectExec(setSongAddedAtQuery).WithArgs(t1, 2).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(setSongAddedAtQuery).WithArgs(t2, 1).WillReturnError(errors.New("connection lost"))
		mock.ExpectRollback()

		err := repo.SwapSongOrder(context.Background(), 7, 2, 1)
		assert.EqualError(t, err, "connection lost")
		assert.NoError(t, mock.ExpectationsWereMet(), "expected rollback after failed update")
	})

	t.Run("refuses to swap a played song", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockSongsForSwapQuery).
			WithArgs(7, 2, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "added_at", "played"}).
				AddRow(1, t1, true).
				AddRow(2, t2, false))
		mock.ExpectRollback()

		err := repo.SwapSongOrder(context.Background(), 7, 2, 1)
		assert.ErrorIs(t, err, ErrSongPlayed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing song", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockSongsForSwapQuery).
			WithArgs(7, 2, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "added_at", "played"}).
				AddRow(2, t2, false))
		mock.ExpectRollback()

		err := repo.SwapSongOrder(context.Background(), 7, 2, 1)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateParty(t *testing.T) {
	params := CreatePartyParams{
		HostId:       3,
		Name:         "Friday Karaoke",
		PasswordHash: "hash",
		JoinCode:     "ABC123",
	}
	createdAt := time.Now().UTC()
	partyRow := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{
			"id", "host_id", "username", "name", "password_hash", "join_code", "is_active", "created_at", "ended_at",
		}).AddRow(11, params.HostId, "host", params.Name, params.PasswordHash, params.JoinCode, true, createdAt, nil)
	}

	t.Run("inserts party and host membership", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery(insertPartyQuery).
			WithArgs(params.HostId, params.Name, params.PasswordHash, params.JoinCode, sqlmock.AnyArg()).
			WillReturnRows(partyRow())
		mock.ExpectExec(createMembershipQuery).
			WithArgs(11, params.HostId, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		party, err := repo.CreateParty(context.Background(), params)
		require.NoError(t, err)
		assert.Equal(t, 11, party.Id)
		assert.Equal(t, params.HostId, party.HostId)
		assert.Equal(t, "host", party.HostName)
		assert.Equal(t, "ABC123", party.JoinCode)
		assert.False(t, party.EndedAt.Valid)
		assert.True(t, party.IsActive)
		assert.Equal(t, createdAt, party.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("join code collision", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery(insertPartyQuery).
			WithArgs(params.HostId, params.Name, params.PasswordHash, params.JoinCode, sqlmock.AnyArg()).
			WillReturnError(&pq.Error{Code: "23505", Constraint: partiesJoinCodeKey})
		mock.ExpectRollback()

		_, err := repo.CreateParty(context.Background(), params)
		assert.ErrorIs(t, err, ErrDuplicateJoinCode)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("membership insert fails", func(t *testing.T) {
		repo, mock := newMockRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery(insertPartyQuery).
			WithArgs(params.HostId, params.Name, params.PasswordHash, params.JoinCode, sqlmock.AnyArg()).
			WillReturnRows(partyRow())
		mock.ExpectExec(createMembershipQuery).
			WithArgs(11, params.HostId, sqlmock.AnyArg()).
			WillReturnError(errors.New("db error"))
		mock.ExpectRollback()

		_, err := repo.CreateParty(context.Background(), params)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListUnplayedSongs(t *testing.T) {
	repo, mock := newMockRepository(t)
	t1 := time.Date(2024, 1, 1, 20, 0, 1, 0, time.UTC)
	t2 := time.Date(2024, 1, 1, 20, 0, 2, 0, time.UTC)

	mock.ExpectQuery(listUnplayedSongsQuery).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows(songRowColumns).
			AddRow(1, 7, "abc123", "Don't Stop Believin'", "thumb", "Journey", nil, "Alex", "Alex", t1, false, nil).
			AddRow(2, 7, "def456", "Africa", "thumb", "Toto", 3, nil, "host", t2, false, nil))

	songs, err := repo.ListUnplayedSongs(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, songs, 2)

	assert.Equal(t, 1, songs[0].Id)
	assert.False(t, songs[0].AddedByUserId.Valid)
	assert.Equal(t, "Alex", songs[0].AddedByGuestName.String)
	assert.Equal(t, t1, songs[0].AddedAt)

	assert.Equal(t, int64(3), songs[1].AddedByUserId.Int64)
	assert.False(t, songs[1].AddedByGuestName.Valid)
	assert.Equal(t, "host", songs[1].AddedByName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSongPlayed(t *testing.T) {
	tcases := []struct {
		name     string
		affected int64
		expected error
	}{
		{name: "marks song", affected: 1, expected: nil},
		{name: "song not in party", affected: 0, expected: ErrNotFound},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			mock.ExpectExec(markSongPlayedQuery).
				WithArgs(7, 1, sqlmock.AnyArg()).
				WillReturnResult(sqlmock.NewResult(0, tc.affected))

			err := repo.MarkSongPlayed(context.Background(), 7, 1)
			if tc.expected == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.expected)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDeleteSong(t *testing.T) {
	t.Run("deletes unplayed song", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectExec(deleteSongQuery).WithArgs(7, 1).WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.DeleteSong(context.Background(), 7, 1))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing deleted", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectExec(deleteSongQuery).WithArgs(7, 1).WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.DeleteSong(context.Background(), 7, 1), ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetActivePartyByJoinCode_NotFound(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(getActivePartyByJoinCodeQuery).WithArgs("NOPE00").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetActivePartyByJoinCode(context.Background(), "NOPE00")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
