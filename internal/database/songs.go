package database

import (
	"context"
	"database/sql"
	"time"
)

const (
	songColumns = "s.id, s.party_id, s.video_id, s.title, s.thumbnail, s.channel_title, " +
		"s.added_by_user_id, s.added_by_guest_name, COALESCE(a.username, s.added_by_guest_name, 'Unknown'), " +
		"s.added_at, s.played, s.played_at"

	createSongQuery = `
		WITH s AS (
			INSERT INTO party_songs (party_id, video_id, title, thumbnail, channel_title,
				added_by_user_id, added_by_guest_name, added_at, played)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE)
			RETURNING *
		)
		SELECT ` + songColumns + ` FROM s LEFT JOIN accounts a ON a.id = s.added_by_user_id`
	getSongQuery = "SELECT " + songColumns + " FROM party_songs s " +
		"LEFT JOIN accounts a ON a.id = s.added_by_user_id WHERE s.party_id = $1 AND s.id = $2"
	listSongsQuery = "SELECT " + songColumns + " FROM party_songs s " +
		"LEFT JOIN accounts a ON a.id = s.added_by_user_id WHERE s.party_id = $1 " +
		"ORDER BY s.played ASC, s.added_at ASC, s.id ASC"
	listUnplayedSongsQuery = "SELECT " + songColumns + " FROM party_songs s " +
		"LEFT JOIN accounts a ON a.id = s.added_by_user_id WHERE s.party_id = $1 AND s.played = FALSE " +
		"ORDER BY s.added_at ASC, s.id ASC"
	markSongPlayedQuery = "UPDATE party_songs SET played = TRUE, played_at = COALESCE(played_at, $3) " +
		"WHERE party_id = $1 AND id = $2"
	lockSongsForSwapQuery = "SELECT id, added_at, played FROM party_songs " +
		"WHERE party_id = $1 AND id IN ($2, $3) FOR UPDATE"
	setSongAddedAtQuery = "UPDATE party_songs SET added_at = $1 WHERE id = $2"
	deleteSongQuery     = "DELETE FROM party_songs WHERE party_id = $1 AND id = $2 AND played = FALSE"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanSong(row scanner) (Song, error) {
	var s Song
	err := row.Scan(
		&s.Id,
		&s.PartyId,
		&s.VideoRef,
		&s.Title,
		&s.ThumbnailRef,
		&s.ChannelLabel,
		&s.AddedByUserId,
		&s.AddedByGuestName,
		&s.AddedByName,
		&s.AddedAt,
		&s.Played,
		&s.PlayedAt,
	)
	return s, err
}

// CreateSong appends an unplayed song stamped with the current time and
// returns it joined with the adder's display name.
func (db *PgKaraokeRepository) CreateSong(ctx context.Context, params CreateSongParams) (Song, error) {
	row := db.conn.QueryRowContext(
		ctx,
		createSongQuery,
		params.PartyId,
		params.VideoRef,
		params.Title,
		params.ThumbnailRef,
		params.ChannelLabel,
		params.AddedByUserId,
		params.AddedByGuestName,
		time.Now().UTC(),
	)

	song, err := scanSong(row)
	return song, mapError(err)
}

func (db *PgKaraokeRepository) GetSong(ctx context.Context, partyId, songId int) (Song, error) {
	song, err := scanSong(db.conn.QueryRowContext(ctx, getSongQuery, partyId, songId))
	return song, mapError(err)
}

func (db *PgKaraokeRepository) ListSongs(ctx context.Context, partyId int) ([]Song, error) {
	return db.listSongs(ctx, listSongsQuery, partyId)
}

func (db *PgKaraokeRepository) ListUnplayedSongs(ctx context.Context, partyId int) ([]Song, error) {
	return db.listSongs(ctx, listUnplayedSongsQuery, partyId)
}

func (db *PgKaraokeRepository) listSongs(ctx context.Context, query string, partyId int) ([]Song, error) {
	rows, err := db.conn.QueryContext(ctx, query, partyId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	songs := make([]Song, 0)
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}

	return songs, rows.Err()
}

// MarkSongPlayed is idempotent: a song that is already played keeps its
// original played_at.
func (db *PgKaraokeRepository) MarkSongPlayed(ctx context.Context, partyId, songId int) error {
	res, err := db.conn.ExecContext(ctx, markSongPlayedQuery, partyId, songId, time.Now().UTC())
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// SwapSongOrder exchanges the added_at timestamps of two unplayed songs.
// Both rows are locked and both updates commit together or not at all.
func (db *PgKaraokeRepository) SwapSongOrder(ctx context.Context, partyId, songId, otherSongId int) error {
	tx, err := db.conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, lockSongsForSwapQuery, partyId, songId, otherSongId)
	if err != nil {
		return err
	}

	addedAt := make(map[int]time.Time, 2)
	for rows.Next() {
		var (
			id     int
			at     time.Time
			played bool
		)
		if err = rows.Scan(&id, &at, &played); err != nil {
			rows.Close()
			return err
		}
		if played {
			rows.Close()
			err = ErrSongPlayed
			return err
		}
		addedAt[id] = at
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return err
	}

	if len(addedAt) != 2 {
		err = ErrNotFound
		return err
	}

	newSong, newOther := addedAt[otherSongId], addedAt[songId]
	// equal timestamps fall back to id order, so the lower id moves back a tick
	if newSong.Equal(newOther) {
		if songId < otherSongId {
			newSong = newSong.Add(time.Microsecond)
		} else {
			newOther = newOther.Add(time.Microsecond)
		}
	}

	if _, err = tx.ExecContext(ctx, setSongAddedAtQuery, newSong, songId); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, setSongAddedAtQuery, newOther, otherSongId); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteSong removes an unplayed song. Played songs are history and are
// reported as not found.
func (db *PgKaraokeRepository) DeleteSong(ctx context.Context, partyId, songId int) error {
	res, err := db.conn.ExecContext(ctx, deleteSongQuery, partyId, songId)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}
