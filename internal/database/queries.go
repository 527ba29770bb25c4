package database

import (
	"context"
	"time"
)

const (
	createAccountQuery = "INSERT INTO accounts (username, email, password_hash, created_at, updated_at) " +
		"VALUES ($1, $2, $3, $4, $4) RETURNING id, username, email, created_at, updated_at"
	getAccountByIdQuery = "SELECT id, username, email, created_at, updated_at FROM accounts " +
		"WHERE id = $1 LIMIT 1"
	getAccountByEmailQuery = "SELECT id, username, email, password_hash, created_at, updated_at FROM accounts " +
		"WHERE email = $1 LIMIT 1"

	partyColumns = "p.id, p.host_id, a.username, p.name, p.password_hash, p.join_code, p.is_active, p.created_at, p.ended_at"

	insertPartyQuery = `
		WITH p AS (
			INSERT INTO parties (host_id, name, password_hash, join_code, is_active, created_at)
			VALUES ($1, $2, $3, $4, TRUE, $5)
			RETURNING *
		)
		SELECT ` + partyColumns + ` FROM p JOIN accounts a ON a.id = p.host_id`
	createMembershipQuery = "INSERT INTO party_members (party_id, user_id, joined_at) VALUES ($1, $2, $3) " +
		"ON CONFLICT (party_id, user_id) DO NOTHING"
	joinCodeExistsQuery = "SELECT EXISTS (SELECT 1 FROM parties WHERE join_code = $1)"
	getPartyByIdQuery   = "SELECT " + partyColumns + " FROM parties p JOIN accounts a ON a.id = p.host_id " +
		"WHERE p.id = $1"
	getActivePartyByJoinCodeQuery = "SELECT " + partyColumns + " FROM parties p JOIN accounts a ON a.id = p.host_id " +
		"WHERE p.join_code = $1 AND p.is_active = TRUE"
	getActivePartyForHostQuery = "SELECT " + partyColumns + " FROM parties p JOIN accounts a ON a.id = p.host_id " +
		"WHERE p.host_id = $1 AND p.is_active = TRUE"
	endPartyQuery = "UPDATE parties SET is_active = FALSE, ended_at = COALESCE(ended_at, $2) " +
		"WHERE id = $1 RETURNING id"
	membershipExistsQuery = "SELECT EXISTS (SELECT 1 FROM party_members WHERE party_id = $1 AND user_id = $2)"

	listPartiesForMemberQuery = `
		SELECT ` + partyColumns + `,
			(SELECT COUNT(*) FROM party_members WHERE party_id = p.id) +
			(SELECT COUNT(DISTINCT added_by_guest_name) FROM party_songs
				WHERE party_id = p.id AND added_by_guest_name IS NOT NULL) AS member_count,
			(SELECT COUNT(*) FROM party_songs WHERE party_id = p.id AND played = FALSE) AS pending_songs
		FROM parties p
		JOIN accounts a ON a.id = p.host_id
		JOIN party_members pm ON pm.party_id = p.id
		WHERE pm.user_id = $1 AND p.is_active = TRUE
		ORDER BY p.created_at DESC`

	listAccountMembersQuery = "SELECT a.id, a.username, pm.joined_at FROM party_members pm " +
		"JOIN accounts a ON a.id = pm.user_id WHERE pm.party_id = $1"
	listGuestMembersQuery = "SELECT added_by_guest_name, MIN(added_at) FROM party_songs " +
		"WHERE party_id = $1 AND added_by_guest_name IS NOT NULL GROUP BY added_by_guest_name"
)

func (db *PgKaraokeRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (User, error) {
	res := db.conn.QueryRowContext(
		ctx,
		createAccountQuery,
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, mapError(err)
}

func (db *PgKaraokeRepository) GetAccountById(ctx context.Context, id int) (User, error) {
	row := db.conn.QueryRowContext(ctx, getAccountByIdQuery, id)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, mapError(err)
}

func (db *PgKaraokeRepository) GetAccountByEmail(ctx context.Context, email string) (User, error) {
	row := db.conn.QueryRowContext(ctx, getAccountByEmailQuery, email)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, mapError(err)
}

// CreateParty inserts the party and the host's membership in one transaction.
func (db *PgKaraokeRepository) CreateParty(ctx context.Context, params CreatePartyParams) (Party, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return Party{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()

	var party Party
	err = tx.QueryRowContext(
		ctx,
		insertPartyQuery,
		params.HostId,
		params.Name,
		params.PasswordHash,
		params.JoinCode,
		now,
	).Scan(
		&party.Id,
		&party.HostId,
		&party.HostName,
		&party.Name,
		&party.PasswordHash,
		&party.JoinCode,
		&party.IsActive,
		&party.CreatedAt,
		&party.EndedAt,
	)
	if err != nil {
		return Party{}, mapError(err)
	}

	if _, err = tx.ExecContext(ctx, createMembershipQuery, party.Id, params.HostId, now); err != nil {
		return Party{}, err
	}

	if err = tx.Commit(); err != nil {
		return Party{}, err
	}

	return party, nil
}

func (db *PgKaraokeRepository) JoinCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx, joinCodeExistsQuery, code).Scan(&exists)
	return exists, err
}

func (db *PgKaraokeRepository) GetPartyById(ctx context.Context, id int) (Party, error) {
	return db.getParty(ctx, getPartyByIdQuery, id)
}

func (db *PgKaraokeRepository) GetActivePartyByJoinCode(ctx context.Context, code string) (Party, error) {
	return db.getParty(ctx, getActivePartyByJoinCodeQuery, code)
}

func (db *PgKaraokeRepository) GetActivePartyForHost(ctx context.Context, hostId int) (Party, error) {
	return db.getParty(ctx, getActivePartyForHostQuery, hostId)
}

func (db *PgKaraokeRepository) getParty(ctx context.Context, query string, arg any) (Party, error) {
	var p Party
	err := db.conn.QueryRowContext(ctx, query, arg).Scan(
		&p.Id,
		&p.HostId,
		&p.HostName,
		&p.Name,
		&p.PasswordHash,
		&p.JoinCode,
		&p.IsActive,
		&p.CreatedAt,
		&p.EndedAt,
	)

	return p, mapError(err)
}

func (db *PgKaraokeRepository) ListPartiesForMember(ctx context.Context, userId int) ([]PartySummary, error) {
	rows, err := db.conn.QueryContext(ctx, listPartiesForMemberQuery, userId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	parties := make([]PartySummary, 0)
	for rows.Next() {
		var p PartySummary
		if err := rows.Scan(
			&p.Id,
			&p.HostId,
			&p.HostName,
			&p.Name,
			&p.PasswordHash,
			&p.JoinCode,
			&p.IsActive,
			&p.CreatedAt,
			&p.EndedAt,
			&p.MemberCount,
			&p.PendingSongs,
		); err != nil {
			return nil, err
		}
		parties = append(parties, p)
	}

	return parties, rows.Err()
}

func (db *PgKaraokeRepository) EndParty(ctx context.Context, id int) (Party, error) {
	var partyId int
	if err := db.conn.QueryRowContext(ctx, endPartyQuery, id, time.Now().UTC()).Scan(&partyId); err != nil {
		return Party{}, mapError(err)
	}

	return db.GetPartyById(ctx, partyId)
}

func (db *PgKaraokeRepository) CreateMembership(ctx context.Context, partyId, userId int) error {
	_, err := db.conn.ExecContext(ctx, createMembershipQuery, partyId, userId, time.Now().UTC())
	return err
}

func (db *PgKaraokeRepository) MembershipExists(ctx context.Context, partyId, userId int) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx, membershipExistsQuery, partyId, userId).Scan(&exists)
	return exists, err
}

// ListMembers returns account members followed by the distinct guest names
// that have added songs. Guests are never persisted as memberships.
func (db *PgKaraokeRepository) ListMembers(ctx context.Context, partyId int) ([]Member, error) {
	rows, err := db.conn.QueryContext(ctx, listAccountMembersQuery, partyId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]Member, 0)
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserId, &m.Name, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	guestRows, err := db.conn.QueryContext(ctx, listGuestMembersQuery, partyId)
	if err != nil {
		return nil, err
	}
	defer guestRows.Close()

	for guestRows.Next() {
		m := Member{IsGuest: true}
		if err := guestRows.Scan(&m.Name, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	return members, guestRows.Err()
}
