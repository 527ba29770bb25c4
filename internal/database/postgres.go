package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

const (
	uniqueViolation = "23505"

	accountsEmailKey     = "accounts_email_key"
	partiesJoinCodeKey   = "parties_join_code_key"
	partiesActiveHostKey = "parties_one_active_per_host"
)

type PgKaraokeRepository struct {
	conn *sql.DB
}

func NewPgKaraokeRepository(dsn string) (*PgKaraokeRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgKaraokeRepository{conn: db}, nil
}

func (db *PgKaraokeRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgKaraokeRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// mapError translates driver errors into the package sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		switch pqErr.Constraint {
		case accountsEmailKey:
			return ErrDuplicateEmail
		case partiesJoinCodeKey:
			return ErrDuplicateJoinCode
		case partiesActiveHostKey:
			return ErrActivePartyExists
		}
	}

	return err
}
