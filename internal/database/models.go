package database

import (
	"database/sql"
	"time"
)

type User struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Party struct {
	Id           int
	HostId       int
	HostName     string
	Name         string
	PasswordHash string
	JoinCode     string
	IsActive     bool
	CreatedAt    time.Time
	EndedAt      sql.NullTime
}

type PartySummary struct {
	Party
	MemberCount  int
	PendingSongs int
}

type Member struct {
	UserId   sql.NullInt64
	Name     string
	IsGuest  bool
	JoinedAt time.Time
}

type Song struct {
	Id               int
	PartyId          int
	VideoRef         string
	Title            string
	ThumbnailRef     string
	ChannelLabel     string
	AddedByUserId    sql.NullInt64
	AddedByGuestName sql.NullString
	AddedByName      string
	AddedAt          time.Time
	Played           bool
	PlayedAt         sql.NullTime
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
}

type CreatePartyParams struct {
	HostId       int
	Name         string
	PasswordHash string
	JoinCode     string
}

type CreateSongParams struct {
	PartyId          int
	VideoRef         string
	Title            string
	ThumbnailRef     string
	ChannelLabel     string
	AddedByUserId    sql.NullInt64
	AddedByGuestName sql.NullString
}
