package database

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateEmail    = errors.New("email address already registered")
	ErrDuplicateJoinCode = errors.New("join code already in use")
	ErrActivePartyExists = errors.New("host already has an active party")
	ErrSongPlayed        = errors.New("song already played")
)

// KaraokeRepository is the Queue Store. It owns all persisted party and
// song state; queue order is ascending added_at among unplayed songs.
type KaraokeRepository interface {
	Ping() error

	CreateAccount(ctx context.Context, params CreateAccountParams) (User, error)
	GetAccountById(ctx context.Context, id int) (User, error)
	GetAccountByEmail(ctx context.Context, email string) (User, error)

	CreateParty(ctx context.Context, params CreatePartyParams) (Party, error)
	JoinCodeExists(ctx context.Context, code string) (bool, error)
	GetPartyById(ctx context.Context, id int) (Party, error)
	GetActivePartyByJoinCode(ctx context.Context, code string) (Party, error)
	GetActivePartyForHost(ctx context.Context, hostId int) (Party, error)
	ListPartiesForMember(ctx context.Context, userId int) ([]PartySummary, error)
	EndParty(ctx context.Context, id int) (Party, error)

	CreateMembership(ctx context.Context, partyId, userId int) error
	MembershipExists(ctx context.Context, partyId, userId int) (bool, error)
	ListMembers(ctx context.Context, partyId int) ([]Member, error)

	CreateSong(ctx context.Context, params CreateSongParams) (Song, error)
	GetSong(ctx context.Context, partyId, songId int) (Song, error)
	ListSongs(ctx context.Context, partyId int) ([]Song, error)
	ListUnplayedSongs(ctx context.Context, partyId int) ([]Song, error)
	MarkSongPlayed(ctx context.Context, partyId, songId int) error
	SwapSongOrder(ctx context.Context, partyId, songId, otherSongId int) error
	DeleteSong(ctx context.Context, partyId, songId int) error
}
