package party

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/npezzotti/go-karaoke/internal/database"
	"github.com/npezzotti/go-karaoke/internal/types"
)

const (
	maxPartyNameLen = 100
	maxTitleLen     = 300
)

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Publisher fans an event out to the live subscribers of a party.
type Publisher interface {
	Publish(partyId int, evt *types.Event)
}

// Service is the only path by which party and queue state changes. Every
// mutation is authorized, committed to the store and then broadcast.
type Service struct {
	log              *log.Logger
	db               database.KaraokeRepository
	publisher        Publisher
	hasher           PasswordHasher
	generateJoinCode func() (string, error)
}

func NewService(logger *log.Logger, db database.KaraokeRepository, publisher Publisher, hasher PasswordHasher) *Service {
	return &Service{
		log:              logger,
		db:               db,
		publisher:        publisher,
		hasher:           hasher,
		generateJoinCode: generateJoinCode,
	}
}

func (s *Service) CreateParty(ctx context.Context, actor Actor, name, password string) (types.Party, error) {
	host, ok := actor.(Member)
	if !ok {
		return types.Party{}, forbiddenError("sign in to host a party")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return types.Party{}, validationError("party name is required")
	}
	if len(name) > maxPartyNameLen {
		return types.Party{}, validationError("party name must be at most %d characters", maxPartyNameLen)
	}
	if password == "" {
		return types.Party{}, validationError("party password is required")
	}

	_, err := s.db.GetActivePartyForHost(ctx, host.UserId)
	if err == nil {
		return types.Party{}, invalidOperationError("you already have an active party")
	}
	if !errors.Is(err, database.ErrNotFound) {
		return types.Party{}, fmt.Errorf("get active party: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return types.Party{}, fmt.Errorf("hash password: %w", err)
	}

	code, err := s.allocateJoinCode(ctx)
	if err != nil {
		return types.Party{}, err
	}

	p, err := s.db.CreateParty(ctx, database.CreatePartyParams{
		HostId:       host.UserId,
		Name:         name,
		PasswordHash: hash,
		JoinCode:     code,
	})
	if err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicateJoinCode):
			return types.Party{}, conflictError("join code already in use, try again")
		case errors.Is(err, database.ErrActivePartyExists):
			return types.Party{}, invalidOperationError("you already have an active party")
		}
		return types.Party{}, fmt.Errorf("create party: %w", err)
	}

	s.log.Printf("party %d created by user %d with code %s", p.Id, host.UserId, p.JoinCode)
	return toParty(p), nil
}

func (s *Service) allocateJoinCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxJoinCodeAttempts; attempt++ {
		code, err := s.generateJoinCode()
		if err != nil {
			return "", fmt.Errorf("generate join code: %w", err)
		}

		exists, err := s.db.JoinCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check join code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}

	return "", conflictError("could not allocate a unique join code")
}

// JoinParty checks the code and password of an active party. Members are
// recorded idempotently; guests are not persisted.
func (s *Service) JoinParty(ctx context.Context, actor Actor, code, password string) (types.Party, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || password == "" {
		return types.Party{}, validationError("join code and password are required")
	}
	if actor == nil {
		return types.Party{}, validationError("guest name is required")
	}

	p, err := s.db.GetActivePartyByJoinCode(ctx, code)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return types.Party{}, notFoundError("party not found or no longer active")
		}
		return types.Party{}, fmt.Errorf("get party by code: %w", err)
	}

	if !s.hasher.Verify(password, p.PasswordHash) {
		return types.Party{}, forbiddenError("incorrect party password")
	}

	if m, ok := actor.(Member); ok {
		if err := s.db.CreateMembership(ctx, p.Id, m.UserId); err != nil {
			return types.Party{}, fmt.Errorf("create membership: %w", err)
		}
		s.log.Printf("user %d joined party %d", m.UserId, p.Id)
	}

	return toParty(p), nil
}

// GetParty is visible to the host and to authenticated members.
func (s *Service) GetParty(ctx context.Context, partyId int, actor Actor) (types.Party, error) {
	p, err := s.getParty(ctx, partyId)
	if err != nil {
		return types.Party{}, err
	}

	m, ok := actor.(Member)
	if !ok {
		return types.Party{}, forbiddenError("sign in to view this party")
	}

	if m.UserId != p.HostId {
		isMember, err := s.db.MembershipExists(ctx, partyId, m.UserId)
		if err != nil {
			return types.Party{}, fmt.Errorf("check membership: %w", err)
		}
		if !isMember {
			return types.Party{}, forbiddenError("you are not a member of this party")
		}
	}

	return toParty(p), nil
}

// Exists reports a NotFound error for unknown parties.
func (s *Service) Exists(ctx context.Context, partyId int) error {
	_, err := s.getParty(ctx, partyId)
	return err
}

func (s *Service) getParty(ctx context.Context, partyId int) (database.Party, error) {
	if err := validateId(partyId); err != nil {
		return database.Party{}, err
	}

	p, err := s.db.GetPartyById(ctx, partyId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return database.Party{}, notFoundError("party not found")
		}
		return database.Party{}, fmt.Errorf("get party: %w", err)
	}

	return p, nil
}

// ListMyParties returns the active parties the member belongs to, newest first.
func (s *Service) ListMyParties(ctx context.Context, actor Actor) ([]types.Party, error) {
	m, ok := actor.(Member)
	if !ok {
		return nil, forbiddenError("sign in to list your parties")
	}

	summaries, err := s.db.ListPartiesForMember(ctx, m.UserId)
	if err != nil {
		return nil, fmt.Errorf("list parties: %w", err)
	}

	parties := make([]types.Party, 0, len(summaries))
	for _, ps := range summaries {
		p := toParty(ps.Party)
		p.MemberCount = ps.MemberCount
		p.PendingSongs = ps.PendingSongs
		parties = append(parties, p)
	}

	return parties, nil
}

// EndParty soft-ends the party. Ending an ended party is a no-op.
func (s *Service) EndParty(ctx context.Context, partyId int, actor Actor) (types.Party, error) {
	p, err := s.getParty(ctx, partyId)
	if err != nil {
		return types.Party{}, err
	}

	if !isHost(p, actor) {
		return types.Party{}, forbiddenError("Only host can end the party")
	}

	if !p.IsActive {
		return toParty(p), nil
	}

	ended, err := s.db.EndParty(ctx, partyId)
	if err != nil {
		return types.Party{}, fmt.Errorf("end party: %w", err)
	}

	s.publisher.Publish(partyId, &types.Event{Type: types.EventPartyEnded, PartyId: partyId})
	s.log.Printf("party %d ended", partyId)

	return toParty(ended), nil
}

func (s *Service) ListMembers(ctx context.Context, partyId int) ([]types.Member, error) {
	if _, err := s.getParty(ctx, partyId); err != nil {
		return nil, err
	}

	dbMembers, err := s.db.ListMembers(ctx, partyId)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]types.Member, 0, len(dbMembers))
	for _, m := range dbMembers {
		members = append(members, toMember(m))
	}
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})

	return members, nil
}

// ListSongs is the pull fallback: the full queue, unplayed songs first in
// queue order, followed by played history.
func (s *Service) ListSongs(ctx context.Context, partyId int) ([]types.Song, error) {
	if _, err := s.getParty(ctx, partyId); err != nil {
		return nil, err
	}

	return s.Snapshot(ctx, partyId)
}

// Snapshot reads the full queue without checking the party.
func (s *Service) Snapshot(ctx context.Context, partyId int) ([]types.Song, error) {
	songs, err := s.db.ListSongs(ctx, partyId)
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}

	return toSongs(songs), nil
}

// LiveSnapshot is the catch-up state for a new live subscriber: the full
// queue and whether the party is still active.
func (s *Service) LiveSnapshot(ctx context.Context, partyId int) ([]types.Song, bool, error) {
	p, err := s.getParty(ctx, partyId)
	if err != nil {
		return nil, false, err
	}

	songs, err := s.Snapshot(ctx, partyId)
	if err != nil {
		return nil, false, err
	}

	return songs, p.IsActive, nil
}

func (s *Service) AddSong(ctx context.Context, partyId int, payload types.SongPayload, actor Actor) (types.Song, error) {
	if actor == nil {
		return types.Song{}, validationError("guest name is required")
	}

	payload.VideoRef = strings.TrimSpace(payload.VideoRef)
	payload.Title = strings.TrimSpace(payload.Title)
	if payload.VideoRef == "" || payload.Title == "" {
		return types.Song{}, validationError("video id and title are required")
	}
	if len(payload.Title) > maxTitleLen {
		return types.Song{}, validationError("title must be at most %d characters", maxTitleLen)
	}

	p, err := s.getParty(ctx, partyId)
	if err != nil {
		return types.Song{}, err
	}
	if !p.IsActive {
		return types.Song{}, invalidOperationError("party has ended")
	}

	params := database.CreateSongParams{
		PartyId:      partyId,
		VideoRef:     payload.VideoRef,
		Title:        payload.Title,
		ThumbnailRef: payload.ThumbnailRef,
		ChannelLabel: payload.ChannelLabel,
	}

	switch a := actor.(type) {
	case Member:
		isMember, err := s.db.MembershipExists(ctx, partyId, a.UserId)
		if err != nil {
			return types.Song{}, fmt.Errorf("check membership: %w", err)
		}
		if !isMember {
			return types.Song{}, forbiddenError("join the party before adding songs")
		}
		params.AddedByUserId = sql.NullInt64{Int64: int64(a.UserId), Valid: true}
	case Guest:
		params.AddedByGuestName = sql.NullString{String: a.Name, Valid: true}
	default:
		return types.Song{}, validationError("guest name is required")
	}

	dbSong, err := s.db.CreateSong(ctx, params)
	if err != nil {
		return types.Song{}, fmt.Errorf("create song: %w", err)
	}

	song := toSong(dbSong)
	s.publisher.Publish(partyId, types.NewSongAddedEvent(partyId, song))

	return song, nil
}

// MarkPlayed is host-only and idempotent.
func (s *Service) MarkPlayed(ctx context.Context, partyId, songId int, actor Actor) error {
	p, err := s.getParty(ctx, partyId)
	if err != nil {
		return err
	}
	if err := validateId(songId); err != nil {
		return err
	}

	if !isHost(p, actor) {
		return forbiddenError("Only host can mark songs as played")
	}

	if err := s.db.MarkSongPlayed(ctx, partyId, songId); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return notFoundError("song not found")
		}
		return fmt.Errorf("mark song played: %w", err)
	}

	s.publisher.Publish(partyId, types.NewSongPlayedEvent(partyId, songId))
	return nil
}

// ReorderSong swaps a song with its neighbour in the active queue by
// exchanging their added_at timestamps, then broadcasts a snapshot.
func (s *Service) ReorderSong(ctx context.Context, partyId, songId int, direction Direction, actor Actor) error {
	if direction != DirectionUp && direction != DirectionDown {
		return validationError("direction must be %q or %q", DirectionUp, DirectionDown)
	}

	p, err := s.getParty(ctx, partyId)
	if err != nil {
		return err
	}
	if err := validateId(songId); err != nil {
		return err
	}

	if !isHost(p, actor) {
		return forbiddenError("Only host can reorder songs")
	}

	queue, err := s.db.ListUnplayedSongs(ctx, partyId)
	if err != nil {
		return fmt.Errorf("list unplayed songs: %w", err)
	}

	idx := -1
	for i, song := range queue {
		if song.Id == songId {
			idx = i
			break
		}
	}
	if idx == -1 {
		return s.missingFromQueue(ctx, partyId, songId)
	}

	target := idx + 1
	if direction == DirectionUp {
		target = idx - 1
	}
	if target < 0 || target >= len(queue) {
		return invalidOperationError("cannot move in that direction")
	}

	if err := s.db.SwapSongOrder(ctx, partyId, songId, queue[target].Id); err != nil {
		switch {
		case errors.Is(err, database.ErrSongPlayed):
			return invalidOperationError("cannot reorder a played song")
		case errors.Is(err, database.ErrNotFound):
			return notFoundError("song not found")
		}
		return fmt.Errorf("swap song order: %w", err)
	}

	s.publishSnapshot(ctx, partyId)
	return nil
}

func (s *Service) missingFromQueue(ctx context.Context, partyId, songId int) error {
	song, err := s.db.GetSong(ctx, partyId, songId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return notFoundError("song not found")
		}
		return fmt.Errorf("get song: %w", err)
	}

	if song.Played {
		return invalidOperationError("cannot reorder a played song")
	}

	return notFoundError("song not found")
}

// DeleteSong is allowed for the host and for the song's adder. Played songs
// can never be deleted.
func (s *Service) DeleteSong(ctx context.Context, partyId, songId int, actor Actor) error {
	p, err := s.getParty(ctx, partyId)
	if err != nil {
		return err
	}
	if err := validateId(songId); err != nil {
		return err
	}

	song, err := s.db.GetSong(ctx, partyId, songId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return notFoundError("song not found")
		}
		return fmt.Errorf("get song: %w", err)
	}

	if song.Played {
		return invalidOperationError("cannot delete a song that has already been played")
	}

	if !isHost(p, actor) && !isAdder(song, actor) {
		return forbiddenError("you can only delete songs you added")
	}

	if err := s.db.DeleteSong(ctx, partyId, songId); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return notFoundError("song not found")
		}
		return fmt.Errorf("delete song: %w", err)
	}

	s.publishSnapshot(ctx, partyId)
	return nil
}

// publishSnapshot runs after a committed mutation, so a failed read is
// only logged; subscribers catch up on their next snapshot or poll.
func (s *Service) publishSnapshot(ctx context.Context, partyId int) {
	songs, err := s.Snapshot(ctx, partyId)
	if err != nil {
		s.log.Printf("party %d: snapshot after mutation: %v", partyId, err)
		return
	}

	s.publisher.Publish(partyId, types.NewSnapshotEvent(partyId, songs))
}

func isHost(p database.Party, actor Actor) bool {
	m, ok := actor.(Member)
	return ok && m.UserId == p.HostId
}

// isAdder matches guests by exact display name. Two guests using the same
// name can delete each other's songs.
func isAdder(song database.Song, actor Actor) bool {
	switch a := actor.(type) {
	case Member:
		return song.AddedByUserId.Valid && int(song.AddedByUserId.Int64) == a.UserId
	case Guest:
		return song.AddedByGuestName.Valid && song.AddedByGuestName.String == a.Name
	}
	return false
}
