package client

import (
	"context"

	"github.com/npezzotti/go-karaoke/internal/types"
)

// Session applies one user's queue changes to a party, keeping the Store
// optimistic while requests are in flight.
type Session struct {
	api       *Client
	store     *Store
	partyId   int
	guestName string
	name      string
}

// NewSession binds a client to a party. guestName is empty for signed-in
// users; name is the display name shown on optimistic entries.
func NewSession(api *Client, store *Store, partyId int, guestName, name string) *Session {
	if name == "" {
		name = guestName
	}
	return &Session{
		api:       api,
		store:     store,
		partyId:   partyId,
		guestName: guestName,
		name:      name,
	}
}

func (s *Session) PartyId() int {
	return s.partyId
}

func (s *Session) Store() *Store {
	return s.store
}

// AddSong shows the song at once and replaces it with the server record,
// or removes it again if the server refuses.
func (s *Session) AddSong(ctx context.Context, payload types.SongPayload) (types.Song, error) {
	tempId := s.store.AddOptimistic(payload, s.partyId, s.name)

	song, err := s.api.AddSong(ctx, s.partyId, payload, s.guestName)
	if err != nil {
		s.store.Rollback(tempId)
		return types.Song{}, err
	}

	s.store.Confirm(tempId, song)
	return song, nil
}

func (s *Session) MarkPlayed(ctx context.Context, songId int) error {
	undo := s.store.MarkPlayedOptimistic(songId)
	if err := s.api.MarkPlayed(ctx, s.partyId, songId); err != nil {
		undo()
		return err
	}
	return nil
}

// Reorder leaves the local order alone; the server answers with a snapshot.
func (s *Session) Reorder(ctx context.Context, songId int, direction string) error {
	return s.api.ReorderSong(ctx, s.partyId, songId, direction)
}

func (s *Session) Delete(ctx context.Context, songId int) error {
	if err := s.api.DeleteSong(ctx, s.partyId, songId, s.guestName); err != nil {
		return err
	}

	s.store.Remove(songId)
	return nil
}
