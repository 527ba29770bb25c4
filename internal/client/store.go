package client

import (
	"slices"
	"sync"
	"time"

	"github.com/npezzotti/go-karaoke/internal/types"
)

// Entry is a local queue entry: either Optimistic, inserted before the
// server answered, or Confirmed, carrying a server-issued record.
type Entry interface {
	Song() types.Song
	isEntry()
}

// Optimistic entries use negative ids that never collide with server ids.
type Optimistic struct {
	TempId int
	song   types.Song
}

type Confirmed struct {
	song types.Song
}

func (o Optimistic) Song() types.Song { return o.song }
func (c Confirmed) Song() types.Song  { return c.song }
func (Optimistic) isEntry()           {}
func (Confirmed) isEntry()            {}

// Store reconciles pushed events, polled snapshots and local optimistic
// changes into one map of songs. It is safe for concurrent use.
type Store struct {
	lock       sync.Mutex
	entries    map[int]Entry
	nextTempId int
	ended      bool
	onChange   func([]types.Song)
	now        func() time.Time
}

// NewStore creates an empty store. onChange, if set, receives the rendered
// queue after every change and is called without the store lock held.
func NewStore(onChange func([]types.Song)) *Store {
	return &Store{
		entries:    make(map[int]Entry),
		nextTempId: -1,
		onChange:   onChange,
		now:        time.Now,
	}
}

// Queue renders the unplayed songs ordered by AddedAt.
func (s *Store) Queue() []types.Song {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.queue()
}

func (s *Store) queue() []types.Song {
	songs := make([]types.Song, 0, len(s.entries))
	for _, e := range s.entries {
		if song := e.Song(); !song.Played {
			songs = append(songs, song)
		}
	}

	slices.SortFunc(songs, func(a, b types.Song) int {
		if c := a.AddedAt.Compare(b.AddedAt); c != 0 {
			return c
		}
		return a.Id - b.Id
	})

	return songs
}

func (s *Store) Entry(id int) (Entry, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	e, ok := s.entries[id]
	return e, ok
}

func (s *Store) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.entries)
}

func (s *Store) Ended() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.ended
}

// update runs fn under the lock and notifies onChange if fn reports a change.
func (s *Store) update(fn func() bool) {
	s.lock.Lock()
	changed := fn()
	var queue []types.Song
	if changed && s.onChange != nil {
		queue = s.queue()
	}
	s.lock.Unlock()

	if changed && s.onChange != nil {
		s.onChange(queue)
	}
}

// Apply merges one live transport event.
func (s *Store) Apply(evt *types.Event) {
	switch evt.Type {
	case types.EventSongs:
		s.ApplySnapshot(evt.Songs)
	case types.EventSongAdded:
		if evt.Song != nil {
			s.ApplySongAdded(*evt.Song)
		}
	case types.EventSongPlayed:
		s.ApplySongPlayed(evt.SongId)
	case types.EventPartyEnded:
		s.update(func() bool {
			s.ended = true
			return true
		})
	}
}

// ApplySnapshot replaces the whole map. Optimistic entries the server has
// not confirmed yet are dropped with it.
func (s *Store) ApplySnapshot(songs []types.Song) {
	s.update(func() bool {
		s.entries = make(map[int]Entry, len(songs))
		for _, song := range songs {
			s.entries[song.Id] = Confirmed{song: song}
		}
		return true
	})
}

// ApplySongAdded upserts by server id, first removing the oldest optimistic
// entry for the same video.
func (s *Store) ApplySongAdded(song types.Song) {
	s.update(func() bool {
		if _, ok := s.entries[song.Id]; !ok {
			if tempId, ok := s.matchOptimistic(song.VideoRef); ok {
				delete(s.entries, tempId)
			}
		}
		s.upsertConfirmed(song)
		return true
	})
}

// upsertConfirmed stores a server record. A song already known as played
// stays played: add records are never newer than a played event.
func (s *Store) upsertConfirmed(song types.Song) {
	if c, ok := s.entries[song.Id].(Confirmed); ok && c.song.Played && !song.Played {
		song.Played = true
		song.PlayedAt = c.song.PlayedAt
	}
	s.entries[song.Id] = Confirmed{song: song}
}

func (s *Store) matchOptimistic(videoRef string) (int, bool) {
	var (
		match Optimistic
		found bool
	)
	for _, e := range s.entries {
		o, ok := e.(Optimistic)
		if !ok || o.song.VideoRef != videoRef {
			continue
		}
		if !found || o.song.AddedAt.Before(match.song.AddedAt) ||
			(o.song.AddedAt.Equal(match.song.AddedAt) && o.TempId > match.TempId) {
			match, found = o, true
		}
	}
	return match.TempId, found
}

// ApplySongPlayed marks a known song played. Unknown ids and repeated
// events leave the store unchanged.
func (s *Store) ApplySongPlayed(songId int) {
	s.update(func() bool {
		return s.setPlayed(songId, true)
	})
}

func (s *Store) setPlayed(songId int, played bool) bool {
	c, ok := s.entries[songId].(Confirmed)
	if !ok || c.song.Played == played {
		return false
	}

	c.song.Played = played
	if played {
		now := s.now()
		c.song.PlayedAt = &now
	} else {
		c.song.PlayedAt = nil
	}
	s.entries[songId] = c
	return true
}

// AddOptimistic inserts a song the user just submitted and returns its
// temporary id.
func (s *Store) AddOptimistic(payload types.SongPayload, partyId int, addedBy string) int {
	var tempId int
	s.update(func() bool {
		tempId = s.nextTempId
		s.nextTempId--

		s.entries[tempId] = Optimistic{
			TempId: tempId,
			song: types.Song{
				Id:           tempId,
				PartyId:      partyId,
				VideoRef:     payload.VideoRef,
				Title:        payload.Title,
				ThumbnailRef: payload.ThumbnailRef,
				ChannelLabel: payload.ChannelLabel,
				AddedByName:  addedBy,
				AddedAt:      s.now(),
			},
		}
		return true
	})
	return tempId
}

// Confirm swaps an optimistic entry for the server's record. The entry may
// already be gone if a song_added event or a snapshot got there first.
func (s *Store) Confirm(tempId int, song types.Song) {
	s.update(func() bool {
		delete(s.entries, tempId)
		s.upsertConfirmed(song)
		return true
	})
}

// Rollback removes an optimistic entry whose add failed.
func (s *Store) Rollback(tempId int) {
	s.update(func() bool {
		if _, ok := s.entries[tempId].(Optimistic); !ok {
			return false
		}
		delete(s.entries, tempId)
		return true
	})
}

// MarkPlayedOptimistic marks a song played locally and returns a function
// that restores it. The undo is a no-op if the song was not changed here.
func (s *Store) MarkPlayedOptimistic(songId int) (undo func()) {
	var changed bool
	s.update(func() bool {
		changed = s.setPlayed(songId, true)
		return changed
	})

	return func() {
		if !changed {
			return
		}
		s.update(func() bool {
			return s.setPlayed(songId, false)
		})
	}
}

// Remove drops a song after a confirmed delete.
func (s *Store) Remove(songId int) {
	s.update(func() bool {
		if _, ok := s.entries[songId]; !ok {
			return false
		}
		delete(s.entries, songId)
		return true
	})
}
