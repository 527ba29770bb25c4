package party

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/npezzotti/go-karaoke/internal/database"
	"github.com/npezzotti/go-karaoke/internal/testutil"
	"github.com/npezzotti/go-karaoke/internal/types"
)

type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (plainHasher) Verify(plain, hash string) bool   { return hash == "hashed:"+plain }

type recordingPublisher struct {
	mu     sync.Mutex
	events []*types.Event
}

func (p *recordingPublisher) Publish(partyId int, evt *types.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) Events() []*types.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*types.Event(nil), p.events...)
}

func (p *recordingPublisher) Last() *types.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

func newTestService(t *testing.T, db database.KaraokeRepository) (*Service, *recordingPublisher) {
	pub := &recordingPublisher{}
	return NewService(testutil.TestLogger(t), db, pub, plainHasher{}), pub
}

// memRepository is an in-memory store with the same ordering and
// atomicity rules as the Postgres repository. Methods the tests do not
// need fall through to the nil embedded interface.
type memRepository struct {
	database.KaraokeRepository

	mu      sync.Mutex
	clock   time.Time
	nextId  int
	users   map[int]string
	parties map[int]database.Party
	members map[int]map[int]time.Time
	songs   map[int]database.Song
}

func newMemRepository() *memRepository {
	return &memRepository{
		clock:   time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC),
		users:   make(map[int]string),
		parties: make(map[int]database.Party),
		members: make(map[int]map[int]time.Time),
		songs:   make(map[int]database.Song),
	}
}

func (m *memRepository) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memRepository) id() int {
	m.nextId++
	return m.nextId
}

func (m *memRepository) addUser(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.users[id] = name
	return id
}

func (m *memRepository) CreateParty(ctx context.Context, params database.CreatePartyParams) (database.Party, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.parties {
		if p.JoinCode == params.JoinCode {
			return database.Party{}, database.ErrDuplicateJoinCode
		}
		if p.HostId == params.HostId && p.IsActive {
			return database.Party{}, database.ErrActivePartyExists
		}
	}

	now := m.tick()
	p := database.Party{
		Id:           m.id(),
		HostId:       params.HostId,
		HostName:     m.users[params.HostId],
		Name:         params.Name,
		PasswordHash: params.PasswordHash,
		JoinCode:     params.JoinCode,
		IsActive:     true,
		CreatedAt:    now,
	}
	m.parties[p.Id] = p
	m.members[p.Id] = map[int]time.Time{params.HostId: now}

	return p, nil
}

func (m *memRepository) JoinCodeExists(ctx context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.parties {
		if p.JoinCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepository) GetPartyById(ctx context.Context, id int) (database.Party, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.parties[id]
	if !ok {
		return database.Party{}, database.ErrNotFound
	}
	return p, nil
}

func (m *memRepository) GetActivePartyByJoinCode(ctx context.Context, code string) (database.Party, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.parties {
		if p.JoinCode == code && p.IsActive {
			return p, nil
		}
	}
	return database.Party{}, database.ErrNotFound
}

func (m *memRepository) GetActivePartyForHost(ctx context.Context, hostId int) (database.Party, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.parties {
		if p.HostId == hostId && p.IsActive {
			return p, nil
		}
	}
	return database.Party{}, database.ErrNotFound
}

func (m *memRepository) EndParty(ctx context.Context, id int) (database.Party, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.parties[id]
	if !ok {
		return database.Party{}, database.ErrNotFound
	}
	p.IsActive = false
	if !p.EndedAt.Valid {
		p.EndedAt = sql.NullTime{Time: m.tick(), Valid: true}
	}
	m.parties[id] = p
	return p, nil
}

func (m *memRepository) CreateMembership(ctx context.Context, partyId, userId int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[partyId][userId]; !ok {
		m.members[partyId][userId] = m.tick()
	}
	return nil
}

func (m *memRepository) MembershipExists(ctx context.Context, partyId, userId int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.members[partyId][userId]
	return ok, nil
}

func (m *memRepository) CreateSong(ctx context.Context, params database.CreateSongParams) (database.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := database.Song{
		Id:               m.id(),
		PartyId:          params.PartyId,
		VideoRef:         params.VideoRef,
		Title:            params.Title,
		ThumbnailRef:     params.ThumbnailRef,
		ChannelLabel:     params.ChannelLabel,
		AddedByUserId:    params.AddedByUserId,
		AddedByGuestName: params.AddedByGuestName,
		AddedAt:          m.tick(),
	}
	if s.AddedByUserId.Valid {
		s.AddedByName = m.users[int(s.AddedByUserId.Int64)]
	} else {
		s.AddedByName = s.AddedByGuestName.String
	}
	m.songs[s.Id] = s

	return s, nil
}

func (m *memRepository) GetSong(ctx context.Context, partyId, songId int) (database.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.songs[songId]
	if !ok || s.PartyId != partyId {
		return database.Song{}, database.ErrNotFound
	}
	return s, nil
}

func (m *memRepository) ListSongs(ctx context.Context, partyId int) ([]database.Song, error) {
	return m.list(partyId, true), nil
}

func (m *memRepository) ListUnplayedSongs(ctx context.Context, partyId int) ([]database.Song, error) {
	return m.list(partyId, false), nil
}

func (m *memRepository) list(partyId int, includePlayed bool) []database.Song {
	m.mu.Lock()
	defer m.mu.Unlock()

	songs := make([]database.Song, 0)
	for _, s := range m.songs {
		if s.PartyId != partyId || (s.Played && !includePlayed) {
			continue
		}
		songs = append(songs, s)
	}
	sort.Slice(songs, func(i, j int) bool {
		a, b := songs[i], songs[j]
		if a.Played != b.Played {
			return !a.Played
		}
		if !a.AddedAt.Equal(b.AddedAt) {
			return a.AddedAt.Before(b.AddedAt)
		}
		return a.Id < b.Id
	})

	return songs
}

func (m *memRepository) MarkSongPlayed(ctx context.Context, partyId, songId int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.songs[songId]
	if !ok || s.PartyId != partyId {
		return database.ErrNotFound
	}
	s.Played = true
	if !s.PlayedAt.Valid {
		s.PlayedAt = sql.NullTime{Time: m.tick(), Valid: true}
	}
	m.songs[songId] = s
	return nil
}

func (m *memRepository) SwapSongOrder(ctx context.Context, partyId, songId, otherSongId int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, okA := m.songs[songId]
	b, okB := m.songs[otherSongId]
	if !okA || !okB || a.PartyId != partyId || b.PartyId != partyId {
		return database.ErrNotFound
	}
	if a.Played || b.Played {
		return database.ErrSongPlayed
	}

	a.AddedAt, b.AddedAt = b.AddedAt, a.AddedAt
	m.songs[a.Id] = a
	m.songs[b.Id] = b
	return nil
}

func (m *memRepository) DeleteSong(ctx context.Context, partyId, songId int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.songs[songId]
	if !ok || s.PartyId != partyId || s.Played {
		return database.ErrNotFound
	}
	delete(m.songs, songId)
	return nil
}

func songTitles(songs []types.Song) string {
	titles := make([]string, 0, len(songs))
	for _, s := range songs {
		if !s.Played {
			titles = append(titles, s.Title)
		}
	}
	return strings.Join(titles, ",")
}
