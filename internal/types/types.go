package types

import (
	"encoding/json"
	"time"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Party struct {
	Id           int        `json:"id"`
	HostId       int        `json:"host_id"`
	HostName     string     `json:"host_name,omitempty"`
	Name         string     `json:"name"`
	JoinCode     string     `json:"join_code"`
	IsActive     bool       `json:"is_active"`
	MemberCount  int        `json:"member_count,omitempty"`
	PendingSongs int        `json:"pending_songs,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
}

type MemberType string

const (
	MemberTypeUser  MemberType = "user"
	MemberTypeGuest MemberType = "guest"
)

type Member struct {
	UserId   int        `json:"user_id,omitempty"`
	Name     string     `json:"name"`
	Type     MemberType `json:"member_type"`
	JoinedAt time.Time  `json:"joined_at"`
}

// Song is a queue entry. Exactly one of AddedByUserId and AddedByGuestName
// is set; AddedByName is the resolved display name of either.
type Song struct {
	Id               int        `json:"id"`
	PartyId          int        `json:"party_id"`
	VideoRef         string     `json:"video_id"`
	Title            string     `json:"title"`
	ThumbnailRef     string     `json:"thumbnail"`
	ChannelLabel     string     `json:"channel_title"`
	AddedByUserId    *int       `json:"added_by_user_id,omitempty"`
	AddedByGuestName *string    `json:"added_by_guest_name,omitempty"`
	AddedByName      string     `json:"added_by_name"`
	AddedAt          time.Time  `json:"added_at"`
	Played           bool       `json:"played"`
	PlayedAt         *time.Time `json:"played_at,omitempty"`
}

// SongPayload is the caller-supplied part of a new queue entry.
type SongPayload struct {
	VideoRef     string `json:"video_id"`
	Title        string `json:"title"`
	ThumbnailRef string `json:"thumbnail"`
	ChannelLabel string `json:"channel_title"`
}

type EventType string

const (
	EventConnected  EventType = "connected"
	EventSongs      EventType = "songs"
	EventSongAdded  EventType = "song_added"
	EventSongPlayed EventType = "song_played"
	EventPartyEnded EventType = "party_ended"
)

// Event is a single Live Transport frame. Songs carries a full snapshot,
// Song and SongId carry deltas.
type Event struct {
	Type    EventType `json:"type"`
	PartyId int       `json:"party_id"`
	Songs   []Song    `json:"songs,omitempty"`
	Song    *Song     `json:"song,omitempty"`
	SongId  int       `json:"song_id,omitempty"`
}

// MarshalJSON always emits songs on a snapshot, even when the queue is
// empty, and never on other event types.
func (e Event) MarshalJSON() ([]byte, error) {
	type event Event
	if e.Type != EventSongs {
		return json.Marshal(event(e))
	}

	songs := e.Songs
	if songs == nil {
		songs = []Song{}
	}

	return json.Marshal(struct {
		event
		Songs []Song `json:"songs"`
	}{event(e), songs})
}

func NewSnapshotEvent(partyId int, songs []Song) *Event {
	if songs == nil {
		songs = []Song{}
	}
	return &Event{Type: EventSongs, PartyId: partyId, Songs: songs}
}

func NewSongAddedEvent(partyId int, song Song) *Event {
	return &Event{Type: EventSongAdded, PartyId: partyId, Song: &song}
}

func NewSongPlayedEvent(partyId, songId int) *Event {
	return &Event{Type: EventSongPlayed, PartyId: partyId, SongId: songId}
}
