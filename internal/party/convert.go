package party

import (
	"github.com/npezzotti/go-karaoke/internal/database"
	"github.com/npezzotti/go-karaoke/internal/types"
)

func toParty(p database.Party) types.Party {
	party := types.Party{
		Id:        p.Id,
		HostId:    p.HostId,
		HostName:  p.HostName,
		Name:      p.Name,
		JoinCode:  p.JoinCode,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
	}
	if p.EndedAt.Valid {
		endedAt := p.EndedAt.Time
		party.EndedAt = &endedAt
	}

	return party
}

func toSong(s database.Song) types.Song {
	song := types.Song{
		Id:           s.Id,
		PartyId:      s.PartyId,
		VideoRef:     s.VideoRef,
		Title:        s.Title,
		ThumbnailRef: s.ThumbnailRef,
		ChannelLabel: s.ChannelLabel,
		AddedByName:  s.AddedByName,
		AddedAt:      s.AddedAt,
		Played:       s.Played,
	}
	if s.AddedByUserId.Valid {
		userId := int(s.AddedByUserId.Int64)
		song.AddedByUserId = &userId
	}
	if s.AddedByGuestName.Valid {
		name := s.AddedByGuestName.String
		song.AddedByGuestName = &name
	}
	if s.PlayedAt.Valid {
		playedAt := s.PlayedAt.Time
		song.PlayedAt = &playedAt
	}

	return song
}

func toSongs(dbSongs []database.Song) []types.Song {
	songs := make([]types.Song, 0, len(dbSongs))
	for _, s := range dbSongs {
		songs = append(songs, toSong(s))
	}
	return songs
}

func toMember(m database.Member) types.Member {
	member := types.Member{
		Name:     m.Name,
		Type:     types.MemberTypeUser,
		JoinedAt: m.JoinedAt,
	}
	if m.IsGuest {
		member.Type = types.MemberTypeGuest
	}
	if m.UserId.Valid {
		member.UserId = int(m.UserId.Int64)
	}

	return member
}
