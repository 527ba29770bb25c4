package database

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockKaraokeRepository struct {
	mock.Mock
}

func (m *MockKaraokeRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockKaraokeRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockKaraokeRepository) GetAccountById(ctx context.Context, id int) (User, error) {
	args := m.Called(id)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockKaraokeRepository) GetAccountByEmail(ctx context.Context, email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockKaraokeRepository) CreateParty(ctx context.Context, params CreatePartyParams) (Party, error) {
	args := m.Called(params)
	return args.Get(0).(Party), args.Error(1)
}
func (m *MockKaraokeRepository) JoinCodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(code)
	return args.Bool(0), args.Error(1)
}
func (m *MockKaraokeRepository) GetPartyById(ctx context.Context, id int) (Party, error) {
	args := m.Called(id)
	return args.Get(0).(Party), args.Error(1)
}
func (m *MockKaraokeRepository) GetActivePartyByJoinCode(ctx context.Context, code string) (Party, error) {
	args := m.Called(code)
	return args.Get(0).(Party), args.Error(1)
}
func (m *MockKaraokeRepository) GetActivePartyForHost(ctx context.Context, hostId int) (Party, error) {
	args := m.Called(hostId)
	return args.Get(0).(Party), args.Error(1)
}
func (m *MockKaraokeRepository) ListPartiesForMember(ctx context.Context, userId int) ([]PartySummary, error) {
	args := m.Called(userId)
	return args.Get(0).([]PartySummary), args.Error(1)
}
func (m *MockKaraokeRepository) EndParty(ctx context.Context, id int) (Party, error) {
	args := m.Called(id)
	return args.Get(0).(Party), args.Error(1)
}
func (m *MockKaraokeRepository) CreateMembership(ctx context.Context, partyId, userId int) error {
	args := m.Called(partyId, userId)
	return args.Error(0)
}
func (m *MockKaraokeRepository) MembershipExists(ctx context.Context, partyId, userId int) (bool, error) {
	args := m.Called(partyId, userId)
	return args.Bool(0), args.Error(1)
}
func (m *MockKaraokeRepository) ListMembers(ctx context.Context, partyId int) ([]Member, error) {
	args := m.Called(partyId)
	return args.Get(0).([]Member), args.Error(1)
}
func (m *MockKaraokeRepository) CreateSong(ctx context.Context, params CreateSongParams) (Song, error) {
	args := m.Called(params)
	return args.Get(0).(Song), args.Error(1)
}
func (m *MockKaraokeRepository) GetSong(ctx context.Context, partyId, songId int) (Song, error) {
	args := m.Called(partyId, songId)
	return args.Get(0).(Song), args.Error(1)
}
func (m *MockKaraokeRepository) ListSongs(ctx context.Context, partyId int) ([]Song, error) {
	args := m.Called(partyId)
	return args.Get(0).([]Song), args.Error(1)
}
func (m *MockKaraokeRepository) ListUnplayedSongs(ctx context.Context, partyId int) ([]Song, error) {
	args := m.Called(partyId)
	return args.Get(0).([]Song), args.Error(1)
}
func (m *MockKaraokeRepository) MarkSongPlayed(ctx context.Context, partyId, songId int) error {
	args := m.Called(partyId, songId)
	return args.Error(0)
}
func (m *MockKaraokeRepository) SwapSongOrder(ctx context.Context, partyId, songId, otherSongId int) error {
	args := m.Called(partyId, songId, otherSongId)
	return args.Error(0)
}
func (m *MockKaraokeRepository) DeleteSong(ctx context.Context, partyId, songId int) error {
	args := m.Called(partyId, songId)
	return args.Error(0)
}
