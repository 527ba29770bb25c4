package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/npezzotti/go-karaoke/internal/party"
	"github.com/npezzotti/go-karaoke/internal/types"
)

type CreatePartyRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type JoinPartyRequest struct {
	JoinCode  string `json:"join_code"`
	Password  string `json:"password"`
	GuestName string `json:"guest_name"`
}

type AddSongRequest struct {
	types.SongPayload
	GuestName string `json:"guest_name"`
}

type ReorderRequest struct {
	Direction party.Direction `json:"direction"`
}

type DeleteSongRequest struct {
	GuestName string `json:"guest_name"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

func (s *KaraokeApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *KaraokeApp) writeError(w http.ResponseWriter, r *http.Request, err error) {
	errResp := fromServiceError(err)
	if errResp.StatusCode == http.StatusInternalServerError {
		s.log.Printf("[%s] %s %s: %v", middleware.GetReqID(r.Context()), r.Method, r.URL.Path, err)
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}

// decodeOptional accepts an empty body.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// requestActor resolves the member or guest behind a request.
func requestActor(r *http.Request, guestName string) (party.Actor, error) {
	userId, ok := UserId(r.Context())
	return party.NewActor(userId, ok, guestName)
}

// hostActor never fails: an anonymous caller becomes a nameless guest and
// is rejected by the host check.
func hostActor(r *http.Request) party.Actor {
	if userId, ok := UserId(r.Context()); ok {
		return party.Member{UserId: userId}
	}
	return party.Guest{}
}

func (s *KaraokeApp) partyId(r *http.Request) (int, error) {
	return party.ParseId(chi.URLParam(r, "partyId"))
}

func (s *KaraokeApp) partyAndSongIds(r *http.Request) (int, int, error) {
	partyId, err := s.partyId(r)
	if err != nil {
		return 0, 0, err
	}

	songId, err := party.ParseId(chi.URLParam(r, "songId"))
	if err != nil {
		return 0, 0, err
	}

	return partyId, songId, nil
}

func (s *KaraokeApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Printf("health check: %v", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *KaraokeApp) createParty(w http.ResponseWriter, r *http.Request) {
	var req CreatePartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	p, err := s.svc.CreateParty(r.Context(), hostActor(r), req.Name, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusCreated, p)
}

func (s *KaraokeApp) joinParty(w http.ResponseWriter, r *http.Request) {
	var req JoinPartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	actor, err := requestActor(r, req.GuestName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.svc.JoinParty(r.Context(), actor, req.JoinCode, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, p)
}

func (s *KaraokeApp) listMyParties(w http.ResponseWriter, r *http.Request) {
	parties, err := s.svc.ListMyParties(r.Context(), hostActor(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, parties)
}

func (s *KaraokeApp) getParty(w http.ResponseWriter, r *http.Request) {
	partyId, err := s.partyId(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.svc.GetParty(r.Context(), partyId, hostActor(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, p)
}

func (s *KaraokeApp) endParty(w http.ResponseWriter, r *http.Request) {
	partyId, err := s.partyId(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.svc.EndParty(r.Context(), partyId, hostActor(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, p)
}

func (s *KaraokeApp) listMembers(w http.ResponseWriter, r *http.Request) {
	partyId, err := s.partyId(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	members, err := s.svc.ListMembers(r.Context(), partyId)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, members)
}

func (s *KaraokeApp) listSongs(w http.ResponseWriter, r *http.Request) {
	partyId, err := s.partyId(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	songs, err := s.svc.ListSongs(r.Context(), partyId)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	s.writeJson(w, http.StatusOK, songs)
}

func (s *KaraokeApp) addSong(w http.ResponseWriter, r *http.Request) {
	partyId, err := s.partyId(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req AddSongRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	actor, err := requestActor(r, req.GuestName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	song, err := s.svc.AddSong(r.Context(), partyId, req.SongPayload, actor)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, song)
}

func (s *KaraokeApp) markPlayed(w http.ResponseWriter, r *http.Request) {
	partyId, songId, err := s.partyAndSongIds(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.svc.MarkPlayed(r.Context(), partyId, songId, hostActor(r)); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, SuccessResponse{Success: true})
}

func (s *KaraokeApp) reorderSong(w http.ResponseWriter, r *http.Request) {
	partyId, songId, err := s.partyAndSongIds(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.svc.ReorderSong(r.Context(), partyId, songId, req.Direction, hostActor(r)); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, SuccessResponse{Success: true})
}

func (s *KaraokeApp) deleteSong(w http.ResponseWriter, r *http.Request) {
	partyId, songId, err := s.partyAndSongIds(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req DeleteSongRequest
	if err := decodeOptional(r, &req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	if req.GuestName == "" {
		req.GuestName = r.URL.Query().Get("guest_name")
	}

	actor, err := requestActor(r, req.GuestName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.svc.DeleteSong(r.Context(), partyId, songId, actor); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, SuccessResponse{Success: true})
}

func (s *KaraokeApp) streamEvents(w http.ResponseWriter, r *http.Request) {
	partyId, err := s.partyId(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.svc.Exists(r.Context(), partyId); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.transport.ServeSSE(w, r, partyId)
}

func (s *KaraokeApp) serveWs(w http.ResponseWriter, r *http.Request) {
	partyId, err := s.partyId(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.svc.Exists(r.Context(), partyId); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.transport.ServeWs(w, r, partyId, s.checkOrigin)
}

func (s *KaraokeApp) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	return slices.Contains(s.allowedOrigins, origin)
}
