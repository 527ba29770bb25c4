package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/npezzotti/go-karaoke/internal/types"
)

const requestTimeout = 10 * time.Second

const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// APIError is an error response decoded from the server.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// TransportError reports that the live event stream could not be opened or
// was dropped. It is a signal to fall back to polling, not a fatal error.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "live transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client talks to the karaoke HTTP API. The session cookie set by Login is
// kept in a cookie jar and sent with every later request.
type Client struct {
	baseURL string
	http    *http.Client
	stream  *http.Client
}

func NewClient(baseURL string) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: requestTimeout},
		// streams stay open indefinitely; ctx cancels them
		stream: &http.Client{Jar: jar},
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		return decodeAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.ToLower(http.StatusText(resp.StatusCode))
	}
	apiErr.StatusCode = resp.StatusCode
	return apiErr
}

func partyPath(partyId int, rest string) string {
	return fmt.Sprintf("/api/parties/%d%s", partyId, rest)
}

func songPath(partyId, songId int, rest string) string {
	return fmt.Sprintf("/api/parties/%d/songs/%d%s", partyId, songId, rest)
}

func (c *Client) Register(ctx context.Context, email, username, password string) (types.User, error) {
	var u types.User
	err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    email,
		"username": username,
		"password": password,
	}, &u)
	return u, err
}

func (c *Client) Login(ctx context.Context, email, password string) (types.User, error) {
	var u types.User
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &u)
	return u, err
}

// JoinParty joins by code. guestName is ignored by the server when the
// client is signed in.
func (c *Client) JoinParty(ctx context.Context, code, password, guestName string) (types.Party, error) {
	var p types.Party
	err := c.do(ctx, http.MethodPost, "/api/parties/join", map[string]string{
		"join_code":  code,
		"password":   password,
		"guest_name": guestName,
	}, &p)
	return p, err
}

func (c *Client) ListSongs(ctx context.Context, partyId int) ([]types.Song, error) {
	var songs []types.Song
	err := c.do(ctx, http.MethodGet, partyPath(partyId, "/songs"), nil, &songs)
	return songs, err
}

func (c *Client) ListMembers(ctx context.Context, partyId int) ([]types.Member, error) {
	var members []types.Member
	err := c.do(ctx, http.MethodGet, partyPath(partyId, "/members"), nil, &members)
	return members, err
}

func (c *Client) AddSong(ctx context.Context, partyId int, payload types.SongPayload, guestName string) (types.Song, error) {
	body := struct {
		types.SongPayload
		GuestName string `json:"guest_name,omitempty"`
	}{payload, guestName}

	var song types.Song
	err := c.do(ctx, http.MethodPost, partyPath(partyId, "/songs"), body, &song)
	return song, err
}

func (c *Client) MarkPlayed(ctx context.Context, partyId, songId int) error {
	return c.do(ctx, http.MethodPatch, songPath(partyId, songId, "/played"), nil, nil)
}

func (c *Client) ReorderSong(ctx context.Context, partyId, songId int, direction string) error {
	return c.do(ctx, http.MethodPatch, songPath(partyId, songId, "/reorder"), map[string]string{
		"direction": direction,
	}, nil)
}

func (c *Client) DeleteSong(ctx context.Context, partyId, songId int, guestName string) error {
	var body any
	if guestName != "" {
		body = map[string]string{"guest_name": guestName}
	}
	return c.do(ctx, http.MethodDelete, songPath(partyId, songId, ""), body, nil)
}

// Subscribe opens the party's event stream and calls onEvent for every
// frame until the stream ends. Failing to connect, a server error and a
// dropped stream are all reported as *TransportError. A 4xx answer means
// the party cannot be streamed at all and is returned as *APIError.
func (c *Client) Subscribe(ctx context.Context, partyId int, onEvent func(*types.Event)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+partyPath(partyId, "/stream"), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer func() {
		resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		apiErr := decodeAPIError(resp)
		if resp.StatusCode/100 == 4 {
			return apiErr
		}
		return &TransportError{Err: apiErr}
	}

	return ReadStream(resp.Body, onEvent)
}
