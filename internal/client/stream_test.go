package client

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/npezzotti/go-karaoke/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errReader struct {
	r   io.Reader
	err error
}

func (e *errReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err == io.EOF {
		return n, e.err
	}
	return n, err
}

func TestReadStream(t *testing.T) {
	stream := ": connected\n\n" +
		"data: {\"type\":\"connected\",\"party_id\":7}\n\n" +
		": keepalive\n\n" +
		"data: {\"type\":\"songs\",\"party_id\":7,\"songs\":[]}\n\n" +
		"event: ignored\n" +
		"data: {\"type\":\"song_played\",\n" +
		"data: \"party_id\":7,\"song_id\":3}\n\n" +
		"data: not json\n\n" +
		"data: {\"party_id\":7}\n\n" +
		"data: {\"type\":\"song_added\",\"party_id\":7,\"song\":{\"id\":4,\"video_id\":\"abc123\"}}\n\n"

	var events []*types.Event
	err := ReadStream(strings.NewReader(stream), func(evt *types.Event) {
		events = append(events, evt)
	})

	var terr *TransportError
	require.ErrorAs(t, err, &terr, "expected a closed stream to be a transport error")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	require.Len(t, events, 4)
	assert.Equal(t, types.EventConnected, events[0].Type)
	assert.Equal(t, types.EventSongs, events[1].Type)
	assert.Equal(t, types.EventSongPlayed, events[2].Type)
	assert.Equal(t, 3, events[2].SongId, "expected multi-line data to be joined")
	assert.Equal(t, types.EventSongAdded, events[3].Type)
	assert.Equal(t, "abc123", events[3].Song.VideoRef)
}

func TestReadStream_ReadError(t *testing.T) {
	boom := errors.New("connection reset by peer")
	r := &errReader{r: strings.NewReader("data: {\"type\":\"connected\",\"party_id\":7}\n\n"), err: boom}

	var n int
	err := ReadStream(r, func(*types.Event) { n++ })

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, n)
}

func TestReadStream_IncompleteFrame(t *testing.T) {
	var n int
	err := ReadStream(strings.NewReader("data: {\"type\":\"connected\",\"party_id\":7}\n"), func(*types.Event) { n++ })

	assert.Error(t, err)
	assert.Equal(t, 0, n, "expected a frame without its terminating blank line to be dropped")
}
