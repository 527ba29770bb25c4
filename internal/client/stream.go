package client

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/npezzotti/go-karaoke/internal/types"
)

const maxFrameSize = 1 << 20

// ReadStream parses "data: <json>" frames from an event stream and calls
// onEvent for each. Comment lines, which carry keep-alives, are skipped,
// as are frames that do not decode. It always returns a *TransportError,
// wrapping io.ErrUnexpectedEOF when the server closed the stream.
func ReadStream(r io.Reader, onEvent func(*types.Event)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	var data []string
	for sc.Scan() {
		line := sc.Text()

		if line == "" {
			if len(data) > 0 {
				dispatch(strings.Join(data, "\n"), onEvent)
				data = data[:0]
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
	}

	if err := sc.Err(); err != nil {
		return &TransportError{Err: err}
	}

	return &TransportError{Err: io.ErrUnexpectedEOF}
}

func dispatch(payload string, onEvent func(*types.Event)) {
	var evt types.Event
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		return
	}
	if evt.Type == "" {
		return
	}

	if onEvent != nil {
		onEvent(&evt)
	}
}
