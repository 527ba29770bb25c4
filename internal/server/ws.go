package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-karaoke/internal/types"
)

const maxMessageSize = 512

type wsWriter struct {
	conn *websocket.Conn
}

func (c *wsWriter) writeEvent(evt *types.Event) error {
	bytes, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, bytes)
}

func (c *wsWriter) writeKeepAlive() error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// ServeWs upgrades the request and streams the same events as ServeSSE,
// one JSON text message per event. Keep-alives are websocket pings.
func (t *Transport) ServeWs(w http.ResponseWriter, r *http.Request, partyId int, checkOrigin func(r *http.Request) bool) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.log.Println("upgrade:", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go t.read(conn, cancel)

	if err := t.stream(ctx, partyId, &wsWriter{conn: conn}); err != nil {
		t.log.Printf("ws stream for party %d closed: %v", partyId, err)
	}
}

// pongWait leaves room for one lost ping before the peer is given up.
func (t *Transport) pongWait() time.Duration {
	return 2 * t.keepAlive
}

// read discards inbound frames and cancels the stream once the peer goes
// away or stops answering pings.
func (t *Transport) read(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	pongWait := t.pongWait()
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				t.log.Printf("ws: read: %v", err)
			}
			return
		}
	}
}
