package server

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/npezzotti/go-karaoke/internal/types"
)

const writeWait = 10 * time.Second

var ErrSubscriberEvicted = errors.New("subscriber evicted")

// SnapshotFunc loads the full queue of a party, played songs included, and
// reports whether the party is still active.
type SnapshotFunc func(ctx context.Context, partyId int) (songs []types.Song, active bool, err error)

type eventWriter interface {
	writeEvent(evt *types.Event) error
	writeKeepAlive() error
}

// Transport delivers a party's events to one live connection, either as a
// server-sent event stream or over a websocket.
type Transport struct {
	log       *log.Logger
	hub       Broadcaster
	snapshot  SnapshotFunc
	keepAlive time.Duration
}

func NewTransport(logger *log.Logger, hub Broadcaster, snapshot SnapshotFunc, keepAlive time.Duration) *Transport {
	return &Transport{
		log:       logger,
		hub:       hub,
		snapshot:  snapshot,
		keepAlive: keepAlive,
	}
}

// stream registers before loading the snapshot so that no mutation
// committed after the snapshot read can be missed. Events queued in the
// meantime are delivered after the snapshot and are idempotent for the
// client.
func (t *Transport) stream(ctx context.Context, partyId int, w eventWriter) error {
	sub := NewSubscriber(partyId)
	t.hub.Subscribe(partyId, sub)
	defer t.hub.Unsubscribe(partyId, sub)

	if err := w.writeEvent(&types.Event{Type: types.EventConnected, PartyId: partyId}); err != nil {
		return err
	}

	songs, active, err := t.snapshot(ctx, partyId)
	if err != nil {
		return err
	}

	if err := w.writeEvent(types.NewSnapshotEvent(partyId, songs)); err != nil {
		return err
	}

	// a subscriber that missed the broadcast still learns the party is over
	if !active {
		if err := w.writeEvent(&types.Event{Type: types.EventPartyEnded, PartyId: partyId}); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(t.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Done():
			return ErrSubscriberEvicted
		case evt := <-sub.send:
			if err := w.writeEvent(evt); err != nil {
				return err
			}
		case <-ticker.C:
			if err := w.writeKeepAlive(); err != nil {
				return err
			}
		}
	}
}
