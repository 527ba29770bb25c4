package client

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/npezzotti/go-karaoke/internal/types"
)

const (
	DefaultPollInterval = 15 * time.Second

	minPushRetry = time.Second
	maxPushRetry = 2 * time.Minute
)

type Mode int32

const (
	ModeConnecting Mode = iota
	ModePush
	ModePolling
)

func (m Mode) String() string {
	switch m {
	case ModePush:
		return "push"
	case ModePolling:
		return "polling"
	default:
		return "connecting"
	}
}

// EventSource is the server side of a sync session.
type EventSource interface {
	Subscribe(ctx context.Context, partyId int, onEvent func(*types.Event)) error
	ListSongs(ctx context.Context, partyId int) ([]types.Song, error)
}

// Syncer keeps a Store current for one party. It prefers the live stream;
// when the stream fails it polls the full queue until the next push retry.
// Push and polling run on the same goroutine and never overlap.
type Syncer struct {
	log          *log.Logger
	src          EventSource
	store        *Store
	partyId      int
	pollInterval time.Duration
	newBackOff   func() backoff.BackOff
	mode         atomic.Int32
}

func NewSyncer(logger *log.Logger, src EventSource, store *Store, partyId int) *Syncer {
	return &Syncer{
		log:          logger,
		src:          src,
		store:        store,
		partyId:      partyId,
		pollInterval: DefaultPollInterval,
		newBackOff:   newPushBackOff,
	}
}

// newPushBackOff jitters by half the interval, so starting at twice the
// minimum keeps every retry at or above minPushRetry.
func newPushBackOff() backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     2 * minPushRetry,
		RandomizationFactor: 0.5,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         maxPushRetry,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}

func (s *Syncer) Mode() Mode {
	return Mode(s.mode.Load())
}

func (s *Syncer) setMode(m Mode) {
	if Mode(s.mode.Swap(int32(m))) != m {
		s.log.Printf("party %d: sync mode %s", s.partyId, m)
	}
}

// Run syncs until ctx is cancelled, the party ends or the server rejects
// the subscription outright.
func (s *Syncer) Run(ctx context.Context) error {
	retry := s.newBackOff()

	for {
		s.setMode(ModeConnecting)
		err := s.push(ctx, retry)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.store.Ended() {
			return nil
		}

		var terr *TransportError
		if !errors.As(err, &terr) {
			return err
		}

		wait := retry.NextBackOff()
		if wait == backoff.Stop {
			wait = maxPushRetry
		}
		s.log.Printf("party %d: %v, polling for %s", s.partyId, err, wait)

		if err := s.poll(ctx, wait); err != nil {
			return err
		}
		if s.store.Ended() {
			return nil
		}
	}
}

// push streams events into the store. A stream that reaches connected
// resets the retry backoff. A party_ended event ends the stream.
func (s *Syncer) push(ctx context.Context, retry backoff.BackOff) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	return s.src.Subscribe(ctx, s.partyId, func(evt *types.Event) {
		if evt.Type == types.EventConnected {
			retry.Reset()
			s.setMode(ModePush)
		}

		s.store.Apply(evt)

		if evt.Type == types.EventPartyEnded {
			cancel()
		}
	})
}

// poll refreshes the store immediately and then every pollInterval until
// the push retry is due.
func (s *Syncer) poll(ctx context.Context, until time.Duration) error {
	s.setMode(ModePolling)

	retryTimer := time.NewTimer(until)
	defer retryTimer.Stop()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	s.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-retryTimer.C:
			return nil
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *Syncer) refresh(ctx context.Context) {
	songs, err := s.src.ListSongs(ctx, s.partyId)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Printf("party %d: poll: %v", s.partyId, err)
		}
		return
	}

	s.store.ApplySnapshot(songs)
}
