package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/npezzotti/go-karaoke/internal/types"
	"github.com/teris-io/shortid"
)

const subscriberQueueSize = 64

// Subscriber is one live connection to a party's event stream.
type Subscriber struct {
	id        string
	partyId   int
	send      chan *types.Event
	done      chan struct{}
	closeOnce sync.Once
}

func NewSubscriber(partyId int) *Subscriber {
	return &Subscriber{
		id:      newSubscriberId(),
		partyId: partyId,
		send:    make(chan *types.Event, subscriberQueueSize),
		done:    make(chan struct{}),
	}
}

func newSubscriberId() string {
	id, err := shortid.Generate()
	if err != nil {
		return fmt.Sprintf("sub-%d", time.Now().UnixNano())
	}
	return id
}

func (s *Subscriber) Id() string {
	return s.id
}

// Done is closed once the hub has evicted the subscriber.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

func (s *Subscriber) queueEvent(evt *types.Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- evt:
	default:
		return false
	}

	return true
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}
