package server

import (
	"log"
	"sync"

	"github.com/npezzotti/go-karaoke/internal/stats"
	"github.com/npezzotti/go-karaoke/internal/types"
)

// Broadcaster is the per-party fan-out contract. The in-process Hub is the
// only implementation; the queue mutator only depends on Publish.
type Broadcaster interface {
	Subscribe(partyId int, sub *Subscriber)
	Unsubscribe(partyId int, sub *Subscriber)
	Publish(partyId int, evt *types.Event)
}

// Hub holds the live subscribers of every party. Entries are never
// persisted; a subscriber that cannot take an event is evicted.
type Hub struct {
	log     *log.Logger
	stats   stats.StatsProvider
	parties map[int]map[*Subscriber]struct{}
	lock    sync.Mutex
}

func NewHub(logger *log.Logger, su stats.StatsProvider) *Hub {
	su.RegisterMetric(stats.NumActiveSubscribers)
	su.RegisterMetric(stats.NumActiveParties)
	su.RegisterMetric(stats.EventsPublished)
	su.RegisterMetric(stats.SubscribersPruned)

	return &Hub{
		log:     logger,
		stats:   su,
		parties: make(map[int]map[*Subscriber]struct{}),
	}
}

func (h *Hub) Subscribe(partyId int, sub *Subscriber) {
	h.lock.Lock()
	defer h.lock.Unlock()

	subs, ok := h.parties[partyId]
	if !ok {
		subs = make(map[*Subscriber]struct{})
		h.parties[partyId] = subs
		h.stats.Incr(stats.NumActiveParties)
	}

	if _, ok := subs[sub]; ok {
		return
	}

	subs[sub] = struct{}{}
	h.stats.Incr(stats.NumActiveSubscribers)
	h.log.Printf("subscriber %q joined party %d, total: %d", sub.id, partyId, len(subs))
}

func (h *Hub) Unsubscribe(partyId int, sub *Subscriber) {
	h.lock.Lock()
	defer h.lock.Unlock()

	if h.removeSubscriber(partyId, sub) {
		h.log.Printf("subscriber %q left party %d", sub.id, partyId)
	}
}

// removeSubscriber must be called with the lock held. Empty party sets are
// dropped.
func (h *Hub) removeSubscriber(partyId int, sub *Subscriber) bool {
	subs, ok := h.parties[partyId]
	if !ok {
		return false
	}

	if _, ok := subs[sub]; !ok {
		return false
	}

	delete(subs, sub)
	h.stats.Decr(stats.NumActiveSubscribers)

	if len(subs) == 0 {
		delete(h.parties, partyId)
		h.stats.Decr(stats.NumActiveParties)
	}

	return true
}

// Publish queues evt for every subscriber of the party without blocking.
// Subscribers whose queue is full or closed are pruned. Events published
// to the same party are queued in call order.
func (h *Hub) Publish(partyId int, evt *types.Event) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.stats.Incr(stats.EventsPublished)

	subs := h.parties[partyId]
	if len(subs) == 0 {
		return
	}

	h.log.Printf("publish %q to party %d, subscribers: %d", evt.Type, partyId, len(subs))
	for sub := range subs {
		if sub.queueEvent(evt) {
			continue
		}

		h.log.Printf("pruning subscriber %q from party %d", sub.id, partyId)
		h.removeSubscriber(partyId, sub)
		sub.close()
		h.stats.Incr(stats.SubscribersPruned)
	}
}

// NumSubscribers reports the live subscriber count for a party.
func (h *Hub) NumSubscribers(partyId int) int {
	h.lock.Lock()
	defer h.lock.Unlock()

	return len(h.parties[partyId])
}

// Shutdown closes every subscriber so that their streams return.
func (h *Hub) Shutdown() {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.log.Println("closing all subscribers")
	for partyId, subs := range h.parties {
		for sub := range subs {
			h.removeSubscriber(partyId, sub)
			sub.close()
		}
	}
}
