package ws

import (
	"sync"

	"skins-service/pkg/logger"

	"go.uber.org/zap"
)

type Message struct {
	Type    string      `json:"type"`
	Seq     int64       `json:"seq"`
	RoundID int64       `json:"roundId"`
	Data    interface{} `json:"data"`
}

// Hub fans round events out to websocket subscribers. Sequence numbers are
// per round so clients can spot a gap and refetch.
type Hub struct {
	mu     sync.Mutex
	rounds map[int64]*roundFeed
	nextID int64
}

type roundFeed struct {
	seq         int64
	subscribers map[int64]chan Message
}

func NewHub() *Hub {
	return &Hub{rounds: make(map[int64]*roundFeed)}
}

func (h *Hub) Subscribe(roundID int64) (int64, <-chan Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	feed, ok := h.rounds[roundID]
	if !ok {
		feed = &roundFeed{subscribers: make(map[int64]chan Message)}
		h.rounds[roundID] = feed
	}
	h.nextID++
	ch := make(chan Message, 16)
	feed.subscribers[h.nextID] = ch
	return h.nextID, ch
}

func (h *Hub) Unsubscribe(roundID, subID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	feed, ok := h.rounds[roundID]
	if !ok {
		return
	}
	if ch, ok := feed.subscribers[subID]; ok {
		delete(feed.subscribers, subID)
		close(ch)
	}
	if len(feed.subscribers) == 0 {
		delete(h.rounds, roundID)
	}
}

// Publish never blocks; a subscriber with a full buffer misses the message.
func (h *Hub) Publish(roundID int64, event string, data interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	feed, ok := h.rounds[roundID]
	if !ok {
		return
	}
	feed.seq++
	msg := Message{Type: event, Seq: feed.seq, RoundID: roundID, Data: data}
	for id, ch := range feed.subscribers {
		select {
		case ch <- msg:
		default:
			logger.Log.Warn("ws subscriber channel full", zap.Int64("roundID", roundID), zap.Int64("subscriberID", id))
		}
	}
}

// Subscribers reports how many clients follow roundID.
func (h *Hub) Subscribers(roundID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if feed, ok := h.rounds[roundID]; ok {
		return len(feed.subscribers)
	}
	return 0
}
