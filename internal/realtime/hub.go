package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const (
	RelayChannel      = "claim_session_events"
	DefaultBufferSize = 256
)

// Subscription is one live observer of a session. C is closed when the
// session ends or when the subscriber fell behind (see Lagged).
type Subscription struct {
	SessionID string
	C         <-chan entity.Event

	ch     chan entity.Event
	lagged atomic.Bool
}

// Lagged reports whether the hub dropped this subscriber because its buffer
// was full. A lagged subscriber can re-attach with back-fill.
func (s *Subscription) Lagged() bool {
	return s.lagged.Load()
}

type relayMessage struct {
	Origin    string        `json:"origin"`
	SessionID string        `json:"session_id"`
	Close     bool          `json:"close,omitempty"`
	Seq       int64         `json:"seq"`
	Event     *entity.Event `json:"event,omitempty"`
}

// Hub fans session events out to subscribers. Publishing never blocks.
type Hub struct {
	// Subscribers per session id
	subs map[string]map[*Subscription]struct{}

	// Lock for safe map access; channels are only closed under the write lock
	mu sync.RWMutex

	bufferSize int

	// Redis connection for cross-instance relay
	rdb        *redis.Client
	instanceID string

	onIdle func(sessionID string)

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, instanceID string, log logger.ILogger) *Hub {
	return &Hub{
		subs:       make(map[string]map[*Subscription]struct{}),
		bufferSize: DefaultBufferSize,
		rdb:        rdb,
		instanceID: instanceID,
		logger:     log,
	}
}

// OnIdle registers fn to run when the last subscriber of a session leaves.
func (h *Hub) OnIdle(fn func(sessionID string)) {
	h.onIdle = fn
}

func (h *Hub) SetBufferSize(n int) {
	if n > 0 {
		h.bufferSize = n
	}
}

func (h *Hub) Subscribe(sessionID string) *Subscription {
	ch := make(chan entity.Event, h.bufferSize)
	sub := &Subscription{SessionID: sessionID, C: ch, ch: ch}

	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[*Subscription]struct{})
	}
	h.subs[sessionID][sub] = struct{}{}
	count := len(h.subs[sessionID])
	h.mu.Unlock()

	h.logger.Debug("Hub", "Subscriber attached", map[string]interface{}{
		"session_id":  sessionID,
		"subscribers": count,
	})
	return sub
}

// Unsubscribe detaches sub. It is safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	idle := h.removeLocked(sub)
	h.mu.Unlock()

	if idle {
		h.idle(sub.SessionID)
	}
}

// removeLocked closes and forgets sub, reporting whether the session has no
// subscribers left.
func (h *Hub) removeLocked(sub *Subscription) bool {
	set, ok := h.subs[sub.SessionID]
	if !ok {
		return false
	}
	if _, ok := set[sub]; !ok {
		return false
	}
	delete(set, sub)
	close(sub.ch)
	if len(set) == 0 {
		delete(h.subs, sub.SessionID)
		return true
	}
	return false
}

func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}

// Publish delivers ev to local subscribers and relays it to other instances.
func (h *Hub) Publish(sessionID string, ev entity.Event) {
	h.deliver(sessionID, ev)
	h.relay(relayMessage{SessionID: sessionID, Seq: ev.Seq, Event: &ev})
}

func (h *Hub) deliver(sessionID string, ev entity.Event) {
	var full []*Subscription

	h.mu.RLock()
	for sub := range h.subs[sessionID] {
		select {
		case sub.ch <- ev.Clone():
		default:
			full = append(full, sub)
		}
	}
	h.mu.RUnlock()

	if len(full) == 0 {
		return
	}

	idle := false
	h.mu.Lock()
	for _, sub := range full {
		sub.lagged.Store(true)
		if h.removeLocked(sub) {
			idle = true
		}
	}
	h.mu.Unlock()

	h.logger.Warn("Hub", "Subscriber buffer full, dropping subscriber", map[string]interface{}{
		"session_id": sessionID,
		"dropped":    len(full),
		"seq":        ev.Seq,
	})
	if idle {
		h.idle(sessionID)
	}
}

// CloseSession ends every subscription of a session. Closing the channel is
// the terminal signal for transports.
func (h *Hub) CloseSession(sessionID string) {
	h.closeLocal(sessionID)
	h.relay(relayMessage{SessionID: sessionID, Close: true})
}

func (h *Hub) closeLocal(sessionID string) {
	h.mu.Lock()
	set := h.subs[sessionID]
	delete(h.subs, sessionID)
	for sub := range set {
		close(sub.ch)
	}
	h.mu.Unlock()

	if len(set) > 0 {
		h.logger.Info("Hub", "Session streams closed", map[string]interface{}{
			"session_id":  sessionID,
			"subscribers": len(set),
		})
		h.idle(sessionID)
	}
}

func (h *Hub) idle(sessionID string) {
	if h.onIdle != nil {
		h.onIdle(sessionID)
	}
}

func (h *Hub) relay(msg relayMessage) {
	if h.rdb == nil {
		return
	}
	msg.Origin = h.instanceID
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Hub", "Failed to encode relay message", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := h.rdb.Publish(context.Background(), RelayChannel, payload).Err(); err != nil {
		h.logger.Warn("Hub", "Redis relay publish failed", map[string]interface{}{
			"session_id": msg.SessionID,
			"error":      err.Error(),
		})
	}
}

// Run consumes the Redis relay until ctx is done. Without Redis it returns
// immediately.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb == nil {
		return
	}

	pubsub := h.rdb.Subscribe(ctx, RelayChannel)
	defer pubsub.Close()

	h.logger.Info("Hub", "Redis relay subscribed", map[string]interface{}{
		"channel":     RelayChannel,
		"instance_id": h.instanceID,
	})

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.handleRelay([]byte(msg.Payload))
		}
	}
}

func (h *Hub) handleRelay(payload []byte) {
	var msg relayMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		h.logger.Warn("Hub", "Redis relay message parse error", map[string]interface{}{"error": err.Error()})
		return
	}
	if msg.Origin == h.instanceID || msg.SessionID == "" {
		return
	}
	if msg.Close {
		h.closeLocal(msg.SessionID)
		return
	}
	if msg.Event == nil {
		return
	}
	ev := *msg.Event
	ev.Seq = msg.Seq
	h.deliver(msg.SessionID, ev)
}
