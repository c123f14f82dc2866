package realtime

import (
	"context"

	"claim-pipeline-be/internal/entity"
)

// SessionSource returns the current snapshot of a session.
type SessionSource interface {
	Get(ctx context.Context, sessionID string) (*entity.Session, error)
}

// Follow streams a session to deliver, starting after sequence number after.
// It subscribes before taking the snapshot and skips live events the
// snapshot already covered, so every event is delivered exactly once and in
// order. A lagged subscription is re-attached from the last delivered event.
// Follow returns nil once the session is terminal and fully delivered.
func (h *Hub) Follow(ctx context.Context, source SessionSource, sessionID string, after int64, deliver func(entity.Event) error) error {
	last := after
	for {
		sub := h.Subscribe(sessionID)

		session, err := source.Get(ctx, sessionID)
		if err != nil {
			h.Unsubscribe(sub)
			return err
		}

		for _, ev := range session.EventsAfter(last) {
			if err := deliver(ev); err != nil {
				h.Unsubscribe(sub)
				return err
			}
			last = ev.Seq
		}

		if session.IsTerminal() {
			h.Unsubscribe(sub)
			return nil
		}

		lagged, err := h.drain(ctx, sub, &last, deliver)
		if err != nil || !lagged {
			return err
		}

		h.logger.Info("Hub", "Re-attaching lagged subscriber", map[string]interface{}{
			"session_id": sessionID,
			"after":      last,
		})
	}
}

func (h *Hub) drain(ctx context.Context, sub *Subscription, last *int64, deliver func(entity.Event) error) (bool, error) {
	for {
		select {
		case <-ctx.Done():
			h.Unsubscribe(sub)
			return false, ctx.Err()
		case ev, ok := <-sub.C:
			if !ok {
				return sub.Lagged(), nil
			}
			if ev.Seq <= *last {
				continue
			}
			if err := deliver(ev); err != nil {
				h.Unsubscribe(sub)
				return false, err
			}
			*last = ev.Seq
		}
	}
}
