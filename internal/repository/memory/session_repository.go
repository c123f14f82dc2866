package memory

import (
	"context"
	"sort"
	"time"

	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// SessionRepository is the in-memory stand-in for the durable session store.
// Entries expire after a day so a long-running process does not grow forever.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		cache: cache.New(24*time.Hour, 30*time.Minute),
	}
}

func (r *SessionRepository) Save(ctx context.Context, session *entity.Session) error {
	stored := session.Clone()
	stored.Persisted = true
	r.cache.Set(session.SessionID, stored, cache.DefaultExpiration)
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*entity.Session, error) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*entity.Session).Clone(), nil
	}
	return nil, contract.ErrNotFound
}

// Query returns matching sessions, most recent first.
func (r *SessionRepository) Query(ctx context.Context, filter contract.SessionFilter) ([]*entity.Session, error) {
	statuses := make(map[entity.SessionStatus]bool, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses[s] = true
	}

	var out []*entity.Session
	for _, item := range r.cache.Items() {
		s, ok := item.Object.(*entity.Session)
		if !ok {
			continue
		}
		if filter.ClaimID != "" && s.ClaimID != filter.ClaimID {
			continue
		}
		if len(statuses) > 0 && !statuses[s.Status] {
			continue
		}
		out = append(out, s.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return paginate(out, 0, filter.Limit), nil
}
