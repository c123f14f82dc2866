package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/pkg/logger"
	"claim-pipeline-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionTerminal   = errors.New("session is terminal")
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrStageCompleted    = errors.New("stage already completed")
)

// validTransitions defines the legal session status changes.
var validTransitions = map[entity.SessionStatus]map[entity.SessionStatus]bool{
	entity.SessionStarted: {
		entity.SessionProcessing: true,
		entity.SessionFailed:     true,
	},
	entity.SessionProcessing: {
		entity.SessionCompleted: true,
		entity.SessionFailed:    true,
	},
}

func canTransition(from, to entity.SessionStatus) bool {
	return validTransitions[from][to]
}

// SubscriberCounter reports live subscribers of a session.
type SubscriberCounter interface {
	SubscriberCount(sessionID string) int
}

type trackedSession struct {
	mu      sync.RWMutex
	session *entity.Session
}

// SessionTracker is the in-memory index of sessions. Each session has its own
// lock: the orchestrator is the only writer and readers get deep copies.
type SessionTracker struct {
	index       *cache.Cache
	store       contract.SessionRepository
	subscribers SubscriberCounter
	logger      logger.ILogger
	now         func() time.Time
}

// DefaultPersistRetryInterval is how often Run retries terminal sessions whose
// save failed.
const DefaultPersistRetryInterval = 30 * time.Second

// unsavedTTL bounds how long a terminal session lingers when there is no
// store to retry against.
const unsavedTTL = 1 * time.Hour

func NewSessionTracker(store contract.SessionRepository, subscribers SubscriberCounter, log logger.ILogger) *SessionTracker {
	return &SessionTracker{
		index:       cache.New(cache.NoExpiration, 10*time.Minute),
		store:       store,
		subscribers: subscribers,
		logger:      log,
		now:         time.Now,
	}
}

// SetSubscriberCounter wires the broadcaster after construction.
func (t *SessionTracker) SetSubscriberCounter(c SubscriberCounter) {
	t.subscribers = c
}

// Create registers a new session and tries to persist it. A failed save is
// logged and tracking continues in memory.
func (t *SessionTracker) Create(ctx context.Context, claimID string) *entity.Session {
	s := entity.NewSession(claimID, t.now())
	ts := &trackedSession{session: s}
	t.index.Set(s.SessionID, ts, cache.NoExpiration)
	t.Persist(ctx, s.SessionID)
	return t.snapshot(ts)
}

func (t *SessionTracker) lookup(sessionID string) (*trackedSession, bool) {
	v, ok := t.index.Get(sessionID)
	if !ok {
		return nil, false
	}
	return v.(*trackedSession), true
}

func (t *SessionTracker) snapshot(ts *trackedSession) *entity.Session {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.session.Clone()
}

// Snapshot returns a deep copy of a tracked session.
func (t *SessionTracker) Snapshot(sessionID string) (*entity.Session, bool) {
	ts, ok := t.lookup(sessionID)
	if !ok {
		return nil, false
	}
	return t.snapshot(ts), true
}

// Get returns the in-memory snapshot, falling back to the durable store.
func (t *SessionTracker) Get(ctx context.Context, sessionID string) (*entity.Session, error) {
	if s, ok := t.Snapshot(sessionID); ok {
		return s, nil
	}
	if t.store == nil {
		return nil, ErrSessionNotFound
	}
	s, err := t.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, contract.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

// Active lists tracked sessions that have not reached a terminal state.
func (t *SessionTracker) Active() []*entity.Session {
	var out []*entity.Session
	for _, item := range t.index.Items() {
		ts, ok := item.Object.(*trackedSession)
		if !ok {
			continue
		}
		s := t.snapshot(ts)
		if !s.IsTerminal() {
			out = append(out, s)
		}
	}
	sortByStart(out)
	return out
}

// ListActive merges the local active sessions with the ones the store still
// sees as running, so sessions driven by other instances are listed too. The
// local copy wins when both exist. A failing store degrades to the local view.
func (t *SessionTracker) ListActive(ctx context.Context) []*entity.Session {
	local := t.Active()
	if t.store == nil {
		return local
	}
	durable, err := t.store.Query(ctx, contract.SessionFilter{
		Statuses: []entity.SessionStatus{entity.SessionStarted, entity.SessionProcessing},
	})
	if err != nil {
		t.logger.Warn("SessionTracker", "Failed to query active sessions, listing local only", map[string]interface{}{
			"error": err.Error(),
		})
		return local
	}

	seen := make(map[string]bool, len(local))
	for _, s := range local {
		seen[s.SessionID] = true
	}
	out := local
	for _, s := range durable {
		if seen[s.SessionID] {
			continue
		}
		// Tracked here but already terminal in memory; the store lags behind.
		if _, ok := t.lookup(s.SessionID); ok {
			continue
		}
		out = append(out, s)
	}
	sortByStart(out)
	return out
}

func sortByStart(sessions []*entity.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})
}

// mutate applies fn under the session's write lock. Terminal sessions are
// immutable.
func (t *SessionTracker) mutate(sessionID string, fn func(s *entity.Session) error) error {
	ts, ok := t.lookup(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.session.IsTerminal() {
		return ErrSessionTerminal
	}
	if err := fn(ts.session); err != nil {
		return err
	}
	ts.session.UpdatedAt = t.now()
	ts.session.Persisted = false
	return nil
}

// AppendEvent stores ev in the session log and returns it with its sequence number.
func (t *SessionTracker) AppendEvent(sessionID string, ev entity.Event) (entity.Event, error) {
	err := t.mutate(sessionID, func(s *entity.Session) error {
		ev.Seq = int64(len(s.Events) + 1)
		if ev.Timestamp.IsZero() {
			ev.Timestamp = t.now()
		}
		if ev.Metadata == nil {
			ev.Metadata = map[string]interface{}{}
		}
		s.Events = append(s.Events, ev.Clone())
		return nil
	})
	return ev, err
}

// StartStage moves the session to processing and marks stage as current.
func (t *SessionTracker) StartStage(sessionID, stage string) error {
	return t.mutate(sessionID, func(s *entity.Session) error {
		if s.HasCompleted(stage) {
			return fmt.Errorf("%w: %s", ErrStageCompleted, stage)
		}
		if s.Status == entity.SessionStarted {
			if !canTransition(s.Status, entity.SessionProcessing) {
				return ErrInvalidTransition
			}
			s.Status = entity.SessionProcessing
		}
		current := stage
		s.CurrentStage = &current
		return nil
	})
}

// RecordStage copies result into the history. A completed stage is appended to
// the completed list exactly once.
func (t *SessionTracker) RecordStage(sessionID string, result entity.StageResult) error {
	return t.mutate(sessionID, func(s *entity.Session) error {
		if s.HasCompleted(result.Stage) {
			return fmt.Errorf("%w: %s", ErrStageCompleted, result.Stage)
		}
		s.StageResults = append(s.StageResults, result.Clone())
		if result.Status == entity.StageCompleted {
			s.CompletedStages = append(s.CompletedStages, result.Stage)
		}
		s.CurrentStage = nil
		return nil
	})
}

// Begin moves a freshly created session to processing.
func (t *SessionTracker) Begin(sessionID string) error {
	return t.mutate(sessionID, func(s *entity.Session) error {
		if !canTransition(s.Status, entity.SessionProcessing) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, entity.SessionProcessing)
		}
		s.Status = entity.SessionProcessing
		return nil
	})
}

// Finish moves the session to a terminal status, records the decision and
// appends the final event in the same step, so no reader sees a terminal
// status without its closing event.
func (t *SessionTracker) Finish(sessionID string, status entity.SessionStatus, decision *entity.ClaimDecision, final entity.Event) (entity.Event, error) {
	err := t.mutate(sessionID, func(s *entity.Session) error {
		if !status.IsTerminal() || !canTransition(s.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, status)
		}
		now := t.now()
		s.Status = status
		s.CurrentStage = nil
		s.CompletedAt = &now
		if decision != nil {
			d := decision.Clone()
			s.Decision = &d
		}

		final.Seq = int64(len(s.Events) + 1)
		if final.Timestamp.IsZero() {
			final.Timestamp = now
		}
		if final.Metadata == nil {
			final.Metadata = map[string]interface{}{}
		}
		s.Events = append(s.Events, final.Clone())
		return nil
	})
	return final, err
}

// Persist saves the current snapshot. Failures are logged and leave the
// session in memory; a terminal session stays until a later save succeeds.
func (t *SessionTracker) Persist(ctx context.Context, sessionID string) bool {
	ts, ok := t.lookup(sessionID)
	if !ok {
		return false
	}
	snap := t.snapshot(ts)

	persisted := false
	if t.store != nil {
		if err := t.store.Save(ctx, snap); err != nil {
			t.logger.Warn("SessionTracker", "Failed to persist session, continuing in memory", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		} else {
			persisted = true
		}
	}

	ts.mu.Lock()
	// A newer mutation may have landed while saving.
	if ts.session.UpdatedAt.Equal(snap.UpdatedAt) {
		ts.session.Persisted = persisted
	}
	terminal := ts.session.IsTerminal()
	ts.mu.Unlock()

	if terminal && !persisted && t.store == nil {
		t.index.Set(sessionID, ts, unsavedTTL)
	}
	return persisted
}

// Release evicts a session once it is terminal, persisted and unobserved.
// A terminal session whose last save failed is saved again first. It reports
// whether the session left the index.
func (t *SessionTracker) Release(sessionID string) bool {
	ts, ok := t.lookup(sessionID)
	if !ok {
		return false
	}
	ts.mu.RLock()
	terminal, persisted := ts.session.IsTerminal(), ts.session.Persisted
	ts.mu.RUnlock()
	if !terminal {
		return false
	}
	if !persisted && (t.store == nil || !t.Persist(context.Background(), sessionID)) {
		return false
	}
	if t.subscribers != nil && t.subscribers.SubscriberCount(sessionID) > 0 {
		return false
	}
	t.index.Delete(sessionID)
	t.logger.Debug("SessionTracker", "Session evicted from memory", map[string]interface{}{"session_id": sessionID})
	return true
}

// RetryPending saves terminal sessions that have not reached the store yet and
// releases the ones nobody observes. It returns how many were saved.
func (t *SessionTracker) RetryPending(ctx context.Context) int {
	if t.store == nil {
		return 0
	}
	saved := 0
	for id, item := range t.index.Items() {
		ts, ok := item.Object.(*trackedSession)
		if !ok {
			continue
		}
		ts.mu.RLock()
		pending := ts.session.IsTerminal() && !ts.session.Persisted
		ts.mu.RUnlock()
		if !pending || !t.Persist(ctx, id) {
			continue
		}
		saved++
		t.logger.Info("SessionTracker", "Session persisted on retry", map[string]interface{}{"session_id": id})
		t.Release(id)
	}
	return saved
}

// Run retries unsaved terminal sessions every interval until ctx is done.
func (t *SessionTracker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPersistRetryInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.RetryPending(ctx)
		}
	}
}
