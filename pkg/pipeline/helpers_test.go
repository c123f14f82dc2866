package pipeline

import (
	"context"
	"errors"
	"sync"

	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/pkg/logger"
	"claim-pipeline-be/internal/repository/contract"
	"claim-pipeline-be/internal/repository/memory"
	"claim-pipeline-be/pkg/events"
	"claim-pipeline-be/pkg/evidence"
	"claim-pipeline-be/pkg/llm"
)

type scriptedProvider struct {
	mu      sync.Mutex
	answer  string
	err     error
	history []llm.Message
}

func (p *scriptedProvider) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = history
	return p.answer, p.err
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{llm.UserMessage(prompt)}, opts...)
}

// brokenSessionStore fails every write.
type brokenSessionStore struct{}

func (brokenSessionStore) Save(context.Context, *entity.Session) error {
	return errors.New("database is down")
}

func (brokenSessionStore) Get(context.Context, string) (*entity.Session, error) {
	return nil, contract.ErrNotFound
}

func (brokenSessionStore) Query(context.Context, contract.SessionFilter) ([]*entity.Session, error) {
	return nil, errors.New("database is down")
}

// flakySessionStore fails writes while down and behaves like the memory store
// otherwise.
type flakySessionStore struct {
	*memory.SessionRepository
	mu   sync.Mutex
	down bool
}

func newFlakySessionStore(down bool) *flakySessionStore {
	return &flakySessionStore{SessionRepository: memory.NewSessionRepository(), down: down}
}

func (s *flakySessionStore) setDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

func (s *flakySessionStore) Save(ctx context.Context, session *entity.Session) error {
	s.mu.Lock()
	down := s.down
	s.mu.Unlock()
	if down {
		return errors.New("database is down")
	}
	return s.SessionRepository.Save(ctx, session)
}

type fixedCounter int

func (c fixedCounter) SubscriberCount(string) int { return int(c) }

type recordingBroadcaster struct {
	mu     sync.Mutex
	events map[string][]entity.Event
	closed map[string]bool
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{events: map[string][]entity.Event{}, closed: map[string]bool{}}
}

func (b *recordingBroadcaster) Publish(sessionID string, ev entity.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[sessionID] = append(b.events[sessionID], ev)
}

func (b *recordingBroadcaster) CloseSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed[sessionID] = true
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, ev.EventType())
	return nil
}

// staticCollaborator answers with a fixed text and remembers the query.
type staticCollaborator struct {
	mu      sync.Mutex
	answer  string
	err     error
	queries []string
}

func (c *staticCollaborator) Query(_ context.Context, _ evidence.ClaimFacts, query string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, query)
	return c.answer, c.err
}

func (c *staticCollaborator) lastQuery() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queries) == 0 {
		return ""
	}
	return c.queries[len(c.queries)-1]
}

// gatedCollaborator blocks inside its stage until released.
type gatedCollaborator struct {
	answer  string
	reached chan struct{}
	release chan struct{}
}

func newGatedCollaborator(answer string) *gatedCollaborator {
	return &gatedCollaborator{answer: answer, reached: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedCollaborator) Query(context.Context, evidence.ClaimFacts, string) (string, error) {
	close(g.reached)
	<-g.release
	return g.answer, nil
}

func sampleClaim() entity.ClaimRecord {
	return entity.ClaimRecord{
		ClaimID:              "CLM-100",
		PatientName:          "Asha Rao",
		PolicyNumber:         "POL-9",
		ClaimAmount:          75000,
		ClaimDate:            "2026-01-10",
		CoverageLimit:        500000,
		PreviousClaimsAmount: 50000,
		Diagnosis:            "Appendicitis",
		Treatment:            "Laparoscopic appendectomy",
		HospitalName:         "City Hospital",
		PolicyYear:           2026,
		Source:               entity.ManualClaimSource,
	}
}

func newTestTracker(store contract.SessionRepository) *SessionTracker {
	if store == nil {
		store = memory.NewSessionRepository()
	}
	return NewSessionTracker(store, nil, logger.NewNopLogger())
}
