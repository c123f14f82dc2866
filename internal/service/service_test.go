package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"claim-pipeline-be/internal/dto"
	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/pkg/logger"
	"claim-pipeline-be/internal/repository/contract"
	"claim-pipeline-be/internal/repository/memory"
	"claim-pipeline-be/pkg/events"
	"claim-pipeline-be/pkg/evidence"
	"claim-pipeline-be/pkg/llm"
	pktNats "claim-pipeline-be/pkg/nats"
	"claim-pipeline-be/pkg/pipeline"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type answerProvider string

func (a answerProvider) Chat(context.Context, []llm.Message, ...llm.Option) (string, error) {
	return string(a), nil
}

func (a answerProvider) Generate(context.Context, string, ...llm.Option) (string, error) {
	return string(a), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.EventType()
	}
	return out
}

type fixture struct {
	claims       *memory.ClaimRepository
	logs         *memory.AgentLogRepository
	tracker      *pipeline.SessionTracker
	orchestrator *pipeline.Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewNopLogger()
	ok := evidence.CollaboratorFunc(func(context.Context, evidence.ClaimFacts, string) (string, error) {
		return "Consistent.", nil
	})

	f := &fixture{
		claims:  memory.NewClaimRepository(),
		logs:    memory.NewAgentLogRepository(),
		tracker: pipeline.NewSessionTracker(memory.NewSessionRepository(), nil, log),
	}
	f.orchestrator = pipeline.NewOrchestrator(pipeline.Dependencies{
		Claims:      f.claims,
		Logs:        f.logs,
		Tracker:     f.tracker,
		Synthesizer: pipeline.NewSynthesizer(answerProvider("FINAL DECISION: APPROVED")),
		Stages: pipeline.DefaultStages(pipeline.Collaborators{
			XRay: ok, Medical: ok, Billing: ok, Policy: ok, Exclusions: ok,
		}),
		Logger: log,
	})
	return f
}

func validRequest() dto.CreateClaimRequest {
	return dto.CreateClaimRequest{
		ClaimID:              "CLM-200",
		PatientName:          "Ravi Kumar",
		PolicyNumber:         "POL-9",
		ClaimAmount:          45000,
		ClaimDate:            "2024-09-16",
		CoverageLimit:        300000,
		PreviousClaimsAmount: 20000,
		DocumentKinds:        []string{entity.DocumentKindMedical},
	}
}

func TestClaimService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pub := &recordingPublisher{}
	svc := NewClaimService(f.claims, f.logs, pub, logger.NewNopLogger())

	created, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, 280000.0, created.AvailableBalance)
	assert.Equal(t, entity.ManualClaimSource, created.Source)
	assert.Equal(t, []string{events.ClaimSaved}, pub.types())
	assert.Equal(t, "CLM-200", pub.events[0].Payload()["claim_id"])

	t.Run("override is kept", func(t *testing.T) {
		req := validRequest()
		req.ClaimID = "CLM-201"
		balance := -100.0
		req.AvailableBalance = &balance
		res, err := svc.Create(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, -100.0, res.AvailableBalance)
	})

	t.Run("list and get", func(t *testing.T) {
		list, err := svc.List(ctx, dto.ListClaimsQuery{})
		require.NoError(t, err)
		assert.Len(t, list, 2)

		got, err := svc.Get(ctx, "CLM-200")
		require.NoError(t, err)
		assert.Equal(t, "Ravi Kumar", got.PatientName)
	})

	t.Run("logs after a run", func(t *testing.T) {
		_, err := svc.LatestLog(ctx, "CLM-200")
		assert.ErrorIs(t, err, contract.ErrNotFound)

		_, err = f.orchestrator.ProcessClaim(ctx, "CLM-200")
		require.NoError(t, err)

		latest, err := svc.LatestLog(ctx, "CLM-200")
		require.NoError(t, err)
		assert.Equal(t, entity.SessionCompleted, latest.Status)
		assert.Equal(t, "Ravi Kumar", latest.Claim.PatientName)

		logs, err := svc.ListLogs(ctx, "CLM-200", 0)
		require.NoError(t, err)
		assert.Len(t, logs, 1)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, "CLM-201"))
		assert.ErrorIs(t, svc.Delete(ctx, "CLM-201"), contract.ErrNotFound)
		_, err := svc.Get(ctx, "CLM-201")
		assert.ErrorIs(t, err, contract.ErrNotFound)
	})
}

func waitTerminal(t *testing.T, tracker *pipeline.SessionTracker, sessionID string) *entity.Session {
	t.Helper()
	var final *entity.Session
	require.Eventually(t, func() bool {
		s, err := tracker.Get(context.Background(), sessionID)
		if err != nil || !s.IsTerminal() {
			return false
		}
		final = s
		return true
	}, 2*time.Second, 5*time.Millisecond)
	return final
}

func TestProcessingServiceQueue(t *testing.T) {
	f := newFixture(t)
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	defer pubSub.Close()

	svc := NewProcessingService(f.orchestrator, pubSub, "https://claims.example.com/", logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Consume(ctx))

	res, err := svc.StartProcessing(ctx, "CLM-Q")
	require.NoError(t, err)
	assert.Equal(t, "CLM-Q", res.ClaimID)
	assert.Equal(t, string(entity.SessionStarted), res.Status)
	assert.Equal(t, "wss://claims.example.com/ws/process/"+res.SessionID, res.WebsocketURL)
	assert.Equal(t, "https://claims.example.com/api/sessions/"+res.SessionID+"/stream", res.SSEURL)

	final := waitTerminal(t, f.tracker, res.SessionID)
	svc.Wait()
	assert.Equal(t, entity.SessionCompleted, final.Status)
	assert.Equal(t, entity.DecisionApproved, final.Decision.Decision)

	t.Run("empty claim id", func(t *testing.T) {
		_, err := svc.StartProcessing(ctx, "")
		assert.ErrorIs(t, err, pipeline.ErrEmptyClaimID)
	})
}

func TestProcessingServiceWithoutQueue(t *testing.T) {
	f := newFixture(t)
	svc := NewProcessingService(f.orchestrator, nil, "http://localhost:8000", logger.NewNopLogger())
	require.NoError(t, svc.Consume(context.Background()))

	res, err := svc.StartProcessing(context.Background(), "CLM-INLINE")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8000/ws/process/"+res.SessionID, res.WebsocketURL)

	svc.Wait()
	final := waitTerminal(t, f.tracker, res.SessionID)
	assert.Equal(t, entity.SessionCompleted, final.Status)
}

type fakeSubscriber struct {
	subject string
	durable string
	handler pktNats.EventHandler
	err     error
}

func (s *fakeSubscriber) Subscribe(subject, durable string, handler pktNats.EventHandler) error {
	s.subject, s.durable, s.handler = subject, durable, handler
	return s.err
}

func TestIntakeService(t *testing.T) {
	f := newFixture(t)
	processing := NewProcessingService(f.orchestrator, nil, "http://localhost:8000", logger.NewNopLogger())
	sub := &fakeSubscriber{}
	svc := NewIntakeService(sub, processing, logger.NewNopLogger())

	require.NoError(t, svc.Start())
	assert.Equal(t, events.ClaimSubmittedSubject, sub.subject)
	assert.Equal(t, events.ClaimPipelineConsumer, sub.durable)

	tests := []struct {
		name    string
		payload map[string]interface{}
		started bool
	}{
		{name: "claim id", payload: map[string]interface{}{"claim_id": " CLM-NATS "}, started: true},
		{name: "missing claim id", payload: map[string]interface{}{}, started: false},
		{name: "wrong type", payload: map[string]interface{}{"claim_id": 42}, started: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(f.tracker.Active())
			err := sub.handler(context.Background(), events.BaseEvent{Type: events.ClaimSubmitted, Data: tt.payload})
			require.NoError(t, err)
			processing.Wait()

			if tt.started {
				_, err := f.claims.Get(context.Background(), "CLM-NATS")
				require.NoError(t, err)
				latest, err := f.logs.Latest(context.Background(), "CLM-NATS")
				require.NoError(t, err)
				assert.Equal(t, entity.SessionCompleted, latest.Status)
			} else {
				assert.Equal(t, before, len(f.tracker.Active()))
			}
		})
	}

	t.Run("subscribe failure", func(t *testing.T) {
		bad := NewIntakeService(&fakeSubscriber{err: errors.New("no stream")}, processing, logger.NewNopLogger())
		assert.Error(t, bad.Start())
	})

	t.Run("no bus", func(t *testing.T) {
		assert.NoError(t, NewIntakeService(nil, processing, logger.NewNopLogger()).Start())
	})
}

func TestSessionService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewSessionService(f.tracker)

	pending := f.tracker.Create(ctx, "CLM-WAIT")
	assert.Len(t, svc.Active(ctx), 1)
	assert.Equal(t, pending.SessionID, svc.Active(ctx)[0].SessionID)

	done, err := f.orchestrator.ProcessClaim(ctx, "CLM-DONE")
	require.NoError(t, err)

	res, err := svc.Get(ctx, done.SessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionCompleted, res.Status)
	assert.Equal(t, int64(1), res.Updates[0].Seq)

	page, err := svc.EventsAfter(ctx, done.SessionID, int64(len(done.Events)-2))
	require.NoError(t, err)
	require.Len(t, page.Events, 2)
	assert.Equal(t, int64(len(done.Events)), page.Events[1].Seq)

	_, err = svc.Get(ctx, "session_missing")
	assert.ErrorIs(t, err, pipeline.ErrSessionNotFound)
}

func TestSystemServiceStatus(t *testing.T) {
	f := newFixture(t)
	fail := func(context.Context) error { return errors.New("down") }
	up := func(context.Context) error { return nil }

	tests := []struct {
		name   string
		checks []HealthCheck
		want   string
	}{
		{name: "all up", checks: []HealthCheck{{Name: "database", Check: up}}, want: "healthy"},
		{name: "optional down", checks: []HealthCheck{{Name: "database", Check: up}, {Name: "redis", Optional: true, Check: fail}}, want: "degraded"},
		{name: "required down", checks: []HealthCheck{{Name: "database", Check: fail}, {Name: "redis", Optional: true, Check: fail}}, want: "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewSystemService(f.tracker, tt.checks, logger.NewNopLogger(), "node-1", "test")
			res := svc.Status(context.Background())
			assert.Equal(t, tt.want, res.Status)
			assert.Equal(t, "node-1", res.InstanceID)
			assert.Len(t, res.Components, len(tt.checks))
		})
	}
}
