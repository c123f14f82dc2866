package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/pkg/logger"
	"claim-pipeline-be/internal/pkg/serverutils"
	"claim-pipeline-be/internal/realtime"
	"claim-pipeline-be/internal/repository/memory"
	"claim-pipeline-be/internal/service"
	"claim-pipeline-be/pkg/evidence"
	"claim-pipeline-be/pkg/llm"
	"claim-pipeline-be/pkg/pipeline"

	"github.com/gofiber/fiber/v2"
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

func newStreamApp(t *testing.T) (*fiber.App, *pipeline.Orchestrator) {
	t.Helper()
	log := logger.NewNopLogger()
	hub := realtime.NewHub(nil, "test", log)
	tracker := pipeline.NewSessionTracker(memory.NewSessionRepository(), hub, log)
	hub.OnIdle(func(id string) { tracker.Release(id) })

	ok := evidence.CollaboratorFunc(func(context.Context, evidence.ClaimFacts, string) (string, error) {
		return "Consistent.", nil
	})
	orchestrator := pipeline.NewOrchestrator(pipeline.Dependencies{
		Claims:      memory.NewClaimRepository(),
		Tracker:     tracker,
		Synthesizer: pipeline.NewSynthesizer(answerProvider("FINAL DECISION: APPROVED")),
		Stages: pipeline.DefaultStages(pipeline.Collaborators{
			XRay: ok, Medical: ok, Billing: ok, Policy: ok, Exclusions: ok,
		}),
		Broadcaster: hub,
		Logger:      log,
	})
	processing := service.NewProcessingService(orchestrator, nil, "http://localhost:8000", log)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewStreamHandler(hub, tracker, processing, log).RegisterRoutes(app, app.Group("/api"))
	return app, orchestrator
}

func get(t *testing.T, app *fiber.App, path string, header map[string]string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestStreamSession(t *testing.T) {
	app, orchestrator := newStreamApp(t)
	done, err := orchestrator.ProcessClaim(context.Background(), "CLM-SSE")
	require.NoError(t, err)
	total := len(done.Events)

	t.Run("full back-fill then sentinel", func(t *testing.T) {
		resp, body := get(t, app, "/api/sessions/"+done.SessionID+"/stream", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
		assert.Equal(t, total, strings.Count(body, "id: "))
		assert.True(t, strings.HasSuffix(body, realtime.SSECompleteFrame))
	})

	t.Run("resume after query", func(t *testing.T) {
		_, body := get(t, app, "/api/sessions/"+done.SessionID+"/stream?after=12", nil)
		assert.Equal(t, total-12, strings.Count(body, "id: "))
		assert.Contains(t, body, "id: 13\n")
		assert.NotContains(t, body, "id: 12\n")
	})

	t.Run("resume from Last-Event-ID", func(t *testing.T) {
		_, body := get(t, app, "/api/sessions/"+done.SessionID+"/stream", map[string]string{"Last-Event-ID": "13"})
		assert.Equal(t, total-13, strings.Count(body, "id: "))
	})

	t.Run("unknown session", func(t *testing.T) {
		resp, _ := get(t, app, "/api/sessions/session_nope/stream", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestProcessAndStream(t *testing.T) {
	app, _ := newStreamApp(t)

	resp, body := get(t, app, "/api/process/CLM-LIVE/stream", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sessionID := resp.Header.Get("X-Session-Id")
	assert.True(t, strings.HasPrefix(sessionID, "session_CLM-LIVE_"))
	assert.Equal(t, 2+2*len(pipeline.StageOrder), strings.Count(body, "id: "))
	assert.Contains(t, body, `"agent_name":"`+entity.SystemAgent+`"`)
	assert.True(t, strings.HasSuffix(body, realtime.SSECompleteFrame))
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	app, _ := newStreamApp(t)
	resp, _ := get(t, app, "/ws/process/session_x", nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestResumeAfter(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		header string
		want   int64
	}{
		{name: "none", want: 0},
		{name: "query", query: "?after=7", want: 7},
		{name: "header", header: "4", want: 4},
		{name: "query wins", query: "?after=2", header: "9", want: 2},
		{name: "negative", query: "?after=-3", want: 0},
		{name: "garbage", query: "?after=abc", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			var got int64
			app.Get("/", func(c *fiber.Ctx) error {
				got = resumeAfter(c)
				return nil
			})
			req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Last-Event-ID", tt.header)
			}
			_, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
