package evidence

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	answer  string
	err     error
	history []llm.Message
}

func (f *fakeProvider) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	f.history = history
	return f.answer, f.err
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{llm.UserMessage(prompt)}, opts...)
}

type fakeImages struct {
	objects []string
	err     error
}

func (f fakeImages) List(_ context.Context, _ string) ([]string, error) {
	return f.objects, f.err
}

func (f fakeImages) PresignedURL(_ context.Context, object string) (string, error) {
	return "http://images.local/" + object, nil
}

func sampleFacts() ClaimFacts {
	return FactsFromClaim(entity.ClaimRecord{
		ClaimID:              "CLM-1",
		PatientName:          "Asha Rao",
		PolicyNumber:         "POL-9",
		ClaimAmount:          75000,
		CoverageLimit:        500000,
		PreviousClaimsAmount: 50000,
		Diagnosis:            "Osteoarthritis of the knee",
		Treatment:            "Arthroscopy",
		HospitalName:         "City Hospital",
	})
}

func TestFactsFromClaimComputesBalance(t *testing.T) {
	facts := sampleFacts()
	assert.Equal(t, 450000.0, facts.AvailableBalance)
	assert.Contains(t, facts.Describe(), "Claim ID: CLM-1")
}

func TestScreenExclusions(t *testing.T) {
	tests := []struct {
		name           string
		mutate         func(f *ClaimFacts)
		wantExclusions int
		wantConcerns   int
	}{
		{
			name:           "pre-existing keyword",
			mutate:         func(f *ClaimFacts) {},
			wantExclusions: 1,
			wantConcerns:   0,
		},
		{
			name: "high value and insufficient balance",
			mutate: func(f *ClaimFacts) {
				f.Diagnosis = "Fracture"
				f.ClaimAmount = 350000
				f.AvailableBalance = 100000
			},
			wantExclusions: 0,
			wantConcerns:   2,
		},
		{
			name: "clean claim",
			mutate: func(f *ClaimFacts) {
				f.Diagnosis = "Appendicitis"
				f.Treatment = "Appendectomy"
			},
			wantExclusions: 0,
			wantConcerns:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := sampleFacts()
			tt.mutate(&facts)
			screen := ScreenExclusions(facts)
			assert.Len(t, screen.PotentialExclusions, tt.wantExclusions)
			assert.Len(t, screen.CoverageConcerns, tt.wantConcerns)
			require.Len(t, screen.ValidationRequired, 1)
			assert.Contains(t, screen.ValidationRequired[0].Validation, facts.HospitalName)
			assert.Equal(t, tt.wantExclusions, screen.Metadata()["exclusion_count"])
		})
	}
}

func TestQueryForIncludesOnlyPriorEvidence(t *testing.T) {
	prior := entity.NewEvidence()
	prior.Record(entity.EvidenceMedical, "Medical_Consistency", "diagnosis supported", nil)

	q := QueryFor(entity.EvidenceBilling, sampleFacts(), prior)

	assert.Contains(t, q, "BILLING ANALYSIS for claim CLM-1")
	assert.Contains(t, q, "medical: diagnosis supported")
	assert.NotContains(t, q, "xray:")
}

func TestLLMQuerier(t *testing.T) {
	t.Run("answers through the provider", func(t *testing.T) {
		p := &fakeProvider{answer: "records consistent"}
		got, err := NewLLMQuerier(p, entity.EvidenceMedical).Query(context.Background(), sampleFacts(), "check it")
		require.NoError(t, err)
		assert.Equal(t, "records consistent", got)
		require.Len(t, p.history, 2)
		assert.Equal(t, "system", p.history[0].Role)
		assert.Contains(t, p.history[1].Content, "check it")
	})

	t.Run("nil provider is unavailable", func(t *testing.T) {
		_, err := NewLLMQuerier(nil, entity.EvidenceMedical).Query(context.Background(), sampleFacts(), "q")
		assert.ErrorIs(t, err, ErrCollaboratorUnavailable)
	})

	t.Run("empty answer is malformed", func(t *testing.T) {
		p := &fakeProvider{err: llm.ErrEmptyResponse}
		_, err := NewLLMQuerier(p, entity.EvidenceBilling).Query(context.Background(), sampleFacts(), "q")
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("other errors are passed through", func(t *testing.T) {
		boom := errors.New("boom")
		p := &fakeProvider{err: boom}
		_, err := NewLLMQuerier(p, entity.EvidenceBilling).Query(context.Background(), sampleFacts(), "q")
		assert.ErrorIs(t, err, boom)
	})
}

func TestXRayClassifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("Prediction-Key"))
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(body["Url"], "bad.png") {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id":"p1","predictions":[{"tagName":"Grade 0","probability":0.1},{"tagName":"Grade 3","probability":0.8}]}`))
	}))
	defer srv.Close()

	prefix := func(id string) string { return "claims/" + id + "/xray/" }
	cfg := XRayConfig{Endpoint: srv.URL, PredictionKey: "secret"}

	t.Run("summarises grades and flags mismatched diagnosis", func(t *testing.T) {
		images := fakeImages{objects: []string{"claims/CLM-1/xray/a.png", "claims/CLM-1/xray/notes.txt", "claims/CLM-1/xray/bad.png"}}
		facts := sampleFacts()
		facts.Diagnosis = "Cardiac bypass"

		got, err := NewXRayClassifier(cfg, images, prefix).Query(context.Background(), facts, "")
		require.NoError(t, err)
		assert.Contains(t, got, "Images Analyzed: 2")
		assert.Contains(t, got, "Successful Predictions: 1")
		assert.Contains(t, got, "Grade 3 (80.00% confidence)")
		assert.Contains(t, got, "CRITICAL: Cardiac procedure claimed but orthopedic X-ray evidence")
	})

	t.Run("no images is not an error", func(t *testing.T) {
		got, err := NewXRayClassifier(cfg, fakeImages{}, prefix).Query(context.Background(), sampleFacts(), "")
		require.NoError(t, err)
		assert.Contains(t, got, "No X-ray images on file")
	})

	t.Run("all predictions failing is an error", func(t *testing.T) {
		images := fakeImages{objects: []string{"claims/CLM-1/xray/bad.png"}}
		_, err := NewXRayClassifier(cfg, images, prefix).Query(context.Background(), sampleFacts(), "")
		assert.Error(t, err)
	})

	t.Run("missing endpoint is unavailable", func(t *testing.T) {
		_, err := NewXRayClassifier(XRayConfig{}, fakeImages{}, prefix).Query(context.Background(), sampleFacts(), "")
		assert.ErrorIs(t, err, ErrCollaboratorUnavailable)
	})
}
