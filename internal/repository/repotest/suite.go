// Package repotest holds behaviour checks shared by every repository backend.
package repotest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Repositories groups one backend's implementations.
type Repositories struct {
	Claims   contract.ClaimRepository
	Sessions contract.SessionRepository
	Logs     contract.AgentLogRepository
}

// Run exercises the repository contracts. Identifiers are randomised so the
// suite can run against a shared database.
func Run(t *testing.T, repos Repositories) {
	ctx := context.Background()
	tag := uuid.New().String()[:8]

	t.Run("claims", func(t *testing.T) {
		policy := "POL-" + tag
		balance := 1234.5
		first := entity.ClaimRecord{
			ClaimID:                  "CLM-A-" + tag,
			PatientName:              "Asha Rao",
			PolicyNumber:             policy,
			ClaimAmount:              45000,
			ClaimDate:                "2024-02-01",
			CoverageLimit:            300000,
			PreviousClaimsAmount:     20000,
			AvailableBalanceOverride: &balance,
			DocumentKinds:            []string{entity.DocumentKindMedical},
			PolicyYear:               2024,
			Source:                   entity.ManualClaimSource,
			CreatedAt:                time.Now().Add(-time.Minute),
		}
		second := first
		second.ClaimID = "CLM-B-" + tag
		second.AvailableBalanceOverride = nil
		second.CreatedAt = time.Now()

		require.NoError(t, repos.Claims.Save(ctx, &first))
		require.NoError(t, repos.Claims.Save(ctx, &second))

		got, err := repos.Claims.Get(ctx, first.ClaimID)
		require.NoError(t, err)
		assert.Equal(t, "Asha Rao", got.PatientName)
		assert.Equal(t, []string{entity.DocumentKindMedical}, got.DocumentKinds)
		require.NotNil(t, got.AvailableBalanceOverride)
		assert.InDelta(t, 1234.5, got.AvailableBalance(), 0.001)

		first.PatientName = "Asha R."
		require.NoError(t, repos.Claims.Save(ctx, &first))
		got, err = repos.Claims.Get(ctx, first.ClaimID)
		require.NoError(t, err)
		assert.Equal(t, "Asha R.", got.PatientName)

		list, err := repos.Claims.Query(ctx, contract.ClaimFilter{PolicyNumber: policy})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ClaimID, list[0].ClaimID)

		page, err := repos.Claims.Query(ctx, contract.ClaimFilter{PolicyNumber: policy, Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, first.ClaimID, page[0].ClaimID)

		require.NoError(t, repos.Claims.Delete(ctx, first.ClaimID))
		require.NoError(t, repos.Claims.Delete(ctx, second.ClaimID))
		_, err = repos.Claims.Get(ctx, first.ClaimID)
		assert.ErrorIs(t, err, contract.ErrNotFound)
		assert.ErrorIs(t, repos.Claims.Delete(ctx, first.ClaimID), contract.ErrNotFound)
	})

	t.Run("sessions", func(t *testing.T) {
		claimID := "CLM-S-" + tag
		now := time.Now().UTC().Truncate(time.Second)

		older := entity.NewSession(claimID, now.Add(-time.Hour))
		newer := entity.NewSession(claimID, now)
		newer.Status = entity.SessionCompleted
		newer.CompletedStages = []string{"medical"}
		newer.Events = append(newer.Events, entity.Event{Seq: 1, AgentName: entity.SystemAgent, Status: entity.EventProcessing})
		completed := now.Add(time.Minute)
		newer.CompletedAt = &completed
		newer.Decision = &entity.ClaimDecision{Decision: entity.DecisionApproved, ApprovedAmount: "45000.00"}

		require.NoError(t, repos.Sessions.Save(ctx, older))
		require.NoError(t, repos.Sessions.Save(ctx, newer))

		got, err := repos.Sessions.Get(ctx, newer.SessionID)
		require.NoError(t, err)
		assert.True(t, got.Persisted)
		assert.Equal(t, entity.SessionCompleted, got.Status)
		assert.Equal(t, []string{"medical"}, got.CompletedStages)
		require.Len(t, got.Events, 1)
		assert.Equal(t, int64(1), got.Events[0].Seq)
		require.NotNil(t, got.Decision)
		assert.Equal(t, entity.DecisionApproved, got.Decision.Decision)

		all, err := repos.Sessions.Query(ctx, contract.SessionFilter{ClaimID: claimID})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, newer.SessionID, all[0].SessionID)

		done, err := repos.Sessions.Query(ctx, contract.SessionFilter{
			ClaimID:  claimID,
			Statuses: []entity.SessionStatus{entity.SessionCompleted},
		})
		require.NoError(t, err)
		require.Len(t, done, 1)

		_, err = repos.Sessions.Get(ctx, "session_missing_"+tag)
		assert.ErrorIs(t, err, contract.ErrNotFound)
	})

	t.Run("agent logs", func(t *testing.T) {
		claimID := "CLM-L-" + tag
		base := time.Now().UTC().Truncate(time.Second)
		for i := 0; i < 3; i++ {
			at := base.Add(time.Duration(i) * time.Minute)
			require.NoError(t, repos.Logs.Save(ctx, &entity.AgentLog{
				ID:                 fmt.Sprintf("%s_%d", entity.NewAgentLogID(claimID, at), i),
				ClaimID:            claimID,
				SessionID:          fmt.Sprintf("session_%s_%d", claimID, i),
				Claim:              entity.NewPlaceholderClaim(claimID, at),
				Status:             entity.SessionCompleted,
				EventCount:         12,
				StagesParticipated: []string{"medical", "billing"},
				Duration:           1500 * time.Millisecond,
				CreatedAt:          at,
			}))
		}

		logs, err := repos.Logs.ListByClaim(ctx, claimID, 2)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, fmt.Sprintf("session_%s_2", claimID), logs[0].SessionID)

		latest, err := repos.Logs.Latest(ctx, claimID)
		require.NoError(t, err)
		assert.Equal(t, logs[0].SessionID, latest.SessionID)
		assert.Equal(t, []string{"medical", "billing"}, latest.StagesParticipated)

		_, err = repos.Logs.Latest(ctx, "CLM-none-"+tag)
		assert.ErrorIs(t, err, contract.ErrNotFound)
	})
}
