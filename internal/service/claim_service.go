package service

import (
	"context"
	"fmt"
	"time"

	"claim-pipeline-be/internal/dto"
	"claim-pipeline-be/internal/pkg/logger"
	"claim-pipeline-be/internal/repository/contract"
	"claim-pipeline-be/pkg/events"
	"claim-pipeline-be/pkg/pipeline"
)

const defaultLogLimit = 20

type IClaimService interface {
	Create(ctx context.Context, req dto.CreateClaimRequest) (*dto.ClaimResponse, error)
	List(ctx context.Context, query dto.ListClaimsQuery) ([]dto.ClaimResponse, error)
	Get(ctx context.Context, claimID string) (*dto.ClaimResponse, error)
	Delete(ctx context.Context, claimID string) error
	ListLogs(ctx context.Context, claimID string, limit int) ([]dto.AgentLogResponse, error)
	LatestLog(ctx context.Context, claimID string) (*dto.AgentLogResponse, error)
}

type claimService struct {
	claims contract.ClaimRepository
	logs   contract.AgentLogRepository
	events pipeline.EventPublisher
	logger logger.ILogger
	now    func() time.Time
}

func NewClaimService(claims contract.ClaimRepository, logs contract.AgentLogRepository, publisher pipeline.EventPublisher, log logger.ILogger) IClaimService {
	return &claimService{
		claims: claims,
		logs:   logs,
		events: publisher,
		logger: log,
		now:    time.Now,
	}
}

func (s *claimService) Create(ctx context.Context, req dto.CreateClaimRequest) (*dto.ClaimResponse, error) {
	claim := req.ToEntity(s.now())

	if err := s.claims.Save(ctx, &claim); err != nil {
		return nil, fmt.Errorf("failed to save claim %s: %w", claim.ClaimID, err)
	}

	s.logger.Info("ClaimService", "Claim saved", map[string]interface{}{
		"claim_id":      claim.ClaimID,
		"policy_number": claim.PolicyNumber,
		"claim_amount":  claim.ClaimAmount,
	})

	if s.events != nil {
		ev := events.NewClaimEvent(events.ClaimSaved, claim.ClaimID, map[string]interface{}{
			"policy_number":     claim.PolicyNumber,
			"claim_amount":      claim.ClaimAmount,
			"available_balance": claim.AvailableBalance(),
		}, s.now())
		if err := s.events.Publish(ctx, ev); err != nil {
			s.logger.Warn("ClaimService", "Failed to publish claim event", map[string]interface{}{
				"claim_id": claim.ClaimID,
				"error":    err.Error(),
			})
		}
	}

	res := dto.NewClaimResponse(&claim)
	return &res, nil
}

func (s *claimService) List(ctx context.Context, query dto.ListClaimsQuery) ([]dto.ClaimResponse, error) {
	claims, err := s.claims.Query(ctx, contract.ClaimFilter{
		PolicyNumber: query.PolicyNumber,
		Limit:        query.Limit,
		Offset:       query.Offset,
	})
	if err != nil {
		return nil, err
	}

	res := make([]dto.ClaimResponse, 0, len(claims))
	for _, c := range claims {
		res = append(res, dto.NewClaimResponse(c))
	}
	return res, nil
}

func (s *claimService) Get(ctx context.Context, claimID string) (*dto.ClaimResponse, error) {
	claim, err := s.claims.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	res := dto.NewClaimResponse(claim)
	return &res, nil
}

func (s *claimService) Delete(ctx context.Context, claimID string) error {
	if err := s.claims.Delete(ctx, claimID); err != nil {
		return err
	}
	s.logger.Info("ClaimService", "Claim deleted", map[string]interface{}{"claim_id": claimID})
	return nil
}

func (s *claimService) ListLogs(ctx context.Context, claimID string, limit int) ([]dto.AgentLogResponse, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}
	logs, err := s.logs.ListByClaim(ctx, claimID, limit)
	if err != nil {
		return nil, err
	}

	res := make([]dto.AgentLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, dto.NewAgentLogResponse(l))
	}
	return res, nil
}

func (s *claimService) LatestLog(ctx context.Context, claimID string) (*dto.AgentLogResponse, error) {
	l, err := s.logs.Latest(ctx, claimID)
	if err != nil {
		return nil, err
	}
	res := dto.NewAgentLogResponse(l)
	return &res, nil
}
