package contract

import (
	"context"

	"claim-pipeline-be/internal/entity"
)

type AgentLogRepository interface {
	Save(ctx context.Context, log *entity.AgentLog) error
	ListByClaim(ctx context.Context, claimID string, limit int) ([]*entity.AgentLog, error)
	Latest(ctx context.Context, claimID string) (*entity.AgentLog, error)
}
