package implementation

import (
	"context"

	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/mapper"
	"claim-pipeline-be/internal/model"
	"claim-pipeline-be/internal/repository/contract"
	"claim-pipeline-be/internal/repository/specification"

	"gorm.io/gorm"
)

type AgentLogRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AgentLogMapper
}

func NewAgentLogRepository(db *gorm.DB) contract.AgentLogRepository {
	return &AgentLogRepositoryImpl{
		db:     db,
		mapper: mapper.NewAgentLogMapper(),
	}
}

func (r *AgentLogRepositoryImpl) Save(ctx context.Context, log *entity.AgentLog) error {
	return r.db.WithContext(ctx).Create(r.mapper.ToModel(log)).Error
}

func (r *AgentLogRepositoryImpl) ListByClaim(ctx context.Context, claimID string, limit int) ([]*entity.AgentLog, error) {
	var models []*model.AgentLog
	query := applySpecifications(r.db.WithContext(ctx),
		specification.ByClaimID{ClaimID: claimID},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]*entity.AgentLog, len(models))
	for i, m := range models {
		out[i] = r.mapper.ToEntity(m)
	}
	return out, nil
}

func (r *AgentLogRepositoryImpl) Latest(ctx context.Context, claimID string) (*entity.AgentLog, error) {
	logs, err := r.ListByClaim(ctx, claimID, 1)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, contract.ErrNotFound
	}
	return logs[0], nil
}
