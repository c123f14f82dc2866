package memory

import (
	"context"
	"sort"
	"sync"

	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/repository/contract"
)

type AgentLogRepository struct {
	mu   sync.RWMutex
	logs map[string][]*entity.AgentLog
}

func NewAgentLogRepository() *AgentLogRepository {
	return &AgentLogRepository{logs: make(map[string][]*entity.AgentLog)}
}

func (r *AgentLogRepository) Save(ctx context.Context, log *entity.AgentLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *log
	r.logs[log.ClaimID] = append(r.logs[log.ClaimID], &cp)
	return nil
}

// ListByClaim returns the claim's logs newest first.
func (r *AgentLogRepository) ListByClaim(ctx context.Context, claimID string, limit int) ([]*entity.AgentLog, error) {
	r.mu.RLock()
	src := r.logs[claimID]
	out := make([]*entity.AgentLog, len(src))
	for i, l := range src {
		cp := *l
		out[i] = &cp
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, 0, limit), nil
}

func (r *AgentLogRepository) Latest(ctx context.Context, claimID string) (*entity.AgentLog, error) {
	logs, err := r.ListByClaim(ctx, claimID, 1)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, contract.ErrNotFound
	}
	return logs[0], nil
}
