package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/repository/contract"
)

// ClaimRepository keeps claims in process memory. Used when no database is
// configured and in tests.
type ClaimRepository struct {
	mu     sync.RWMutex
	claims map[string]entity.ClaimRecord
	now    func() time.Time
}

func NewClaimRepository() *ClaimRepository {
	return &ClaimRepository{
		claims: make(map[string]entity.ClaimRecord),
		now:    time.Now,
	}
}

func (r *ClaimRepository) Save(ctx context.Context, claim *entity.ClaimRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	stored := claim.Clone()
	if existing, ok := r.claims[claim.ClaimID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = &now
	r.claims[claim.ClaimID] = stored

	claim.CreatedAt = stored.CreatedAt
	claim.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *ClaimRepository) Get(ctx context.Context, claimID string) (*entity.ClaimRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.claims[claimID]
	if !ok {
		return nil, contract.ErrNotFound
	}
	out := c.Clone()
	return &out, nil
}

// Query returns claims newest first.
func (r *ClaimRepository) Query(ctx context.Context, filter contract.ClaimFilter) ([]*entity.ClaimRecord, error) {
	r.mu.RLock()
	out := make([]*entity.ClaimRecord, 0, len(r.claims))
	for _, c := range r.claims {
		if filter.PolicyNumber != "" && c.PolicyNumber != filter.PolicyNumber {
			continue
		}
		cp := c.Clone()
		out = append(out, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ClaimID < out[j].ClaimID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, filter.Offset, filter.Limit), nil
}

func (r *ClaimRepository) Delete(ctx context.Context, claimID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.claims[claimID]; !ok {
		return contract.ErrNotFound
	}
	delete(r.claims, claimID)
	return nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
