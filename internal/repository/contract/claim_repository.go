package contract

import (
	"context"
	"errors"

	"claim-pipeline-be/internal/entity"
)

// ErrNotFound is returned by every repository when the record does not exist.
var ErrNotFound = errors.New("record not found")

type ClaimFilter struct {
	PolicyNumber string
	Limit        int
	Offset       int
}

type ClaimRepository interface {
	Save(ctx context.Context, claim *entity.ClaimRecord) error
	Get(ctx context.Context, claimID string) (*entity.ClaimRecord, error)
	Query(ctx context.Context, filter ClaimFilter) ([]*entity.ClaimRecord, error)
	Delete(ctx context.Context, claimID string) error
}
