package contract

import (
	"context"

	"claim-pipeline-be/internal/entity"
)

type SessionFilter struct {
	ClaimID  string
	Statuses []entity.SessionStatus
	Limit    int
}

// SessionRepository is the durable copy of processing sessions. Sessions are
// never deleted through it.
type SessionRepository interface {
	Save(ctx context.Context, session *entity.Session) error
	Get(ctx context.Context, sessionID string) (*entity.Session, error)
	Query(ctx context.Context, filter SessionFilter) ([]*entity.Session, error)
}
