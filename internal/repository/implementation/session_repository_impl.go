package implementation

import (
	"context"
	"errors"

	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/mapper"
	"claim-pipeline-be/internal/model"
	"claim-pipeline-be/internal/repository/contract"
	"claim-pipeline-be/internal/repository/specification"

	"gorm.io/gorm"
)

type SessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewSessionRepository(db *gorm.DB) contract.SessionRepository {
	return &SessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

// Save writes the full snapshot; Save() updates every column when the row exists.
func (r *SessionRepositoryImpl) Save(ctx context.Context, session *entity.Session) error {
	return r.db.WithContext(ctx).Save(r.mapper.ToModel(session)).Error
}

func (r *SessionRepositoryImpl) Get(ctx context.Context, sessionID string) (*entity.Session, error) {
	var m model.ProcessingSession
	query := applySpecifications(r.db.WithContext(ctx), specification.BySessionID{SessionID: sessionID})
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contract.ErrNotFound
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *SessionRepositoryImpl) Query(ctx context.Context, filter contract.SessionFilter) ([]*entity.Session, error) {
	specs := []specification.Specification{
		specification.OrderBy{Field: "started_at", Desc: true},
		specification.Pagination{Limit: filter.Limit},
	}
	if filter.ClaimID != "" {
		specs = append(specs, specification.ByClaimID{ClaimID: filter.ClaimID})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		specs = append(specs, specification.ByStatuses{Statuses: statuses})
	}

	var models []*model.ProcessingSession
	if err := applySpecifications(r.db.WithContext(ctx), specs...).Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]*entity.Session, len(models))
	for i, m := range models {
		out[i] = r.mapper.ToEntity(m)
	}
	return out, nil
}
