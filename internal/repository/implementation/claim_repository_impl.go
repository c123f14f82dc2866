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
	"gorm.io/gorm/clause"
)

type ClaimRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ClaimMapper
}

func NewClaimRepository(db *gorm.DB) contract.ClaimRepository {
	return &ClaimRepositoryImpl{
		db:     db,
		mapper: mapper.NewClaimMapper(),
	}
}

func applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// Save upserts by claim id. A soft-deleted claim with the same id is revived.
func (r *ClaimRepositoryImpl) Save(ctx context.Context, claim *entity.ClaimRecord) error {
	m := r.mapper.ToModel(claim)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "claim_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"patient_name", "policy_number", "claim_amount", "claim_date", "coverage_limit",
			"previous_claims_amount", "available_balance", "diagnosis", "treatment",
			"hospital_name", "document_kinds", "policy_year", "source", "updated_at", "deleted_at",
		}),
	}).Create(m).Error
	if err != nil {
		return err
	}
	*claim = *r.mapper.ToEntity(m)
	return nil
}

func (r *ClaimRepositoryImpl) Get(ctx context.Context, claimID string) (*entity.ClaimRecord, error) {
	var m model.Claim
	query := applySpecifications(r.db.WithContext(ctx), specification.ByClaimID{ClaimID: claimID})
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contract.ErrNotFound
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ClaimRepositoryImpl) Query(ctx context.Context, filter contract.ClaimFilter) ([]*entity.ClaimRecord, error) {
	specs := []specification.Specification{
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: filter.Limit, Offset: filter.Offset},
	}
	if filter.PolicyNumber != "" {
		specs = append(specs, specification.Filter("policy_number", filter.PolicyNumber))
	}

	var models []*model.Claim
	if err := applySpecifications(r.db.WithContext(ctx), specs...).Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]*entity.ClaimRecord, len(models))
	for i, m := range models {
		out[i] = r.mapper.ToEntity(m)
	}
	return out, nil
}

func (r *ClaimRepositoryImpl) Delete(ctx context.Context, claimID string) error {
	res := r.db.WithContext(ctx).Where("claim_id = ?", claimID).Delete(&model.Claim{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return contract.ErrNotFound
	}
	return nil
}
