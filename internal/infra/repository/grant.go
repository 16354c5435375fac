package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	mediflow "github.com/singhaditya73/MediFlow"
	"github.com/singhaditya73/MediFlow/internal/domain"
	"github.com/singhaditya73/MediFlow/internal/infra/database/models"
)

type GrantRepository struct {
	db *gorm.DB
}

func NewGrantRepository(db *gorm.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// Upsert writes the grant keyed by (record, receiver). A conflicting row is
// updated in place and keeps its id.
func (r *GrantRepository) Upsert(ctx context.Context, grant domain.AccessGrant) (domain.AccessGrant, error) {
	model := models.AccessControl{
		RecordID:     grant.RecordID,
		GranterAddr:  grant.GranterAddr,
		ReceiverAddr: grant.ReceiverAddr,
		Level:        uint8(grant.Level),
		IsActive:     grant.IsActive,
		ExpiresAt:    grant.ExpiresAt,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "record_id"}, {Name: "receiver_addr"}},
		DoUpdates: clause.Assignments(map[string]any{
			"granter_addr": grant.GranterAddr,
			"level":        uint8(grant.Level),
			"is_active":    grant.IsActive,
			"expires_at":   grant.ExpiresAt,
		}),
	}).Create(&model).Error
	if err != nil {
		return domain.AccessGrant{}, err
	}

	// the conflict path keeps the original row, re-read for its id
	return r.Get(ctx, grant.RecordID, grant.ReceiverAddr)
}

func (r *GrantRepository) SetActive(ctx context.Context, recordID, receiver string, active bool) (domain.AccessGrant, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AccessControl{}).
		Where("record_id = ? AND receiver_addr = ?", recordID, receiver).
		Update("is_active", active)
	if result.Error != nil {
		return domain.AccessGrant{}, result.Error
	}
	if result.RowsAffected == 0 {
		return domain.AccessGrant{}, domain.NotFoundError{Resource: "grant"}
	}
	return r.Get(ctx, recordID, receiver)
}

func (r *GrantRepository) GetByID(ctx context.Context, id string) (domain.AccessGrant, error) {
	var model models.AccessControl
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.AccessGrant{}, domain.NotFoundError{Resource: "grant"}
	}
	if err != nil {
		return domain.AccessGrant{}, err
	}
	return grantToDomain(model), nil
}

func (r *GrantRepository) Get(ctx context.Context, recordID, receiver string) (domain.AccessGrant, error) {
	var model models.AccessControl
	err := r.db.WithContext(ctx).
		Where("record_id = ? AND receiver_addr = ?", recordID, receiver).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.AccessGrant{}, domain.NotFoundError{Resource: "grant"}
	}
	if err != nil {
		return domain.AccessGrant{}, err
	}
	return grantToDomain(model), nil
}

func (r *GrantRepository) ListByGranter(ctx context.Context, granter string) ([]domain.AccessGrant, error) {
	return r.list(ctx, "granter_addr = ?", granter)
}

func (r *GrantRepository) ListByReceiver(ctx context.Context, receiver string) ([]domain.AccessGrant, error) {
	return r.list(ctx, "receiver_addr = ?", receiver)
}

func (r *GrantRepository) ListByRecord(ctx context.Context, recordID string) ([]domain.AccessGrant, error) {
	return r.list(ctx, "record_id = ?", recordID)
}

func (r *GrantRepository) list(ctx context.Context, query string, arg string) ([]domain.AccessGrant, error) {
	var rows []models.AccessControl
	err := r.db.WithContext(ctx).
		Where(query, arg).
		Order("cdate DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	grants := make([]domain.AccessGrant, 0, len(rows))
	for _, row := range rows {
		grants = append(grants, grantToDomain(row))
	}
	return grants, nil
}

func grantToDomain(model models.AccessControl) domain.AccessGrant {
	return domain.AccessGrant{
		ID:           model.ID,
		RecordID:     model.RecordID,
		GranterAddr:  model.GranterAddr,
		ReceiverAddr: model.ReceiverAddr,
		Level:        mediflow.AccessLevel(model.Level),
		IsActive:     model.IsActive,
		ExpiresAt:    model.ExpiresAt,
		CreatedAt:    model.CDate,
	}
}
