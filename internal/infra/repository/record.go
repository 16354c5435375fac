package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/singhaditya73/MediFlow/internal/domain"
	"github.com/singhaditya73/MediFlow/internal/infra/database/models"
)

type RecordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func (r *RecordRepository) Create(ctx context.Context, record domain.HealthRecord) error {
	model := models.HealthRecord{
		ID:           record.ID,
		OwnerAddr:    record.OwnerAddr,
		ContentHash:  record.ContentHash,
		ResourceType: record.ResourceType,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		DoNothing: true,
	}).Create(&model).Error
}

func (r *RecordRepository) Get(ctx context.Context, id string) (domain.HealthRecord, error) {
	var model models.HealthRecord
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.HealthRecord{}, domain.NotFoundError{Resource: "record"}
	}
	if err != nil {
		return domain.HealthRecord{}, err
	}
	return recordToDomain(model), nil
}

func (r *RecordRepository) ListByOwner(ctx context.Context, owner string) ([]domain.HealthRecord, error) {
	var rows []models.HealthRecord
	err := r.db.WithContext(ctx).
		Where("owner_addr = ?", owner).
		Order("cdate DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]domain.HealthRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, recordToDomain(row))
	}
	return records, nil
}

// Delete cascades the mirror: grants and mirrored audit rows go with the
// record. The ledger keeps its history untouched.
func (r *RecordRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.AccessControl{}, "record_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.AuditLog{}, "record_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.HealthRecord{}, "id = ?", id).Error
	})
}

func recordToDomain(model models.HealthRecord) domain.HealthRecord {
	return domain.HealthRecord{
		ID:           model.ID,
		OwnerAddr:    model.OwnerAddr,
		ContentHash:  model.ContentHash,
		ResourceType: model.ResourceType,
		CreatedAt:    model.CDate,
	}
}
