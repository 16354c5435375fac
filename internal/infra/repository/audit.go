package repository

import (
	"context"

	"gorm.io/gorm"

	mediflow "github.com/singhaditya73/MediFlow"
	"github.com/singhaditya73/MediFlow/internal/domain"
	"github.com/singhaditya73/MediFlow/internal/infra/database/models"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts one entry. Entries are immutable; there is no update path.
func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	model := models.AuditLog{
		RecordID:     entry.RecordID,
		UserAddr:     entry.UserAddr,
		Action:       string(entry.Action),
		Metadata:     entry.Metadata,
		PreviousHash: entry.PreviousHash,
	}
	if entry.TxHash != "" {
		model.TxHash = &entry.TxHash
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.AuditEntry{}, err
	}
	return auditToDomain(model), nil
}

// List pages through mirrored entries, newest first. The filter's user scope
// is always set by the caller.
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) (domain.AuditPage, error) {
	query := r.db.WithContext(ctx).
		Model(&models.AuditLog{}).
		Where("user_addr = ?", filter.UserAddr)
	if filter.RecordID != "" {
		query = query.Where("record_id = ?", filter.RecordID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", string(filter.Action))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return domain.AuditPage{}, err
	}

	var rows []models.AuditLog
	err := query.
		Order("cdate DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&rows).Error
	if err != nil {
		return domain.AuditPage{}, err
	}

	entries := make([]domain.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, auditToDomain(row))
	}

	totalPages := total / int64(filter.Limit)
	if total%int64(filter.Limit) != 0 {
		totalPages++
	}

	return domain.AuditPage{
		Entries:    entries,
		Page:       filter.Page,
		Limit:      filter.Limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

func auditToDomain(model models.AuditLog) domain.AuditEntry {
	entry := domain.AuditEntry{
		ID:           model.ID,
		RecordID:     model.RecordID,
		UserAddr:     model.UserAddr,
		Action:       mediflow.AuditAction(model.Action),
		Metadata:     model.Metadata,
		PreviousHash: model.PreviousHash,
		Timestamp:    model.CDate,
	}
	if model.TxHash != nil {
		entry.TxHash = *model.TxHash
	}
	return entry
}
