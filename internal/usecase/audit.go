package usecase

import (
	"context"
	"time"

	"github.com/pkg/errors"

	mediflow "github.com/singhaditya73/MediFlow"
	"github.com/singhaditya73/MediFlow/internal/domain"
)

const (
	defaultAuditPageLimit = 20
	maxAuditPageLimit     = 100
)

// AuditUsecase reads and appends the tamper-evident trail. Appends are never
// retried automatically; the caller decides whether a failed append is fatal.
type AuditUsecase struct {
	ledger  LedgerGateway
	repo    AuditRepository
	records RecordRepository
}

func NewAuditUsecase(ledger LedgerGateway, repo AuditRepository, records RecordRepository) *AuditUsecase {
	return &AuditUsecase{
		ledger:  ledger,
		repo:    repo,
		records: records,
	}
}

// Append writes one entry to the ledger and mirrors it with the tx hash as
// provenance.
func (uc *AuditUsecase) Append(ctx context.Context, caller, recordID string, action mediflow.AuditAction, metadata any) (domain.AuditEntry, error) {
	ctx, span := tracer.Start(ctx, "Audit.Usecase.Append")
	defer span.End()

	caller = mediflow.NormalizeAddress(caller)
	if caller == "" {
		return domain.AuditEntry{}, domain.ErrUnauthorized
	}

	metadataJSON, err := mediflow.EncodeMetadata(action, metadata)
	if err != nil {
		span.RecordError(err)
		return domain.AuditEntry{}, errors.Wrap(domain.ErrInvalidInput, err.Error())
	}

	receipt, err := uc.ledger.LogAudit(ctx, recordID, action, metadataJSON)
	if err != nil {
		span.RecordError(err)
		return domain.AuditEntry{}, err
	}

	entry := domain.AuditEntry{
		RecordID:  recordID,
		UserAddr:  caller,
		Action:    action,
		Metadata:  metadataJSON,
		TxHash:    receipt.TxHash,
		Timestamp: time.Now(),
	}
	mirrored, err := uc.repo.Append(ctx, entry)
	if err != nil {
		// ledger append already happened; surface the entry anyway
		span.RecordError(errors.Wrap(err, "audit mirror append failed"))
		return entry, nil
	}
	return mirrored, nil
}

// Trail re-reads the full on-ledger trail for a record, oldest first, in
// ledger append order. Entries carry their chain-link hash for external
// verification; this core never reorders or verifies them.
func (uc *AuditUsecase) Trail(ctx context.Context, caller, recordID string) ([]domain.AuditEntry, error) {
	ctx, span := tracer.Start(ctx, "Audit.Usecase.Trail")
	defer span.End()

	caller = mediflow.NormalizeAddress(caller)
	if caller == "" {
		return nil, domain.ErrUnauthorized
	}

	record, err := uc.records.Get(ctx, recordID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !mediflow.SameAddress(record.OwnerAddr, caller) {
		ok, err := uc.ledger.HasAccess(ctx, recordID, caller)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if !ok {
			return nil, domain.ErrNotOwner
		}
	}

	entries, err := uc.ledger.ReadAuditTrail(ctx, recordID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return entries, nil
}

// Logs pages through the caller's mirrored audit entries, newest first.
func (uc *AuditUsecase) Logs(ctx context.Context, caller string, filter domain.AuditFilter) (domain.AuditPage, error) {
	ctx, span := tracer.Start(ctx, "Audit.Usecase.Logs")
	defer span.End()

	caller = mediflow.NormalizeAddress(caller)
	if caller == "" {
		return domain.AuditPage{}, domain.ErrUnauthorized
	}

	filter.UserAddr = caller
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultAuditPageLimit
	}
	if filter.Limit > maxAuditPageLimit {
		filter.Limit = maxAuditPageLimit
	}
	if filter.Action != "" && !filter.Action.Valid() {
		return domain.AuditPage{}, errors.Wrap(domain.ErrInvalidInput, "unknown audit action")
	}

	page, err := uc.repo.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return domain.AuditPage{}, err
	}
	return page, nil
}
