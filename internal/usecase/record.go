package usecase

import (
	"context"
	"time"

	"github.com/pkg/errors"

	mediflow "github.com/singhaditya73/MediFlow"
	"github.com/singhaditya73/MediFlow/internal/domain"
)

// RegisterInput describes a record to register on the ledger.
type RegisterInput struct {
	ID           string
	ContentHash  string
	ResourceType string
}

// RecordUsecase registers, serves and deletes records. Registration writes
// the ledger; deletion cascades the relational mirror only, the ledger
// retains history.
type RecordUsecase struct {
	ledger  LedgerGateway
	records RecordRepository
	grants  GrantRepository
	audits  AuditRepository
	cache   PresentationCache
	signal  EventPublisher
	store   ContentStore
}

func NewRecordUsecase(
	ledger LedgerGateway,
	records RecordRepository,
	grants GrantRepository,
	audits AuditRepository,
	cache PresentationCache,
	signal EventPublisher,
	store ContentStore,
) *RecordUsecase {
	return &RecordUsecase{
		ledger:  ledger,
		records: records,
		grants:  grants,
		audits:  audits,
		cache:   cache,
		signal:  signal,
		store:   store,
	}
}

// Register puts a record on the ledger and mirrors it. The owner is the
// caller and never changes afterwards.
func (uc *RecordUsecase) Register(ctx context.Context, caller string, input RegisterInput) (domain.RecordResult, error) {
	ctx, span := tracer.Start(ctx, "Record.Usecase.Register")
	defer span.End()

	caller = mediflow.NormalizeAddress(caller)
	if caller == "" {
		return domain.RecordResult{}, domain.ErrUnauthorized
	}
	if input.ID == "" || input.ContentHash == "" {
		return domain.RecordResult{}, errors.Wrap(domain.ErrInvalidInput, "record id and content hash are required")
	}

	if _, err := uc.records.Get(ctx, input.ID); err == nil {
		return domain.RecordResult{}, errors.Wrap(domain.ErrInvalidInput, "record already registered")
	} else if !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
		return domain.RecordResult{}, err
	}

	receipt, err := uc.ledger.RegisterRecord(ctx, input.ID, input.ContentHash)
	if errors.Is(err, domain.ErrConfirmationPending) {
		return domain.RecordResult{Receipt: receipt, Pending: true}, nil
	}
	if err != nil {
		span.RecordError(err)
		return domain.RecordResult{}, err
	}

	var warnings []string
	record := domain.HealthRecord{
		ID:           input.ID,
		OwnerAddr:    caller,
		ContentHash:  input.ContentHash,
		ResourceType: input.ResourceType,
	}
	if err := uc.records.Create(ctx, record); err != nil {
		span.RecordError(errors.Wrap(err, "mirror create failed after ledger confirmation"))
		warnings = append(warnings, domain.ErrPartialWrite.Error())
	}

	metadataJSON, err := mediflow.EncodeMetadata(mediflow.ActionCreate, mediflow.CreateMetadata{
		ContentHash: input.ContentHash,
		Timestamp:   time.Now().Unix(),
	})
	if err == nil {
		auditTx := receipt.TxHash
		if r, err := uc.ledger.LogAudit(ctx, input.ID, mediflow.ActionCreate, metadataJSON); err != nil {
			warnings = append(warnings, "audit ledger append failed: "+err.Error())
		} else {
			auditTx = r.TxHash
		}
		if _, err := uc.audits.Append(ctx, domain.AuditEntry{
			RecordID:  input.ID,
			UserAddr:  caller,
			Action:    mediflow.ActionCreate,
			Metadata:  metadataJSON,
			TxHash:    auditTx,
			Timestamp: time.Now(),
		}); err != nil {
			warnings = append(warnings, "audit mirror append failed: "+err.Error())
		}
	}

	if owned, err := uc.records.ListByOwner(ctx, caller); err == nil {
		uc.cache.ReplaceOwned(caller, owned)
	} else {
		uc.cache.Invalidate(caller)
	}

	if uc.signal != nil {
		if err := uc.signal.Publish(ctx, mediflow.Event{
			RecordID:  input.ID,
			Action:    mediflow.ActionCreate,
			Actor:     caller,
			TxHash:    receipt.TxHash,
			Timestamp: time.Now(),
		}); err != nil {
			span.RecordError(errors.Wrap(err, "event publish failed"))
		}
	}

	return domain.RecordResult{Record: record, Receipt: receipt, Warnings: warnings}, nil
}

// ListOwned returns the caller's records, cache first.
func (uc *RecordUsecase) ListOwned(ctx context.Context, caller string) ([]domain.HealthRecord, error) {
	ctx, span := tracer.Start(ctx, "Record.Usecase.ListOwned")
	defer span.End()

	caller = mediflow.NormalizeAddress(caller)
	if caller == "" {
		return nil, domain.ErrUnauthorized
	}

	if cached, ok := uc.cache.Owned(caller); ok {
		return cached, nil
	}

	records, err := uc.records.ListByOwner(ctx, caller)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	uc.cache.ReplaceOwned(caller, records)
	return records, nil
}

// Fetch resolves a record's content for an authorized caller and logs a
// mirror-only view entry. Viewing costs no transaction.
func (uc *RecordUsecase) Fetch(ctx context.Context, caller, recordID string) (domain.HealthRecord, []byte, error) {
	ctx, span := tracer.Start(ctx, "Record.Usecase.Fetch")
	defer span.End()

	caller = mediflow.NormalizeAddress(caller)
	if caller == "" {
		return domain.HealthRecord{}, nil, domain.ErrUnauthorized
	}

	record, err := uc.records.Get(ctx, recordID)
	if err != nil {
		span.RecordError(err)
		return domain.HealthRecord{}, nil, err
	}

	if !mediflow.SameAddress(record.OwnerAddr, caller) {
		grant, err := uc.grants.Get(ctx, recordID, caller)
		authorized := err == nil && grant.Usable(time.Now())
		if !authorized {
			// the mirror may be stale; the ledger has the final say
			ok, err := uc.ledger.HasAccess(ctx, recordID, caller)
			if err != nil {
				span.RecordError(err)
				return domain.HealthRecord{}, nil, err
			}
			authorized = ok
		}
		if !authorized {
			return domain.HealthRecord{}, nil, domain.ErrNotOwner
		}
	}

	var content []byte
	if uc.store != nil {
		content, err = uc.store.Cat(ctx, record.ContentHash)
		if err != nil {
			span.RecordError(errors.Wrap(err, "content fetch failed"))
			return domain.HealthRecord{}, nil, err
		}
	}

	if metadataJSON, err := mediflow.EncodeMetadata(mediflow.ActionView, mediflow.ViewMetadata{
		Viewer:    caller,
		Timestamp: time.Now().Unix(),
	}); err == nil {
		if _, err := uc.audits.Append(ctx, domain.AuditEntry{
			RecordID:  recordID,
			UserAddr:  caller,
			Action:    mediflow.ActionView,
			Metadata:  metadataJSON,
			Timestamp: time.Now(),
		}); err != nil {
			span.RecordError(errors.Wrap(err, "view audit append failed"))
		}
	}

	return record, content, nil
}

// HasAccess answers the on-ledger view call with expiry applied.
func (uc *RecordUsecase) HasAccess(ctx context.Context, recordID, principal string) (bool, domain.LedgerAccess, error) {
	ctx, span := tracer.Start(ctx, "Record.Usecase.HasAccess")
	defer span.End()

	principal = mediflow.NormalizeAddress(principal)
	if !mediflow.IsAddress(principal) {
		return false, domain.LedgerAccess{}, errors.Wrap(domain.ErrInvalidPrincipal, "malformed principal address")
	}

	access, err := uc.ledger.GetAccess(ctx, recordID, principal)
	if err != nil {
		span.RecordError(err)
		return false, domain.LedgerAccess{}, err
	}

	usable := access.IsActive && (access.ExpiresAt == 0 || time.Now().Unix() < access.ExpiresAt)
	return usable, access, nil
}

// Delete removes a record from the relational mirror, cascading its grants
// and mirrored audit rows. The ledger keeps the full history; a delete entry
// is appended there first.
func (uc *RecordUsecase) Delete(ctx context.Context, caller, recordID string) error {
	ctx, span := tracer.Start(ctx, "Record.Usecase.Delete")
	defer span.End()

	caller = mediflow.NormalizeAddress(caller)
	if caller == "" {
		return domain.ErrUnauthorized
	}

	record, err := uc.records.Get(ctx, recordID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !mediflow.SameAddress(record.OwnerAddr, caller) {
		return domain.ErrNotOwner
	}

	receivers, err := uc.grants.ListByRecord(ctx, recordID)
	if err != nil {
		span.RecordError(err)
		receivers = nil
	}

	if metadataJSON, err := mediflow.EncodeMetadata(mediflow.ActionDelete, mediflow.DeleteMetadata{
		Timestamp: time.Now().Unix(),
	}); err == nil {
		if _, err := uc.ledger.LogAudit(ctx, recordID, mediflow.ActionDelete, metadataJSON); err != nil {
			span.RecordError(errors.Wrap(err, "delete audit ledger append failed"))
		}
	}

	if err := uc.records.Delete(ctx, recordID); err != nil {
		span.RecordError(err)
		return err
	}

	uc.cache.Invalidate(caller)
	for _, g := range receivers {
		uc.cache.Invalidate(g.ReceiverAddr)
	}

	if uc.signal != nil {
		if err := uc.signal.Publish(ctx, mediflow.Event{
			RecordID:  recordID,
			Action:    mediflow.ActionDelete,
			Actor:     caller,
			Timestamp: time.Now(),
		}); err != nil {
			span.RecordError(errors.Wrap(err, "event publish failed"))
		}
	}

	return nil
}
