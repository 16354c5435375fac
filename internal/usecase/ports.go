package usecase

import (
	"context"

	mediflow "github.com/singhaditya73/MediFlow"
	"github.com/singhaditya73/MediFlow/internal/domain"
)

// LedgerGateway is the single choke point for ledger interaction. No other
// component constructs ledger calls.
type LedgerGateway interface {
	RegisterRecord(ctx context.Context, recordID, contentHash string) (mediflow.TransactionReceipt, error)
	GrantAccess(ctx context.Context, recordID, receiver string, level mediflow.AccessLevel, expiresAt int64) (mediflow.TransactionReceipt, error)
	RevokeAccess(ctx context.Context, recordID, receiver string) (mediflow.TransactionReceipt, error)
	HasAccess(ctx context.Context, recordID, principal string) (bool, error)
	GetAccess(ctx context.Context, recordID, principal string) (domain.LedgerAccess, error)
	LogAudit(ctx context.Context, recordID string, action mediflow.AuditAction, metadataJSON string) (mediflow.TransactionReceipt, error)
	ReadAuditTrail(ctx context.Context, recordID string) ([]domain.AuditEntry, error)
}

// GrantRepository defines mirror storage for access grants.
type GrantRepository interface {
	Upsert(ctx context.Context, grant domain.AccessGrant) (domain.AccessGrant, error)
	SetActive(ctx context.Context, recordID, receiver string, active bool) (domain.AccessGrant, error)
	GetByID(ctx context.Context, id string) (domain.AccessGrant, error)
	Get(ctx context.Context, recordID, receiver string) (domain.AccessGrant, error)
	ListByGranter(ctx context.Context, granter string) ([]domain.AccessGrant, error)
	ListByReceiver(ctx context.Context, receiver string) ([]domain.AccessGrant, error)
	ListByRecord(ctx context.Context, recordID string) ([]domain.AccessGrant, error)
}

// AuditRepository defines mirror storage for audit entries.
type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error)
	List(ctx context.Context, filter domain.AuditFilter) (domain.AuditPage, error)
}

// RecordRepository defines mirror storage for registered records.
type RecordRepository interface {
	Create(ctx context.Context, record domain.HealthRecord) error
	Get(ctx context.Context, id string) (domain.HealthRecord, error)
	ListByOwner(ctx context.Context, owner string) ([]domain.HealthRecord, error)
	Delete(ctx context.Context, id string) error
}

// PresentationCache is the local mirror consulted by read paths. Writes
// replace whole collections; the cache is never authoritative and is safe
// to discard at any time.
type PresentationCache interface {
	ReplaceOwned(owner string, records []domain.HealthRecord)
	ReplaceSharedBy(granter string, grants []domain.GrantView)
	ReplaceSharedWith(receiver string, grants []domain.GrantView)
	Owned(owner string) ([]domain.HealthRecord, bool)
	SharedBy(granter string) ([]domain.GrantView, bool)
	SharedWith(receiver string) ([]domain.GrantView, bool)
	Invalidate(principal string)
}

// EventPublisher fans out access events to realtime subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event mediflow.Event) error
}

// ContentStore resolves document bytes by content hash.
type ContentStore interface {
	Cat(ctx context.Context, hash string) ([]byte, error)
}
