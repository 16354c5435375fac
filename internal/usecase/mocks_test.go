package usecase

import (
	"context"
	"fmt"

	mediflow "github.com/singhaditya73/MediFlow"
	"github.com/singhaditya73/MediFlow/internal/domain"
)

type mockLedger struct {
	registerCalls int
	grantCalls    int
	revokeCalls   int
	logCalls      int

	receipt   mediflow.TransactionReceipt
	txErr     error
	logErr    error
	hasAccess bool
	viewErr   error
	access    domain.LedgerAccess
	trail     []domain.AuditEntry

	lastMetadata string
}

func (m *mockLedger) RegisterRecord(ctx context.Context, recordID, contentHash string) (mediflow.TransactionReceipt, error) {
	m.registerCalls++
	return m.receipt, m.txErr
}

func (m *mockLedger) GrantAccess(ctx context.Context, recordID, receiver string, level mediflow.AccessLevel, expiresAt int64) (mediflow.TransactionReceipt, error) {
	m.grantCalls++
	return m.receipt, m.txErr
}

func (m *mockLedger) RevokeAccess(ctx context.Context, recordID, receiver string) (mediflow.TransactionReceipt, error) {
	m.revokeCalls++
	return m.receipt, m.txErr
}

func (m *mockLedger) HasAccess(ctx context.Context, recordID, principal string) (bool, error) {
	return m.hasAccess, m.viewErr
}

func (m *mockLedger) GetAccess(ctx context.Context, recordID, principal string) (domain.LedgerAccess, error) {
	return m.access, m.viewErr
}

func (m *mockLedger) LogAudit(ctx context.Context, recordID string, action mediflow.AuditAction, metadataJSON string) (mediflow.TransactionReceipt, error) {
	m.logCalls++
	m.lastMetadata = metadataJSON
	return m.receipt, m.logErr
}

func (m *mockLedger) ReadAuditTrail(ctx context.Context, recordID string) ([]domain.AuditEntry, error) {
	return m.trail, m.viewErr
}

func grantKey(recordID, receiver string) string {
	return recordID + "|" + receiver
}

type mockGrantRepo struct {
	grants    map[string]domain.AccessGrant
	upsertErr error
	listErr   error
	seq       int
}

func newMockGrantRepo() *mockGrantRepo {
	return &mockGrantRepo{grants: map[string]domain.AccessGrant{}}
}

func (m *mockGrantRepo) Upsert(ctx context.Context, grant domain.AccessGrant) (domain.AccessGrant, error) {
	if m.upsertErr != nil {
		return domain.AccessGrant{}, m.upsertErr
	}
	key := grantKey(grant.RecordID, grant.ReceiverAddr)
	if existing, ok := m.grants[key]; ok {
		grant.ID = existing.ID
		grant.CreatedAt = existing.CreatedAt
	} else {
		m.seq++
		grant.ID = fmt.Sprintf("grant-%d", m.seq)
	}
	m.grants[key] = grant
	return grant, nil
}

func (m *mockGrantRepo) SetActive(ctx context.Context, recordID, receiver string, active bool) (domain.AccessGrant, error) {
	key := grantKey(recordID, receiver)
	grant, ok := m.grants[key]
	if !ok {
		return domain.AccessGrant{}, domain.NotFoundError{Resource: "grant"}
	}
	grant.IsActive = active
	m.grants[key] = grant
	return grant, nil
}

func (m *mockGrantRepo) GetByID(ctx context.Context, id string) (domain.AccessGrant, error) {
	for _, g := range m.grants {
		if g.ID == id {
			return g, nil
		}
	}
	return domain.AccessGrant{}, domain.NotFoundError{Resource: "grant"}
}

func (m *mockGrantRepo) Get(ctx context.Context, recordID, receiver string) (domain.AccessGrant, error) {
	grant, ok := m.grants[grantKey(recordID, receiver)]
	if !ok {
		return domain.AccessGrant{}, domain.NotFoundError{Resource: "grant"}
	}
	return grant, nil
}

func (m *mockGrantRepo) ListByGranter(ctx context.Context, granter string) ([]domain.AccessGrant, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.AccessGrant
	for _, g := range m.grants {
		if g.GranterAddr == granter {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockGrantRepo) ListByReceiver(ctx context.Context, receiver string) ([]domain.AccessGrant, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.AccessGrant
	for _, g := range m.grants {
		if g.ReceiverAddr == receiver {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockGrantRepo) ListByRecord(ctx context.Context, recordID string) ([]domain.AccessGrant, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.AccessGrant
	for _, g := range m.grants {
		if g.RecordID == recordID {
			out = append(out, g)
		}
	}
	return out, nil
}

type mockAuditRepo struct {
	entries    []domain.AuditEntry
	appendErr  error
	page       domain.AuditPage
	lastFilter domain.AuditFilter
}

func (m *mockAuditRepo) Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	if m.appendErr != nil {
		return domain.AuditEntry{}, m.appendErr
	}
	entry.ID = fmt.Sprintf("audit-%d", len(m.entries)+1)
	m.entries = append(m.entries, entry)
	return entry, nil
}

func (m *mockAuditRepo) List(ctx context.Context, filter domain.AuditFilter) (domain.AuditPage, error) {
	m.lastFilter = filter
	return m.page, nil
}

type mockRecordRepo struct {
	records     map[string]domain.HealthRecord
	createErr   error
	deleteCalls int
}

func newMockRecordRepo() *mockRecordRepo {
	return &mockRecordRepo{records: map[string]domain.HealthRecord{}}
}

func (m *mockRecordRepo) Create(ctx context.Context, record domain.HealthRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.records[record.ID] = record
	return nil
}

func (m *mockRecordRepo) Get(ctx context.Context, id string) (domain.HealthRecord, error) {
	record, ok := m.records[id]
	if !ok {
		return domain.HealthRecord{}, domain.NotFoundError{Resource: "record"}
	}
	return record, nil
}

func (m *mockRecordRepo) ListByOwner(ctx context.Context, owner string) ([]domain.HealthRecord, error) {
	var out []domain.HealthRecord
	for _, r := range m.records {
		if r.OwnerAddr == owner {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRecordRepo) Delete(ctx context.Context, id string) error {
	m.deleteCalls++
	delete(m.records, id)
	return nil
}

type mockCache struct {
	owned       map[string][]domain.HealthRecord
	sharedBy    map[string][]domain.GrantView
	sharedWith  map[string][]domain.GrantView
	invalidated []string
}

func newMockCache() *mockCache {
	return &mockCache{
		owned:      map[string][]domain.HealthRecord{},
		sharedBy:   map[string][]domain.GrantView{},
		sharedWith: map[string][]domain.GrantView{},
	}
}

func (m *mockCache) ReplaceOwned(owner string, records []domain.HealthRecord) {
	m.owned[owner] = records
}

func (m *mockCache) ReplaceSharedBy(granter string, grants []domain.GrantView) {
	m.sharedBy[granter] = grants
}

func (m *mockCache) ReplaceSharedWith(receiver string, grants []domain.GrantView) {
	m.sharedWith[receiver] = grants
}

func (m *mockCache) Owned(owner string) ([]domain.HealthRecord, bool) {
	records, ok := m.owned[owner]
	return records, ok
}

func (m *mockCache) SharedBy(granter string) ([]domain.GrantView, bool) {
	grants, ok := m.sharedBy[granter]
	return grants, ok
}

func (m *mockCache) SharedWith(receiver string) ([]domain.GrantView, bool) {
	grants, ok := m.sharedWith[receiver]
	return grants, ok
}

func (m *mockCache) Invalidate(principal string) {
	m.invalidated = append(m.invalidated, principal)
	delete(m.owned, principal)
	delete(m.sharedBy, principal)
	delete(m.sharedWith, principal)
}

type mockSignal struct {
	events []mediflow.Event
}

func (m *mockSignal) Publish(ctx context.Context, event mediflow.Event) error {
	m.events = append(m.events, event)
	return nil
}

type mockStore struct {
	content map[string][]byte
}

func (m *mockStore) Cat(ctx context.Context, hash string) ([]byte, error) {
	b, ok := m.content[hash]
	if !ok {
		return nil, domain.NotFoundError{Resource: "content"}
	}
	return b, nil
}
