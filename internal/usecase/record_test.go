package usecase

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	mediflow "github.com/singhaditya73/MediFlow"
	"github.com/singhaditya73/MediFlow/internal/domain"
)

type recordFixture struct {
	ledger  *mockLedger
	records *mockRecordRepo
	grants  *mockGrantRepo
	audits  *mockAuditRepo
	cache   *mockCache
	signal  *mockSignal
	store   *mockStore
	uc      *RecordUsecase
}

func newRecordFixture() *recordFixture {
	f := &recordFixture{
		ledger:  &mockLedger{receipt: mediflow.TransactionReceipt{TxHash: "0xreg"}},
		records: newMockRecordRepo(),
		grants:  newMockGrantRepo(),
		audits:  &mockAuditRepo{},
		cache:   newMockCache(),
		signal:  &mockSignal{},
		store:   &mockStore{content: map[string][]byte{}},
	}
	f.uc = NewRecordUsecase(f.ledger, f.records, f.grants, f.audits, f.cache, f.signal, f.store)
	return f
}

func (f *recordFixture) seedRecord() {
	f.records.records[testRecordID] = domain.HealthRecord{
		ID:          testRecordID,
		OwnerAddr:   ownerAddr,
		ContentHash: "QmSeed",
	}
	f.store.content["QmSeed"] = []byte(`{"resourceType":"Observation"}`)
}

func TestRegisterMirrorsAndAudits(t *testing.T) {
	f := newRecordFixture()

	result, err := f.uc.Register(context.Background(), ownerAddr, RegisterInput{
		ID:          testRecordID,
		ContentHash: "QmNew",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", result.Warnings)
	}
	if result.Record.OwnerAddr != ownerAddr {
		t.Fatalf("owner must be the caller, got %s", result.Record.OwnerAddr)
	}

	if _, err := f.records.Get(context.Background(), testRecordID); err != nil {
		t.Fatalf("record missing from mirror: %v", err)
	}
	if len(f.audits.entries) != 1 || f.audits.entries[0].Action != mediflow.ActionCreate {
		t.Fatalf("expected one create audit entry, got %+v", f.audits.entries)
	}
	if _, ok := f.cache.owned[ownerAddr]; !ok {
		t.Fatal("owner presentation cache was not refreshed")
	}
	if len(f.signal.events) != 1 || f.signal.events[0].Action != mediflow.ActionCreate {
		t.Fatalf("expected one create event, got %+v", f.signal.events)
	}
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	f := newRecordFixture()
	f.seedRecord()

	_, err := f.uc.Register(context.Background(), ownerAddr, RegisterInput{
		ID:          testRecordID,
		ContentHash: "QmOther",
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if f.ledger.registerCalls != 0 {
		t.Fatal("duplicate registration must not reach the ledger")
	}
}

func TestRegisterPendingConfirmation(t *testing.T) {
	f := newRecordFixture()
	f.ledger.receipt = mediflow.TransactionReceipt{TxHash: "0xpending"}
	f.ledger.txErr = domain.ErrConfirmationPending

	result, err := f.uc.Register(context.Background(), ownerAddr, RegisterInput{
		ID:          testRecordID,
		ContentHash: "QmNew",
	})
	if err != nil {
		t.Fatalf("pending confirmation is not an error: %v", err)
	}
	if !result.Pending || result.Receipt.TxHash != "0xpending" {
		t.Fatalf("unexpected pending result: %+v", result)
	}
	if len(f.records.records) != 0 {
		t.Fatal("nothing may be mirrored while the transaction is pending")
	}
}

func TestFetchAllowsOwner(t *testing.T) {
	f := newRecordFixture()
	f.seedRecord()

	record, content, err := f.uc.Fetch(context.Background(), ownerAddr, testRecordID)
	if err != nil {
		t.Fatalf("owner fetch failed: %v", err)
	}
	if record.ID != testRecordID {
		t.Fatalf("unexpected record: %+v", record)
	}
	if !bytes.Contains(content, []byte("Observation")) {
		t.Fatalf("unexpected content: %s", content)
	}
	if len(f.audits.entries) != 1 || f.audits.entries[0].Action != mediflow.ActionView {
		t.Fatalf("expected one view audit entry, got %+v", f.audits.entries)
	}
	if f.audits.entries[0].TxHash != "" {
		t.Fatal("view entries are mirror-only and carry no tx hash")
	}
}

func TestFetchAllowsUsableGrant(t *testing.T) {
	f := newRecordFixture()
	f.seedRecord()
	f.grants.grants[grantKey(testRecordID, receiverAddr)] = domain.AccessGrant{
		RecordID:     testRecordID,
		GranterAddr:  ownerAddr,
		ReceiverAddr: receiverAddr,
		Level:        mediflow.AccessLevelRead,
		IsActive:     true,
	}

	_, content, err := f.uc.Fetch(context.Background(), receiverAddr, testRecordID)
	if err != nil {
		t.Fatalf("grantee fetch failed: %v", err)
	}
	if len(content) == 0 {
		t.Fatal("expected content bytes")
	}
}

func TestFetchFallsBackToLedger(t *testing.T) {
	f := newRecordFixture()
	f.seedRecord()
	// no mirrored grant, but the ledger says yes
	f.ledger.hasAccess = true

	if _, _, err := f.uc.Fetch(context.Background(), receiverAddr, testRecordID); err != nil {
		t.Fatalf("ledger-authorized fetch failed: %v", err)
	}
}

func TestFetchDeniesExpiredGrant(t *testing.T) {
	f := newRecordFixture()
	f.seedRecord()
	f.grants.grants[grantKey(testRecordID, receiverAddr)] = domain.AccessGrant{
		RecordID:     testRecordID,
		ReceiverAddr: receiverAddr,
		IsActive:     true,
		ExpiresAt:    time.Now().Add(-time.Minute).Unix(),
	}

	if _, _, err := f.uc.Fetch(context.Background(), receiverAddr, testRecordID); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner for expired grant, got %v", err)
	}
}

func TestHasAccessAppliesExpiry(t *testing.T) {
	f := newRecordFixture()
	f.ledger.access = domain.LedgerAccess{
		Granter:   ownerAddr,
		Level:     mediflow.AccessLevelRead,
		IsActive:  true,
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	}

	usable, access, err := f.uc.HasAccess(context.Background(), testRecordID, receiverAddr)
	if err != nil {
		t.Fatalf("has-access failed: %v", err)
	}
	if usable {
		t.Fatal("expired access must not be usable")
	}
	if !access.IsActive {
		t.Fatal("raw ledger state must still be returned")
	}
}

func TestHasAccessUnboundedExpiry(t *testing.T) {
	f := newRecordFixture()
	f.ledger.access = domain.LedgerAccess{
		Granter:  ownerAddr,
		Level:    mediflow.AccessLevelRead,
		IsActive: true,
	}

	usable, _, err := f.uc.HasAccess(context.Background(), testRecordID, receiverAddr)
	if err != nil {
		t.Fatalf("has-access failed: %v", err)
	}
	if !usable {
		t.Fatal("zero expiry means unbounded, not expired")
	}
}

func TestDeleteCascadesMirrorOnly(t *testing.T) {
	f := newRecordFixture()
	f.seedRecord()
	f.grants.grants[grantKey(testRecordID, receiverAddr)] = domain.AccessGrant{
		RecordID:     testRecordID,
		GranterAddr:  ownerAddr,
		ReceiverAddr: receiverAddr,
		IsActive:     true,
	}

	if err := f.uc.Delete(context.Background(), ownerAddr, testRecordID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if f.records.deleteCalls != 1 {
		t.Fatalf("expected one mirror delete, got %d", f.records.deleteCalls)
	}
	if f.ledger.logCalls != 1 {
		t.Fatal("a delete entry must be appended to the ledger before the cascade")
	}

	invalidated := map[string]bool{}
	for _, p := range f.cache.invalidated {
		invalidated[p] = true
	}
	if !invalidated[ownerAddr] || !invalidated[receiverAddr] {
		t.Fatalf("owner and receivers must be invalidated, got %v", f.cache.invalidated)
	}
}

func TestDeleteRejectsNonOwner(t *testing.T) {
	f := newRecordFixture()
	f.seedRecord()

	if err := f.uc.Delete(context.Background(), otherAddr, testRecordID); !errors.Is(err, domain.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if f.records.deleteCalls != 0 {
		t.Fatal("non-owner delete must not touch the mirror")
	}
}

func TestListOwnedPrefersCache(t *testing.T) {
	f := newRecordFixture()
	f.cache.owned[ownerAddr] = []domain.HealthRecord{{ID: "cached", OwnerAddr: ownerAddr}}

	records, err := f.uc.ListOwned(context.Background(), ownerAddr)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != "cached" {
		t.Fatalf("expected the cached listing, got %+v", records)
	}
}
