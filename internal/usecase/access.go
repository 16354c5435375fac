package usecase

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	mediflow "github.com/singhaditya73/MediFlow"
	"github.com/singhaditya73/MediFlow/internal/domain"
)

var tracer = otel.Tracer("usecase")

// GrantInput is the validated input for sharing a record.
type GrantInput struct {
	RecordID string
	Receiver string
	Level    mediflow.AccessLevel
	// ExpiresAt is absolute unix seconds; 0 means unbounded.
	ExpiresAt int64
}

// UpdateInput carries the optional overrides of a PATCH. Nil fields keep the
// grant's stored values.
type UpdateInput struct {
	IsActive  *bool
	Level     *mediflow.AccessLevel
	ExpiresAt *int64
}

// AccessUsecase owns the grant lifecycle. The ledger is the only authority;
// mirror, audit and cache writes after confirmation degrade to warnings.
type AccessUsecase struct {
	ledger  LedgerGateway
	grants  GrantRepository
	audits  AuditRepository
	records RecordRepository
	cache   PresentationCache
	signal  EventPublisher
}

func NewAccessUsecase(
	ledger LedgerGateway,
	grants GrantRepository,
	audits AuditRepository,
	records RecordRepository,
	cache PresentationCache,
	signal EventPublisher,
) *AccessUsecase {
	return &AccessUsecase{
		ledger:  ledger,
		grants:  grants,
		audits:  audits,
		records: records,
		cache:   cache,
		signal:  signal,
	}
}

// Grant shares a record with a receiver. Upsert semantics: re-granting an
// existing (record, receiver) pair updates level/expiry in place.
func (uc *AccessUsecase) Grant(ctx context.Context, caller string, input GrantInput) (domain.GrantResult, error) {
	ctx, span := tracer.Start(ctx, "Access.Usecase.Grant")
	defer span.End()

	caller, receiver, err := uc.checkPrincipals(caller, input.Receiver)
	if err != nil {
		span.RecordError(err)
		return domain.GrantResult{}, err
	}
	if !input.Level.Valid() {
		err := errors.Wrap(domain.ErrInvalidInput, "unknown access level")
		span.RecordError(err)
		return domain.GrantResult{}, err
	}
	if input.ExpiresAt < 0 {
		err := errors.Wrap(domain.ErrInvalidInput, "expiry must not be negative")
		span.RecordError(err)
		return domain.GrantResult{}, err
	}

	// Local precheck saves a doomed transaction; the ledger re-enforces
	// ownership and stays the final arbiter.
	if err := uc.checkOwnership(ctx, caller, input.RecordID); err != nil {
		span.RecordError(err)
		return domain.GrantResult{}, err
	}

	receipt, err := uc.ledger.GrantAccess(ctx, input.RecordID, receiver, input.Level, input.ExpiresAt)
	if errors.Is(err, domain.ErrConfirmationPending) {
		// Transaction outstanding: nothing mirrored, never resubmitted.
		return domain.GrantResult{Receipt: receipt, Pending: true}, nil
	}
	if err != nil {
		span.RecordError(err)
		return domain.GrantResult{}, err
	}

	var warnings []string
	grant := domain.AccessGrant{
		RecordID:     input.RecordID,
		GranterAddr:  caller,
		ReceiverAddr: receiver,
		Level:        input.Level,
		IsActive:     true,
		ExpiresAt:    input.ExpiresAt,
	}
	stored, err := uc.grants.Upsert(ctx, grant)
	if err != nil {
		span.RecordError(errors.Wrap(err, "mirror upsert failed after ledger confirmation"))
		warnings = append(warnings, domain.ErrPartialWrite.Error())
		stored = grant
	}

	warnings = append(warnings, uc.appendAudit(ctx, caller, input.RecordID, mediflow.ActionGrant, mediflow.GrantMetadata{
		Receiver:  receiver,
		Level:     input.Level.String(),
		ExpiresAt: input.ExpiresAt,
		Timestamp: time.Now().Unix(),
	}, receipt.TxHash)...)

	warnings = append(warnings, uc.refreshGrantCaches(ctx, caller, receiver)...)
	uc.publish(ctx, span, mediflow.Event{
		RecordID:  input.RecordID,
		Action:    mediflow.ActionGrant,
		Actor:     caller,
		TxHash:    receipt.TxHash,
		Timestamp: time.Now(),
	})

	return domain.GrantResult{Grant: stored, Receipt: receipt, Warnings: warnings}, nil
}

// Revoke deactivates a grant. Revoking an absent or already-inactive grant
// is a no-op that still succeeds.
func (uc *AccessUsecase) Revoke(ctx context.Context, caller string, recordID, receiver string) (domain.GrantResult, error) {
	ctx, span := tracer.Start(ctx, "Access.Usecase.Revoke")
	defer span.End()

	caller, receiver, err := uc.checkPrincipals(caller, receiver)
	if err != nil {
		span.RecordError(err)
		return domain.GrantResult{}, err
	}
	if err := uc.checkOwnership(ctx, caller, recordID); err != nil {
		span.RecordError(err)
		return domain.GrantResult{}, err
	}

	receipt, err := uc.ledger.RevokeAccess(ctx, recordID, receiver)
	if errors.Is(err, domain.ErrConfirmationPending) {
		return domain.GrantResult{Receipt: receipt, Pending: true}, nil
	}
	if err != nil {
		span.RecordError(err)
		return domain.GrantResult{}, err
	}

	var warnings []string
	stored, err := uc.grants.SetActive(ctx, recordID, receiver, false)
	if errors.Is(err, domain.ErrNotFound) {
		// no mirrored grant to toggle; the ledger state is already final
		stored = domain.AccessGrant{
			RecordID:     recordID,
			GranterAddr:  caller,
			ReceiverAddr: receiver,
			IsActive:     false,
		}
	} else if err != nil {
		span.RecordError(errors.Wrap(err, "mirror toggle failed after ledger confirmation"))
		warnings = append(warnings, domain.ErrPartialWrite.Error())
	}

	warnings = append(warnings, uc.appendAudit(ctx, caller, recordID, mediflow.ActionRevoke, mediflow.RevokeMetadata{
		Receiver:  receiver,
		Timestamp: time.Now().Unix(),
	}, receipt.TxHash)...)

	warnings = append(warnings, uc.refreshGrantCaches(ctx, caller, receiver)...)
	uc.publish(ctx, span, mediflow.Event{
		RecordID:  recordID,
		Action:    mediflow.ActionRevoke,
		Actor:     caller,
		TxHash:    receipt.TxHash,
		Timestamp: time.Now(),
	})

	return domain.GrantResult{Grant: stored, Receipt: receipt, Warnings: warnings}, nil
}

// Toggle flips a grant by its mirror id, reusing stored level/expiry unless
// overridden.
func (uc *AccessUsecase) Toggle(ctx context.Context, caller string, grantID string, upd UpdateInput) (domain.GrantResult, error) {
	ctx, span := tracer.Start(ctx, "Access.Usecase.Toggle")
	defer span.End()

	caller = mediflow.NormalizeAddress(caller)
	if caller == "" {
		return domain.GrantResult{}, domain.ErrUnauthorized
	}

	grant, err := uc.grants.GetByID(ctx, grantID)
	if err != nil {
		span.RecordError(err)
		return domain.GrantResult{}, err
	}
	if !mediflow.SameAddress(grant.GranterAddr, caller) {
		span.RecordError(domain.ErrNotOwner)
		return domain.GrantResult{}, domain.ErrNotOwner
	}

	targetActive := !grant.IsActive
	if upd.IsActive != nil {
		targetActive = *upd.IsActive
	}
	if !targetActive {
		return uc.Revoke(ctx, caller, grant.RecordID, grant.ReceiverAddr)
	}

	level := grant.Level
	if upd.Level != nil {
		level = *upd.Level
	}
	expiresAt := grant.ExpiresAt
	if upd.ExpiresAt != nil {
		expiresAt = *upd.ExpiresAt
	}
	return uc.Grant(ctx, caller, GrantInput{
		RecordID:  grant.RecordID,
		Receiver:  grant.ReceiverAddr,
		Level:     level,
		ExpiresAt: expiresAt,
	})
}

// ListOwned returns the caller's shared-by-me view with derived statuses.
func (uc *AccessUsecase) ListOwned(ctx context.Context, caller string) ([]domain.GrantView, error) {
	ctx, span := tracer.Start(ctx, "Access.Usecase.ListOwned")
	defer span.End()

	caller = mediflow.NormalizeAddress(caller)
	if caller == "" {
		return nil, domain.ErrUnauthorized
	}

	if cached, ok := uc.cache.SharedBy(caller); ok {
		return annotate(stripViews(cached)), nil
	}

	grants, err := uc.grants.ListByGranter(ctx, caller)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	views := annotate(grants)
	uc.cache.ReplaceSharedBy(caller, views)
	return views, nil
}

// ListReceived returns the caller's shared-with-me view. Revoked and expired
// grants stay listed with their status; they no longer authorize access.
func (uc *AccessUsecase) ListReceived(ctx context.Context, caller string) ([]domain.GrantView, error) {
	ctx, span := tracer.Start(ctx, "Access.Usecase.ListReceived")
	defer span.End()

	caller = mediflow.NormalizeAddress(caller)
	if caller == "" {
		return nil, domain.ErrUnauthorized
	}

	if cached, ok := uc.cache.SharedWith(caller); ok {
		return annotate(stripViews(cached)), nil
	}

	grants, err := uc.grants.ListByReceiver(ctx, caller)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	views := annotate(grants)
	uc.cache.ReplaceSharedWith(caller, views)
	return views, nil
}

func (uc *AccessUsecase) checkPrincipals(caller, receiver string) (string, string, error) {
	caller = mediflow.NormalizeAddress(caller)
	if caller == "" {
		return "", "", domain.ErrUnauthorized
	}
	receiver = mediflow.NormalizeAddress(receiver)
	if !mediflow.IsAddress(receiver) {
		return "", "", errors.Wrap(domain.ErrInvalidPrincipal, "malformed receiver address")
	}
	if receiver == caller {
		return "", "", errors.Wrap(domain.ErrInvalidPrincipal, "cannot grant access to yourself")
	}
	return caller, receiver, nil
}

func (uc *AccessUsecase) checkOwnership(ctx context.Context, caller, recordID string) error {
	record, err := uc.records.Get(ctx, recordID)
	if err != nil {
		return err
	}
	if !mediflow.SameAddress(record.OwnerAddr, caller) {
		return domain.ErrNotOwner
	}
	return nil
}

// appendAudit writes the entry to the ledger and mirrors it. Failures are
// non-fatal to the triggering operation and come back as warnings.
func (uc *AccessUsecase) appendAudit(ctx context.Context, caller, recordID string, action mediflow.AuditAction, metadata any, txHash string) []string {
	var warnings []string

	metadataJSON, err := mediflow.EncodeMetadata(action, metadata)
	if err != nil {
		return []string{"audit metadata rejected: " + err.Error()}
	}

	auditTx := txHash
	if receipt, err := uc.ledger.LogAudit(ctx, recordID, action, metadataJSON); err != nil {
		warnings = append(warnings, "audit ledger append failed: "+err.Error())
	} else {
		auditTx = receipt.TxHash
	}

	if _, err := uc.audits.Append(ctx, domain.AuditEntry{
		RecordID:  recordID,
		UserAddr:  caller,
		Action:    action,
		Metadata:  metadataJSON,
		TxHash:    auditTx,
		Timestamp: time.Now(),
	}); err != nil {
		warnings = append(warnings, "audit mirror append failed: "+err.Error())
	}

	return warnings
}

// refreshGrantCaches rebuilds both sides' presentation lists wholesale.
func (uc *AccessUsecase) refreshGrantCaches(ctx context.Context, granter, receiver string) []string {
	var warnings []string

	byGranter, err := uc.grants.ListByGranter(ctx, granter)
	if err != nil {
		warnings = append(warnings, "granter cache refresh failed: "+err.Error())
		uc.cache.Invalidate(granter)
	} else {
		uc.cache.ReplaceSharedBy(granter, annotate(byGranter))
	}

	byReceiver, err := uc.grants.ListByReceiver(ctx, receiver)
	if err != nil {
		warnings = append(warnings, "receiver cache refresh failed: "+err.Error())
		uc.cache.Invalidate(receiver)
	} else {
		uc.cache.ReplaceSharedWith(receiver, annotate(byReceiver))
	}

	return warnings
}

func (uc *AccessUsecase) publish(ctx context.Context, span trace.Span, event mediflow.Event) {
	if uc.signal == nil {
		return
	}
	if err := uc.signal.Publish(ctx, event); err != nil {
		span.RecordError(errors.Wrap(err, "event publish failed"))
	}
}

func annotate(grants []domain.AccessGrant) []domain.GrantView {
	now := time.Now()
	views := make([]domain.GrantView, 0, len(grants))
	for _, g := range grants {
		views = append(views, domain.GrantView{AccessGrant: g, Status: g.StatusAt(now)})
	}
	return views
}

func stripViews(views []domain.GrantView) []domain.AccessGrant {
	grants := make([]domain.AccessGrant, 0, len(views))
	for _, v := range views {
		grants = append(grants, v.AccessGrant)
	}
	return grants
}
