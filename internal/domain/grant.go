package domain

import (
	"time"

	mediflow "github.com/singhaditya73/MediFlow"
)

// AccessGrant authorizes one recipient to access one record. At most one
// grant exists per (record, receiver) pair; re-granting updates it in place.
type AccessGrant struct {
	ID           string              `json:"id"`
	RecordID     string              `json:"recordId"`
	GranterAddr  string              `json:"granterAddress"`
	ReceiverAddr string              `json:"receiverAddress"`
	Level        mediflow.AccessLevel `json:"accessLevel"`
	IsActive     bool                `json:"isActive"`
	// ExpiresAt is unix seconds; 0 means unbounded, never the epoch instant.
	ExpiresAt int64     `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// GrantStatus is the read-time state of a grant. Expired is derived from the
// clock, never stored.
type GrantStatus string

const (
	GrantStatusActive    GrantStatus = "active"
	GrantStatusRevoked   GrantStatus = "revoked"
	GrantStatusExpired   GrantStatus = "expired"
	GrantStatusUnbounded GrantStatus = "active_unbounded"
)

// StatusAt derives the grant's state at the given instant.
func (g AccessGrant) StatusAt(now time.Time) GrantStatus {
	if !g.IsActive {
		return GrantStatusRevoked
	}
	if g.ExpiresAt == 0 {
		return GrantStatusUnbounded
	}
	if now.Unix() >= g.ExpiresAt {
		return GrantStatusExpired
	}
	return GrantStatusActive
}

// Usable reports whether the grant currently authorizes access.
func (g AccessGrant) Usable(now time.Time) bool {
	s := g.StatusAt(now)
	return s == GrantStatusActive || s == GrantStatusUnbounded
}

// GrantView is a grant annotated with its derived status for presentation.
type GrantView struct {
	AccessGrant
	Status GrantStatus `json:"status"`
}

// GrantResult is the outcome of a grant/revoke operation. When Pending is
// set the transaction is outstanding: the receipt carries only the tx hash
// and no mirror state has changed. Warnings report post-confirmation mirror
// or audit failures that did not affect the ledger state.
type GrantResult struct {
	Grant    AccessGrant                 `json:"grant"`
	Receipt  mediflow.TransactionReceipt `json:"receipt"`
	Pending  bool                        `json:"pending,omitempty"`
	Warnings []string                    `json:"warnings,omitempty"`
}

// LedgerAccess is the on-ledger view of a (record, principal) grant.
type LedgerAccess struct {
	Granter   string               `json:"granter"`
	Level     mediflow.AccessLevel `json:"level"`
	ExpiresAt int64                `json:"expiresAt"`
	IsActive  bool                 `json:"isActive"`
	GrantedAt int64                `json:"grantedAt"`
}
