package domain

import (
	"time"

	mediflow "github.com/singhaditya73/MediFlow"
)

// AuditEntry is one immutable action record. PreviousHash links to the entry
// immediately before it in the ledger's global append order; this core
// exposes the chain link but does not verify it.
type AuditEntry struct {
	ID           string               `json:"id,omitempty"`
	RecordID     string               `json:"recordId"`
	UserAddr     string               `json:"userAddress"`
	Action       mediflow.AuditAction `json:"action"`
	Metadata     string               `json:"metadata"`
	TxHash       string               `json:"transactionHash,omitempty"`
	PreviousHash string               `json:"previousHash,omitempty"`
	Timestamp    time.Time            `json:"timestamp"`
}

// AuditFilter narrows the mirror's audit-log listing.
type AuditFilter struct {
	UserAddr string
	RecordID string
	Action   mediflow.AuditAction
	Page     int
	Limit    int
}

// AuditPage is one page of mirrored audit entries.
type AuditPage struct {
	Entries    []AuditEntry `json:"logs"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	Total      int64        `json:"total"`
	TotalPages int64        `json:"totalPages"`
}
