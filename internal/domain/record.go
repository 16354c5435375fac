package domain

import (
	"time"

	mediflow "github.com/singhaditya73/MediFlow"
)

// HealthRecord is the mirror row for a registered record. The owner is
// immutable after registration; the ledger holds the authoritative copy.
type HealthRecord struct {
	ID           string    `json:"id"`
	OwnerAddr    string    `json:"ownerAddress"`
	ContentHash  string    `json:"contentHash"`
	ResourceType string    `json:"resourceType,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RecordResult is the outcome of a record registration.
type RecordResult struct {
	Record   HealthRecord                `json:"record"`
	Receipt  mediflow.TransactionReceipt `json:"receipt"`
	Pending  bool                        `json:"pending,omitempty"`
	Warnings []string                    `json:"warnings,omitempty"`
}
