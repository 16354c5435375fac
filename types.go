package mediflow

import (
	"encoding/json"
	"fmt"
	"time"
)

// AccessLevel is the level encoded into the ledger contract (uint8).
type AccessLevel uint8

const (
	AccessLevelRead  AccessLevel = 1
	AccessLevelWrite AccessLevel = 2
)

func ParseAccessLevel(s string) (AccessLevel, error) {
	switch s {
	case "read", "Read":
		return AccessLevelRead, nil
	case "write", "Write":
		return AccessLevelWrite, nil
	}
	return 0, fmt.Errorf("unknown access level %q", s)
}

func (l AccessLevel) String() string {
	switch l {
	case AccessLevelRead:
		return "read"
	case AccessLevelWrite:
		return "write"
	}
	return fmt.Sprintf("unknown(%d)", uint8(l))
}

func (l AccessLevel) Valid() bool {
	return l == AccessLevelRead || l == AccessLevelWrite
}

// AuditAction tags an audit entry. The set matches the ledger audit contract.
type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionGrant  AuditAction = "grant_access"
	ActionRevoke AuditAction = "revoke_access"
	ActionView   AuditAction = "view"
	ActionUpdate AuditAction = "update"
	ActionDelete AuditAction = "delete"
)

func (a AuditAction) Valid() bool {
	switch a {
	case ActionCreate, ActionGrant, ActionRevoke, ActionView, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// TransactionReceipt is the normalized result of a ledger-mutating call.
// Attached to writes as provenance, never stored as a first-class entity.
type TransactionReceipt struct {
	TxHash      string    `json:"transactionHash"`
	GasUsed     uint64    `json:"gasUsed"`
	BlockNumber uint64    `json:"blockNumber"`
	BlockHash   string    `json:"blockHash"`
	BlockTime   time.Time `json:"blockTime"`
}

// Audit metadata is a tagged union: one struct per action kind, validated at
// the boundary before it is written anywhere. All fields are concrete (no
// map[string]any) so json.Marshal output is deterministic.

type CreateMetadata struct {
	ContentHash string `json:"contentHash"`
	Timestamp   int64  `json:"timestamp"`
}

type GrantMetadata struct {
	Receiver  string `json:"receiver"`
	Level     string `json:"level"`
	ExpiresAt int64  `json:"expiresAt"`
	Timestamp int64  `json:"timestamp"`
}

type RevokeMetadata struct {
	Receiver  string `json:"receiver"`
	Timestamp int64  `json:"timestamp"`
}

type ViewMetadata struct {
	Viewer    string `json:"viewer"`
	Timestamp int64  `json:"timestamp"`
}

type UpdateMetadata struct {
	Changes   string `json:"changes"`
	Timestamp int64  `json:"timestamp"`
}

type DeleteMetadata struct {
	Timestamp int64 `json:"timestamp"`
}

// EncodeMetadata checks that the metadata kind matches the action and returns
// its canonical JSON form.
func EncodeMetadata(action AuditAction, metadata any) (string, error) {
	ok := false
	switch metadata.(type) {
	case CreateMetadata:
		ok = action == ActionCreate
	case GrantMetadata:
		ok = action == ActionGrant
	case RevokeMetadata:
		ok = action == ActionRevoke
	case ViewMetadata:
		ok = action == ActionView
	case UpdateMetadata:
		ok = action == ActionUpdate
	case DeleteMetadata:
		ok = action == ActionDelete
	default:
		return "", fmt.Errorf("unsupported metadata type %T", metadata)
	}
	if !ok {
		return "", fmt.Errorf("metadata type %T does not match action %q", metadata, action)
	}

	b, err := json.Marshal(metadata)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Event is fanned out over the signal channel after every confirmed mutation.
type Event struct {
	RecordID  string      `json:"recordId"`
	Action    AuditAction `json:"action"`
	Actor     string      `json:"actor"`
	TxHash    string      `json:"transactionHash,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
