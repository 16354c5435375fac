package models

import (
	"time"
)

// HealthRecord mirrors a ledger-registered record. The ID is assigned by the
// application at registration time, never generated.
type HealthRecord struct {
	ID           string    `json:"id" gorm:"primaryKey;type:text"`
	OwnerAddr    string    `json:"ownerAddress" gorm:"type:char(42);index;not null"`
	ContentHash  string    `json:"contentHash" gorm:"type:text;not null"`
	ResourceType string    `json:"resourceType" gorm:"type:text"`
	CDate        time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// AccessControl mirrors one on-ledger grant. At most one row exists per
// (record, receiver) pair; re-grants update in place.
type AccessControl struct {
	ID           string       `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	RecordID     string       `json:"recordId" gorm:"type:text;uniqueIndex:idx_record_receiver;not null"`
	Record       HealthRecord `json:"-" gorm:"foreignKey:RecordID;references:ID;constraint:OnDelete:CASCADE;"`
	GranterAddr  string       `json:"granterAddress" gorm:"type:char(42);index;not null"`
	ReceiverAddr string       `json:"receiverAddress" gorm:"type:char(42);uniqueIndex:idx_record_receiver;index;not null"`
	Level        uint8        `json:"accessLevel" gorm:"type:smallint;not null"`
	IsActive     bool         `json:"isActive" gorm:"type:boolean;not null;default:true"`
	ExpiresAt    int64        `json:"expiresAt" gorm:"type:bigint;not null;default:0"`
	CDate        time.Time    `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// AuditLog mirrors one audit entry. TxHash is null for mirror-only entries
// such as views; PreviousHash is only known when the entry was re-read from
// the ledger.
type AuditLog struct {
	ID           string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	RecordID     string    `json:"recordId" gorm:"type:text;index;not null"`
	UserAddr     string    `json:"userAddress" gorm:"type:char(42);index;not null"`
	Action       string    `json:"action" gorm:"type:text;index;not null"`
	Metadata     string    `json:"metadata" gorm:"type:jsonb;not null;default:'{}'"`
	TxHash       *string   `json:"transactionHash" gorm:"type:char(66)"`
	PreviousHash string    `json:"previousHash" gorm:"type:char(66)"`
	CDate        time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}
