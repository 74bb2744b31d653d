package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited financial action.
type AuditAction string

const (
	AuditActionMint         AuditAction = "MINT"
	AuditActionMelt         AuditAction = "MELT"
	AuditActionSend         AuditAction = "SEND"
	AuditActionReceive      AuditAction = "RECEIVE"
	AuditActionReconcile    AuditAction = "RECONCILE"
	AuditActionBilling      AuditAction = "BILLING"
	AuditActionRefundFailed AuditAction = "REFUND_FAILED"
	AuditActionBackupError  AuditAction = "BACKUP_ERROR"
	AuditActionLogin        AuditAction = "LOGIN"
	AuditActionLogout       AuditAction = "LOGOUT"
	AuditActionRejected     AuditAction = "REQUEST_REJECTED"
)

// AuditLog records a single audited action. Financial errors always produce
// one so none is swallowed silently.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	Owner        string      `json:"owner"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time   `json:"created_at"`
}
