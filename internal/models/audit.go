package models

import "time"

// AuditEntry records one asset mutation. Action is create|update|delete.
type AuditEntry struct {
	ID        int       `json:"id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	AssetID   string    `json:"asset_id"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
