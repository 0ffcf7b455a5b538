package models

import "time"

type Asset struct {
	ID          string     `json:"id"`
	UserID      string     `json:"-"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	Attachments []string   `json:"attachments"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// AssetFields carries the client-settable fields of an asset.
// On update, nil means "leave the stored value untouched"; a nil
// Attachments slice likewise keeps the stored list.
type AssetFields struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Location    *string  `json:"location,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}
