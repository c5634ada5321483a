package database

import (
	"time"
)

// CachedRecord is one catalog record's JSON document as last fetched
// from the API.
type CachedRecord struct {
	OLID      string    `gorm:"primaryKey" json:"olid"`
	Kind      string    `gorm:"index;not null" json:"kind"`
	Data      []byte    `gorm:"type:blob" json:"data"`
	FetchedAt time.Time `gorm:"index" json:"fetched_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
