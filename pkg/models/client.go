package models

import "time"

// Client is the customer behind one or more opportunities.
// Reused across opportunities: intake matches by (name, company) before creating.
type Client struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Company   string    `json:"company,omitempty" db:"company"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
