package models

import "time"

// Project owns a set of tags and fixes the vendor dialect used for
// live sync. The stored vendor is authoritative: sync requests naming
// a different vendor are formatted for this one.
// Maps to: projects table
type Project struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	Name      string    `db:"name" json:"name"`
	Vendor    Vendor    `db:"vendor" json:"vendor"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
