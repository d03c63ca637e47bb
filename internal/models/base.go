package models

import "time"

// Base carries the identifier and bookkeeping timestamps shared by most tables.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// All returns every persisted model, parents first, for schema migration.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Agent{},
		&Client{},
		&Property{},
		&PropertyAuction{},
		&AuctionBid{},
		&UserPurchase{},
		&Appointment{},
		&AvailabilitySlot{},
		&EmailTemplate{},
	}
}
