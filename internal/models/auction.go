package models

import "time"

// AuctionStatus is the lifecycle state of a property auction.
type AuctionStatus string

const (
	AuctionStatusActive    AuctionStatus = "active"
	AuctionStatusEnded     AuctionStatus = "ended"
	AuctionStatusCancelled AuctionStatus = "cancelled"
)

// IsTerminal reports whether no transition leaves this status.
func (s AuctionStatus) IsTerminal() bool {
	return s == AuctionStatusEnded || s == AuctionStatusCancelled
}

// PropertyAuction is the one auction a property of type "auction" may carry.
// CurrentPrice and HighestBidderID are the materialized projection of the
// highest AuctionBid row.
type PropertyAuction struct {
	Base
	PropertyID      uint          `gorm:"not null;uniqueIndex" json:"property_id"`
	StartingPrice   float64       `gorm:"not null" json:"starting_price"`
	CurrentPrice    float64       `gorm:"not null" json:"current_price"`
	Status          AuctionStatus `gorm:"size:20;not null;default:'active';index" json:"status"`
	StartDate       time.Time     `gorm:"not null" json:"start_date"`
	EndDate         *time.Time    `json:"end_date,omitempty"`
	HighestBidderID *uint         `json:"highest_bidder_id,omitempty"`
	Property        *Property     `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
}

// AuctionBid is an append-only bid record.
type AuctionBid struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AuctionID uint      `gorm:"not null;index" json:"auction_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	BidAmount float64   `gorm:"not null" json:"bid_amount"`
	CreatedAt time.Time `json:"created_at"`
}

// PurchaseStatus tracks a won auction through to completion of the sale.
type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusCancelled PurchaseStatus = "cancelled"
)

// UserPurchase is created once per auction that ends with a highest bidder.
type UserPurchase struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	PropertyID    uint           `gorm:"not null;index" json:"property_id"`
	AuctionID     uint           `gorm:"not null;uniqueIndex" json:"auction_id"`
	PurchasePrice float64        `gorm:"not null" json:"purchase_price"`
	Status        PurchaseStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
}

// AuctionSummary is a read model for admin listings. Counts and the highest bid are
// aggregated from auction_bids at read time.
type AuctionSummary struct {
	ID              uint          `json:"id"`
	PropertyID      uint          `json:"property_id"`
	PropertyTitle   string        `json:"property_title"`
	StartingPrice   float64       `json:"starting_price"`
	CurrentPrice    float64       `json:"current_price"`
	Status          AuctionStatus `json:"status"`
	StartDate       time.Time     `json:"start_date"`
	EndDate         *time.Time    `json:"end_date,omitempty"`
	HighestBidderID *uint         `json:"highest_bidder_id,omitempty"`
	BidCount        int64         `json:"bid_count"`
	BidderCount     int64         `json:"bidder_count"`
	HighestBid      *float64      `json:"highest_bid,omitempty"`
}

// AuctionResolution is what End reports back to the caller.
type AuctionResolution struct {
	Auction        PropertyAuction `json:"auction"`
	PropertyTitle  string          `json:"property_title"`
	PropertyImages []string        `json:"property_images"`
	Winner         *Winner         `json:"winner,omitempty"`
	PurchaseID     *uint           `json:"purchase_id,omitempty"`
}
