package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// PropertyType classifies a listing.
type PropertyType string

const (
	PropertyTypeHouse      PropertyType = "house"
	PropertyTypeApartment  PropertyType = "apartment"
	PropertyTypeLand       PropertyType = "land"
	PropertyTypeCommercial PropertyType = "commercial"
	PropertyTypeRental     PropertyType = "rental"
	PropertyTypeAuction    PropertyType = "auction"
)

// PropertyStatus is a plain state token; only auctions drive it as a state machine.
type PropertyStatus string

const (
	PropertyStatusAvailable PropertyStatus = "available"
	PropertyStatusPending   PropertyStatus = "pending"
	PropertyStatusSold      PropertyStatus = "sold"
	PropertyStatusRented    PropertyStatus = "rented"
	PropertyStatusWithdrawn PropertyStatus = "withdrawn"
)

// Property represents a listing managed by an agent.
type Property struct {
	Base
	Title        string         `gorm:"size:255;not null" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	Price        float64        `gorm:"not null" json:"price"`
	PropertyType PropertyType   `gorm:"column:property_type;size:20;not null;index" json:"property_type"`
	Status       PropertyStatus `gorm:"size:20;not null;default:'available';index" json:"status"`
	Address      string         `gorm:"size:255" json:"address"`
	City         string         `gorm:"size:100" json:"city"`
	PostalCode   string         `gorm:"size:20" json:"postal_code"`
	AgentID      *uint          `gorm:"index" json:"agent_id,omitempty"`
	Bedrooms     int            `json:"bedrooms"`
	Bathrooms    int            `json:"bathrooms"`
	LivingArea   float64        `json:"living_area"`
	Images       datatypes.JSON `gorm:"type:json" json:"-"`
}

// ImageList decodes the stored image references. Malformed or empty JSON yields an
// empty list rather than an error.
func (p *Property) ImageList() []string {
	return DecodeImages(p.Images)
}

// DecodeImages decodes a JSON array of image references, dropping anything that is
// not a non-empty string.
func DecodeImages(raw []byte) []string {
	images := []string{}
	if len(raw) == 0 {
		return images
	}
	var decoded []interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return images
	}
	for _, item := range decoded {
		if s, ok := item.(string); ok && s != "" {
			images = append(images, s)
		}
	}
	return images
}

// EncodeImages is the inverse of DecodeImages.
func EncodeImages(images []string) datatypes.JSON {
	if images == nil {
		images = []string{}
	}
	raw, _ := json.Marshal(images)
	return datatypes.JSON(raw)
}
