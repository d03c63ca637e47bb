package models

// EmailTemplate defines the structure for email templates stored in the DB.
type EmailTemplate struct {
	Base
	TemplateID string `gorm:"size:100;not null;uniqueIndex:idx_template_locale" json:"template_id"` // e.g., "auction_won"
	Locale     string `gorm:"size:10;not null;uniqueIndex:idx_template_locale" json:"locale"`      // e.g., "en-US", "fr-FR"
	Subject    string `gorm:"size:255;not null" json:"subject"`
	Body       string `gorm:"type:text;not null" json:"body"`
}
