package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/models"
)

// Default email templates used as fallback when not found in database
var defaultEmailTemplates = map[string]models.EmailTemplate{
	"auction_won": {
		TemplateID: "auction_won",
		Locale:     "fr-FR",
		Subject:    "{{.app_name}}: you won the auction for {{.property_title}}",
		Body: "Hello {{.winner_name}},\n\n" +
			"Your bid of {{.price}} won the auction #{{.auction_id}} for \"{{.property_title}}\".\n" +
			"Your purchase reference is {{.purchase_id}}. An agent will contact you shortly to complete the sale.\n\n" +
			"{{.app_name}}",
	},
	"auction_cancelled": {
		TemplateID: "auction_cancelled",
		Locale:     "fr-FR",
		Subject:    "{{.app_name}}: auction for {{.property_title}} cancelled",
		Body: "Hello {{.bidder_name}},\n\n" +
			"The auction #{{.auction_id}} for \"{{.property_title}}\" has been cancelled. " +
			"Your leading bid of {{.price}} is released.\n\n" +
			"{{.app_name}}",
	},
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
	SaveTemplate(ctx context.Context, template *models.EmailTemplate) error
	DeleteTemplate(ctx context.Context, templateID, locale string) error
}

// EmailTemplateService handles operations related to email templates
type EmailTemplateService struct {
	db *gorm.DB
}

// NewEmailTemplateService creates a new instance of EmailTemplateService
func NewEmailTemplateService(gdb *gorm.DB) *EmailTemplateService {
	return &EmailTemplateService{
		db: gdb,
	}
}

// GetTemplate retrieves an email template by ID and locale
func (s *EmailTemplateService) GetTemplate(ctx context.Context, templateID string, locale string) (*models.EmailTemplate, error) {
	var template models.EmailTemplate
	err := s.db.WithContext(ctx).
		Where("template_id = ? AND locale = ?", templateID, locale).
		First(&template).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// If template not found in DB, try to get from defaults
			if defaultTemplate, ok := defaultEmailTemplates[templateID]; ok {
				return &defaultTemplate, nil
			}
			return nil, fmt.Errorf("template not found: %s (locale: %s)", templateID, locale)
		}
		return nil, fmt.Errorf("error retrieving template: %w", err)
	}

	return &template, nil
}

// SaveTemplate saves an email template to the database
func (s *EmailTemplateService) SaveTemplate(ctx context.Context, template *models.EmailTemplate) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "template_id"}, {Name: "locale"}},
		DoUpdates: clause.AssignmentColumns([]string{"subject", "body", "updated_at"}),
	}).Create(template).Error
	if err != nil {
		return fmt.Errorf("error saving template: %w", err)
	}

	return nil
}

// DeleteTemplate deletes an email template from the database
func (s *EmailTemplateService) DeleteTemplate(ctx context.Context, templateID string, locale string) error {
	err := s.db.WithContext(ctx).
		Where("template_id = ? AND locale = ?", templateID, locale).
		Delete(&models.EmailTemplate{}).Error
	if err != nil {
		return fmt.Errorf("error deleting template: %w", err)
	}

	return nil
}
