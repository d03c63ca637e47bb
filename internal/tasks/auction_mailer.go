package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/config"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/models"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/utils"
)

const (
	TemplateAuctionWon       = "auction_won"
	TemplateAuctionCancelled = "auction_cancelled"
)

// AuctionMailer turns auction outcomes into queued emails.
type AuctionMailer struct {
	cfg      *config.Config
	enqueuer TaskEnqueuer
}

func NewAuctionMailer(cfg *config.Config, enqueuer TaskEnqueuer) *AuctionMailer {
	return &AuctionMailer{cfg: cfg, enqueuer: enqueuer}
}

// NewEmailTask builds a TypeEmailDelivery task.
func NewEmailTask(payload EmailTaskPayload) (*asynq.Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal email payload: %w", err)
	}
	return asynq.NewTask(TypeEmailDelivery, raw), nil
}

func (m *AuctionMailer) enqueue(ctx context.Context, payload EmailTaskPayload) error {
	task, err := NewEmailTask(payload)
	if err != nil {
		return err
	}
	info, err := m.enqueuer.EnqueueContext(ctx, task, asynq.Queue("critical"), asynq.MaxRetry(5))
	if err != nil {
		return fmt.Errorf("failed to enqueue %s email: %w", payload.TemplateID, err)
	}
	log.Printf("Enqueued %s email to %s (task %s)", payload.TemplateID, payload.To, info.ID)
	return nil
}

func (m *AuctionMailer) price(amount float64) string {
	return utils.FormatPrice(m.cfg.CurrencyLocale, m.cfg.CurrencyCode, amount)
}

// AuctionWon emails the winner. Resolutions without a winner send nothing.
func (m *AuctionMailer) AuctionWon(ctx context.Context, res *models.AuctionResolution) error {
	if res == nil || res.Winner == nil || res.Winner.Email == "" {
		return nil
	}
	data := map[string]interface{}{
		"app_name":       m.cfg.AppName,
		"property_title": res.PropertyTitle,
		"winner_name":    res.Winner.Name,
		"price":          m.price(res.Auction.CurrentPrice),
		"auction_id":     res.Auction.ID,
	}
	if res.PurchaseID != nil {
		data["purchase_id"] = *res.PurchaseID
	}
	return m.enqueue(ctx, EmailTaskPayload{
		To:         res.Winner.Email,
		TemplateID: TemplateAuctionWon,
		Locale:     m.cfg.CurrencyLocale,
		Data:       data,
	})
}

// AuctionCancelled tells the leading bidder their bid no longer stands.
func (m *AuctionMailer) AuctionCancelled(ctx context.Context, auction *models.PropertyAuction, propertyTitle string, bidder *models.Winner) error {
	if auction == nil || bidder == nil || bidder.Email == "" {
		return nil
	}
	return m.enqueue(ctx, EmailTaskPayload{
		To:         bidder.Email,
		TemplateID: TemplateAuctionCancelled,
		Locale:     m.cfg.CurrencyLocale,
		Data: map[string]interface{}{
			"app_name":       m.cfg.AppName,
			"property_title": propertyTitle,
			"bidder_name":    bidder.Name,
			"price":          m.price(auction.CurrentPrice),
			"auction_id":     auction.ID,
		},
	})
}
