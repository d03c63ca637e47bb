package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/db"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IAuctionService defines the interface for the auction lifecycle.
type IAuctionService interface {
	Setup(ctx context.Context, propertyID uint, startingPrice float64) (*models.PropertyAuction, error)
	End(ctx context.Context, auctionID uint) (*models.AuctionResolution, error)
	Extend(ctx context.Context, auctionID uint, hours int) (time.Time, error)
	Cancel(ctx context.Context, auctionID uint) error
	PlaceBid(ctx context.Context, auctionID, userID uint, amount float64) (*models.AuctionBid, error)
	GetAuction(ctx context.Context, auctionID uint) (*models.AuctionSummary, error)
	ListActiveAuctions(ctx context.Context) ([]models.AuctionSummary, error)
	ListRecentResolvedAuctions(ctx context.Context, limit int) ([]models.AuctionSummary, error)
	CloseExpired(ctx context.Context) (int, error)
}

// AuctionNotifier is told about resolved auctions once their transaction has committed.
type AuctionNotifier interface {
	AuctionWon(ctx context.Context, res *models.AuctionResolution) error
	AuctionCancelled(ctx context.Context, auction *models.PropertyAuction, propertyTitle string, bidder *models.Winner) error
}

const (
	DefaultRecentAuctionsLimit = 10
	MaxRecentAuctionsLimit     = 100
)

// forUpdate takes an exclusive row lock for the rest of the transaction.
var forUpdate = clause.Locking{Strength: "UPDATE"}

type setupInput struct {
	PropertyID    uint    `validate:"required"`
	StartingPrice float64 `validate:"gt=0"`
}

type bidInput struct {
	AuctionID uint    `validate:"required"`
	UserID    uint    `validate:"required"`
	Amount    float64 `validate:"gt=0"`
}

// auctionService implements IAuctionService.
type auctionService struct {
	db       *gorm.DB
	notifier AuctionNotifier
	now      func() time.Time
}

// NewAuctionService creates a new AuctionService. notifier may be nil.
func NewAuctionService(gdb *gorm.DB, notifier AuctionNotifier) IAuctionService {
	return &auctionService{
		db:       gdb,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// lockAuction loads the auction row with FOR UPDATE.
func lockAuction(tx *gorm.DB, auctionID uint) (*models.PropertyAuction, error) {
	var auction models.PropertyAuction
	if err := tx.Clauses(forUpdate).First(&auction, auctionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("auction %d not found", auctionID)
		}
		return nil, fmt.Errorf("error locking auction %d: %w", auctionID, err)
	}
	return &auction, nil
}

// Setup opens the single auction a property may ever carry.
func (s *auctionService) Setup(ctx context.Context, propertyID uint, startingPrice float64) (*models.PropertyAuction, error) {
	if err := checkInput(setupInput{PropertyID: propertyID, StartingPrice: startingPrice}); err != nil {
		return nil, err
	}

	var auction *models.PropertyAuction
	operation := func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var property models.Property
			if err := tx.Clauses(forUpdate).First(&property, propertyID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFoundError("property %d not found", propertyID)
				}
				return fmt.Errorf("error locking property %d: %w", propertyID, err)
			}
			if property.PropertyType != models.PropertyTypeAuction {
				return validationError("property %d is not listed for auction (type %s)", propertyID, property.PropertyType)
			}
			if property.Status != models.PropertyStatusAvailable {
				return validationError("property %d is not available (status %s)", propertyID, property.Status)
			}

			// Any previous auction blocks a new one, whatever its status.
			var existing int64
			if err := tx.Model(&models.PropertyAuction{}).Where("property_id = ?", propertyID).Count(&existing).Error; err != nil {
				return fmt.Errorf("error checking auctions for property %d: %w", propertyID, err)
			}
			if existing > 0 {
				return validationError("an auction already exists for property %d", propertyID)
			}

			now := s.now()
			a := &models.PropertyAuction{
				PropertyID:    propertyID,
				StartingPrice: startingPrice,
				CurrentPrice:  startingPrice,
				Status:        models.AuctionStatusActive,
				StartDate:     now,
			}
			if err := tx.Create(a).Error; err != nil {
				if db.IsDuplicateKeyError(err) {
					return validationError("an auction already exists for property %d", propertyID)
				}
				return fmt.Errorf("error inserting auction: %w", err)
			}
			auction = a
			return nil
		})
	}

	if err := db.Try(operation); err != nil {
		return nil, persistenceError(err, "failed to set up auction for property %d", propertyID)
	}

	log.Printf("AuctionService: auction %d opened for property %d at %.2f", auction.ID, propertyID, startingPrice)
	return auction, nil
}

// End closes an active auction, recording the sale to the highest bidder if any.
func (s *auctionService) End(ctx context.Context, auctionID uint) (*models.AuctionResolution, error) {
	var res *models.AuctionResolution
	operation := func() error {
		res = nil
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			r, err := s.endLocked(tx, auctionID)
			if err != nil {
				return err
			}
			res = r
			return nil
		})
	}

	if err := db.Try(operation); err != nil {
		return nil, persistenceError(err, "failed to end auction %d", auctionID)
	}

	if res.Winner != nil {
		log.Printf("AuctionService: auction %d ended, won by user %d at %.2f (purchase %d)",
			auctionID, res.Winner.ID, res.Auction.CurrentPrice, *res.PurchaseID)
		if s.notifier != nil {
			if err := s.notifier.AuctionWon(ctx, res); err != nil {
				log.Printf("AuctionService: failed to queue winner notification for auction %d: %v", auctionID, err)
			}
		}
	} else {
		log.Printf("AuctionService: auction %d ended without bids", auctionID)
	}
	return res, nil
}

func (s *auctionService) endLocked(tx *gorm.DB, auctionID uint) (*models.AuctionResolution, error) {
	auction, err := lockAuction(tx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction.Status != models.AuctionStatusActive {
		return nil, invalidStateError("auction %d is already %s", auctionID, auction.Status)
	}

	var property models.Property
	if err := tx.Clauses(forUpdate).First(&property, auction.PropertyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("property %d of auction %d not found", auction.PropertyID, auctionID)
		}
		return nil, fmt.Errorf("error locking property %d: %w", auction.PropertyID, err)
	}

	res := &models.AuctionResolution{
		PropertyTitle:  property.Title,
		PropertyImages: property.ImageList(),
	}
	now := s.now()

	if auction.HighestBidderID != nil {
		var winner models.User
		if err := tx.First(&winner, *auction.HighestBidderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, notFoundError("winning bidder %d of auction %d not found", *auction.HighestBidderID, auctionID)
			}
			return nil, fmt.Errorf("error loading winning bidder: %w", err)
		}

		purchase := models.UserPurchase{
			UserID:        winner.ID,
			PropertyID:    property.ID,
			AuctionID:     auction.ID,
			PurchasePrice: auction.CurrentPrice,
			Status:        models.PurchaseStatusPending,
			CreatedAt:     now,
		}
		if err := tx.Create(&purchase).Error; err != nil {
			return nil, fmt.Errorf("error recording purchase: %w", err)
		}
		if err := tx.Model(&models.Property{}).Where("id = ?", property.ID).
			Update("status", models.PropertyStatusPending).Error; err != nil {
			return nil, fmt.Errorf("error updating property %d status: %w", property.ID, err)
		}

		res.Winner = models.WinnerFromUser(winner)
		res.PurchaseID = &purchase.ID
	}

	if err := tx.Model(&models.PropertyAuction{}).Where("id = ?", auction.ID).Updates(map[string]interface{}{
		"status":   models.AuctionStatusEnded,
		"end_date": now,
	}).Error; err != nil {
		return nil, fmt.Errorf("error closing auction %d: %w", auction.ID, err)
	}
	auction.Status = models.AuctionStatusEnded
	auction.EndDate = &now
	res.Auction = *auction

	return res, nil
}

// Extend pushes the deadline back by hours, starting from now when none is set.
// Repeated calls compound.
func (s *auctionService) Extend(ctx context.Context, auctionID uint, hours int) (time.Time, error) {
	if hours <= 0 {
		return time.Time{}, validationError("extension must be a positive number of hours, got %d", hours)
	}

	var newEnd time.Time
	operation := func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			auction, err := lockAuction(tx, auctionID)
			if err != nil {
				return err
			}
			if auction.Status != models.AuctionStatusActive {
				return invalidStateError("auction %d is %s and cannot be extended", auctionID, auction.Status)
			}

			base := s.now()
			if auction.EndDate != nil {
				base = *auction.EndDate
			}
			newEnd = base.Add(time.Duration(hours) * time.Hour)

			if err := tx.Model(&models.PropertyAuction{}).Where("id = ?", auctionID).
				Update("end_date", newEnd).Error; err != nil {
				return fmt.Errorf("error extending auction %d: %w", auctionID, err)
			}
			return nil
		})
	}

	if err := db.Try(operation); err != nil {
		return time.Time{}, persistenceError(err, "failed to extend auction %d", auctionID)
	}

	log.Printf("AuctionService: auction %d extended by %dh to %s", auctionID, hours, newEnd.Format(time.RFC3339))
	return newEnd, nil
}

// Cancel stops an active auction and puts the property back on the market.
// The property is reset to available whatever its current status.
func (s *auctionService) Cancel(ctx context.Context, auctionID uint) error {
	var (
		cancelled     *models.PropertyAuction
		propertyTitle string
		bidder        *models.Winner
	)
	operation := func() error {
		cancelled, bidder, propertyTitle = nil, nil, ""
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			auction, err := lockAuction(tx, auctionID)
			if err != nil {
				return err
			}
			if auction.Status != models.AuctionStatusActive {
				return invalidStateError("auction %d is already %s", auctionID, auction.Status)
			}

			now := s.now()
			if err := tx.Model(&models.PropertyAuction{}).Where("id = ?", auctionID).Updates(map[string]interface{}{
				"status":   models.AuctionStatusCancelled,
				"end_date": now,
			}).Error; err != nil {
				return fmt.Errorf("error cancelling auction %d: %w", auctionID, err)
			}
			if err := tx.Model(&models.Property{}).Where("id = ?", auction.PropertyID).
				Update("status", models.PropertyStatusAvailable).Error; err != nil {
				return fmt.Errorf("error resetting property %d: %w", auction.PropertyID, err)
			}

			var property models.Property
			if err := tx.Select("id", "title").First(&property, auction.PropertyID).Error; err == nil {
				propertyTitle = property.Title
			}
			if auction.HighestBidderID != nil {
				var u models.User
				if err := tx.First(&u, *auction.HighestBidderID).Error; err == nil {
					bidder = models.WinnerFromUser(u)
				}
			}

			auction.Status = models.AuctionStatusCancelled
			auction.EndDate = &now
			cancelled = auction
			return nil
		})
	}

	if err := db.Try(operation); err != nil {
		return persistenceError(err, "failed to cancel auction %d", auctionID)
	}

	log.Printf("AuctionService: auction %d cancelled, property %d back to available", auctionID, cancelled.PropertyID)
	if bidder != nil && s.notifier != nil {
		if err := s.notifier.AuctionCancelled(ctx, cancelled, propertyTitle, bidder); err != nil {
			log.Printf("AuctionService: failed to queue cancellation notice for auction %d: %v", auctionID, err)
		}
	}
	return nil
}

// PlaceBid records a bid and moves the auction's price and leader with it in the
// same transaction, so current_price always equals the highest bid.
func (s *auctionService) PlaceBid(ctx context.Context, auctionID, userID uint, amount float64) (*models.AuctionBid, error) {
	if err := checkInput(bidInput{AuctionID: auctionID, UserID: userID, Amount: amount}); err != nil {
		return nil, err
	}

	var bid *models.AuctionBid
	operation := func() error {
		bid = nil
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			auction, err := lockAuction(tx, auctionID)
			if err != nil {
				return err
			}
			now := s.now()
			if auction.Status != models.AuctionStatusActive {
				return invalidStateError("auction %d is %s and no longer accepts bids", auctionID, auction.Status)
			}
			if auction.EndDate != nil && !now.Before(*auction.EndDate) {
				return invalidStateError("auction %d closed at %s", auctionID, auction.EndDate.Format(time.RFC3339))
			}
			if amount <= auction.CurrentPrice {
				return validationError("bid of %.2f must exceed the current price of %.2f", amount, auction.CurrentPrice)
			}

			b := &models.AuctionBid{
				AuctionID: auctionID,
				UserID:    userID,
				BidAmount: amount,
				CreatedAt: now,
			}
			if err := tx.Create(b).Error; err != nil {
				return fmt.Errorf("error inserting bid: %w", err)
			}
			if err := tx.Model(&models.PropertyAuction{}).Where("id = ?", auctionID).Updates(map[string]interface{}{
				"current_price":     amount,
				"highest_bidder_id": userID,
			}).Error; err != nil {
				return fmt.Errorf("error updating auction %d leader: %w", auctionID, err)
			}
			bid = b
			return nil
		})
	}

	if err := db.Try(operation); err != nil {
		return nil, persistenceError(err, "failed to place bid on auction %d", auctionID)
	}
	return bid, nil
}

// summaryQuery joins auctions with their property and aggregates bids at read time.
func (s *auctionService) summaryQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("property_auctions AS pa").
		Select(`pa.id, pa.property_id, p.title AS property_title, pa.starting_price, pa.current_price,
			pa.status, pa.start_date, pa.end_date, pa.highest_bidder_id,
			COUNT(ab.id) AS bid_count, COUNT(DISTINCT ab.user_id) AS bidder_count, MAX(ab.bid_amount) AS highest_bid`).
		Joins("JOIN properties p ON p.id = pa.property_id").
		Joins("LEFT JOIN auction_bids ab ON ab.auction_id = pa.id").
		Group(`pa.id, pa.property_id, p.title, pa.starting_price, pa.current_price,
			pa.status, pa.start_date, pa.end_date, pa.highest_bidder_id`)
}

// GetAuction returns one auction with its bid aggregates.
func (s *auctionService) GetAuction(ctx context.Context, auctionID uint) (*models.AuctionSummary, error) {
	var rows []models.AuctionSummary
	if err := s.summaryQuery(ctx).Where("pa.id = ?", auctionID).Scan(&rows).Error; err != nil {
		return nil, persistenceError(err, "failed to load auction %d", auctionID)
	}
	if len(rows) == 0 {
		return nil, notFoundError("auction %d not found", auctionID)
	}
	return &rows[0], nil
}

// ListActiveAuctions returns every active auction, most recently started first.
func (s *auctionService) ListActiveAuctions(ctx context.Context) ([]models.AuctionSummary, error) {
	rows := []models.AuctionSummary{}
	err := s.summaryQuery(ctx).
		Where("pa.status = ?", models.AuctionStatusActive).
		Order("pa.start_date DESC").Order("pa.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, persistenceError(err, "failed to list active auctions")
	}
	return rows, nil
}

// ListRecentResolvedAuctions returns ended and cancelled auctions, newest first.
// limit is clamped to [1, MaxRecentAuctionsLimit]; zero or less means the default.
func (s *auctionService) ListRecentResolvedAuctions(ctx context.Context, limit int) ([]models.AuctionSummary, error) {
	if limit <= 0 {
		limit = DefaultRecentAuctionsLimit
	}
	if limit > MaxRecentAuctionsLimit {
		limit = MaxRecentAuctionsLimit
	}

	rows := []models.AuctionSummary{}
	err := s.summaryQuery(ctx).
		Where("pa.status IN ?", []models.AuctionStatus{models.AuctionStatusEnded, models.AuctionStatusCancelled}).
		Order("pa.end_date DESC").Order("pa.id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, persistenceError(err, "failed to list resolved auctions")
	}
	return rows, nil
}

// CloseExpired ends every active auction whose deadline has passed. Failures on one
// auction are logged and do not stop the others.
func (s *auctionService) CloseExpired(ctx context.Context) (int, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.PropertyAuction{}).
		Where("status = ? AND end_date IS NOT NULL AND end_date <= ?", models.AuctionStatusActive, s.now()).
		Order("end_date ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, persistenceError(err, "failed to find expired auctions")
	}

	closed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return closed, ctx.Err()
		}
		if _, err := s.End(ctx, id); err != nil {
			log.Printf("AuctionService: failed to close expired auction %d: %v", id, err)
			continue
		}
		closed++
	}
	if len(ids) > 0 {
		log.Printf("AuctionService: closed %d of %d expired auctions", closed, len(ids))
	}
	return closed, nil
}
