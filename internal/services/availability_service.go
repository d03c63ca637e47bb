package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/models"
)

// BookingKey identifies the busy row an appointment owns in the ledger.
type BookingKey struct {
	AgentID uint
	Date    datatypes.Date
	Start   datatypes.Time
	UserID  uint
}

// String renders the key in a stable form, used for set membership.
func (k BookingKey) String() string {
	return fmt.Sprintf("%d|%s|%d|%d", k.AgentID, time.Time(k.Date).Format(time.DateOnly),
		time.Duration(k.Start)/time.Second, k.UserID)
}

// bookingKeyOf projects a stored slot onto its booking key. ok is false for rows
// that are not user bookings.
func bookingKeyOf(slot models.AvailabilitySlot) (BookingKey, bool) {
	if slot.SpecificDate == nil || slot.UserID == nil {
		return BookingKey{}, false
	}
	d := time.Time(*slot.SpecificDate).UTC()
	return BookingKey{
		AgentID: slot.AgentID,
		Date:    datatypes.Date(time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)),
		Start:   datatypes.Time(time.Duration(slot.StartTime).Truncate(time.Second)),
		UserID:  *slot.UserID,
	}, true
}

// IAvailabilityService defines data access for the agent availability ledger.
type IAvailabilityService interface {
	FindBooking(ctx context.Context, key BookingKey) (*models.AvailabilitySlot, error)
	InsertBooking(ctx context.Context, slot *models.AvailabilitySlot) (bool, error)
	DeleteBooking(ctx context.Context, key BookingKey) (int64, error)
	ListBusyBookings(ctx context.Context) ([]models.AvailabilitySlot, error)
	DeleteSlots(ctx context.Context, ids []uint) (int64, error)
	ListAgentSlots(ctx context.Context, agentID uint, date time.Time) ([]models.AvailabilitySlot, error)
}

type availabilityService struct {
	db *gorm.DB
}

// NewAvailabilityService creates a new AvailabilityService.
func NewAvailabilityService(gdb *gorm.DB) IAvailabilityService {
	return &availabilityService{db: gdb}
}

func (s *availabilityService) matchBooking(ctx context.Context, key BookingKey) *gorm.DB {
	return s.db.WithContext(ctx).
		Where("agent_id = ? AND specific_date = ? AND start_time = ? AND user_id = ?",
			key.AgentID, key.Date, key.Start, key.UserID)
}

// FindBooking returns the busy row for key, or nil when there is none.
func (s *availabilityService) FindBooking(ctx context.Context, key BookingKey) (*models.AvailabilitySlot, error) {
	var slot models.AvailabilitySlot
	err := s.matchBooking(ctx, key).First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error finding booking %s: %w", key, err)
	}
	return &slot, nil
}

// InsertBooking adds a booking row unless one with the same key exists. It reports
// whether a row was written; concurrent inserts of the same key leave exactly one.
func (s *availabilityService) InsertBooking(ctx context.Context, slot *models.AvailabilitySlot) (bool, error) {
	if slot.SpecificDate == nil || slot.UserID == nil {
		return false, fmt.Errorf("booking rows need a date and a user")
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(slot)
	if res.Error != nil {
		return false, fmt.Errorf("error inserting booking for agent %d: %w", slot.AgentID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteBooking removes the busy row for key. Deleting nothing is not an error.
func (s *availabilityService) DeleteBooking(ctx context.Context, key BookingKey) (int64, error) {
	res := s.matchBooking(ctx, key).Delete(&models.AvailabilitySlot{})
	if res.Error != nil {
		return 0, fmt.Errorf("error deleting booking %s: %w", key, res.Error)
	}
	return res.RowsAffected, nil
}

// ListBusyBookings returns every busy exception row that was caused by a user.
// Agent blackouts (no user) and recurring rows (no date) are never included.
func (s *availabilityService) ListBusyBookings(ctx context.Context) ([]models.AvailabilitySlot, error) {
	var slots []models.AvailabilitySlot
	err := s.db.WithContext(ctx).
		Where("is_available = ? AND availability_type = ?", false, models.AvailabilityTypeException).
		Where("specific_date IS NOT NULL AND user_id IS NOT NULL").
		Order("id").
		Find(&slots).Error
	if err != nil {
		return nil, fmt.Errorf("error listing busy bookings: %w", err)
	}
	return slots, nil
}

// DeleteSlots removes the given rows by id.
func (s *availabilityService) DeleteSlots(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("id IN ? AND user_id IS NOT NULL", ids).
		Delete(&models.AvailabilitySlot{})
	if res.Error != nil {
		return 0, fmt.Errorf("error deleting %d availability rows: %w", len(ids), res.Error)
	}
	return res.RowsAffected, nil
}

// ListAgentSlots returns the agent's recurring rows for the weekday of date plus the
// exceptions recorded on that date, ordered by start time.
func (s *availabilityService) ListAgentSlots(ctx context.Context, agentID uint, date time.Time) ([]models.AvailabilitySlot, error) {
	d := date.UTC()
	day := datatypes.Date(time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC))

	var slots []models.AvailabilitySlot
	err := s.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Where(s.db.Where("specific_date IS NULL AND day_of_week = ?", d.Weekday().String()).
			Or("specific_date = ?", day)).
		Order("start_time").Order("id").
		Find(&slots).Error
	if err != nil {
		return nil, persistenceError(err, "failed to list availability of agent %d", agentID)
	}
	return slots, nil
}
