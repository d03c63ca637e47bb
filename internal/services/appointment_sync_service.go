package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/models"
)

// DefaultSlotDuration is how long a booked viewing blocks the agent.
const DefaultSlotDuration = 30 * time.Minute

// lastTimeOfDay caps end times so a late viewing never spills past midnight.
const lastTimeOfDay = 24*time.Hour - time.Second

// BatchSyncReport summarizes one BatchSync run.
type BatchSyncReport struct {
	Synced  int   `json:"synced"`
	Failed  int   `json:"failed"`
	Removed int64 `json:"removed"`
}

// IAppointmentSyncService keeps the availability ledger in step with appointments.
type IAppointmentSyncService interface {
	SyncOne(ctx context.Context, appointmentID uint) (bool, error)
	BatchSync(ctx context.Context) (*BatchSyncReport, error)
}

type appointmentSyncService struct {
	db           *gorm.DB
	availability IAvailabilityService
	slotDuration time.Duration
	now          func() time.Time
}

// NewAppointmentSyncService creates a new AppointmentSyncService. A non-positive
// slotDuration falls back to DefaultSlotDuration.
func NewAppointmentSyncService(gdb *gorm.DB, availability IAvailabilityService, slotDuration time.Duration) IAppointmentSyncService {
	if slotDuration <= 0 {
		slotDuration = DefaultSlotDuration
	}
	return &appointmentSyncService{
		db:           gdb,
		availability: availability,
		slotDuration: slotDuration,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// bookingSlot derives the busy ledger row for an appointment.
func bookingSlot(appt *models.Appointment, userID uint, slotDuration time.Duration) (*models.AvailabilitySlot, BookingKey) {
	at := appt.AppointmentDate.UTC()
	date := datatypes.Date(time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC))
	start := datatypes.NewTime(at.Hour(), at.Minute(), at.Second(), 0)

	end := time.Duration(start) + slotDuration
	if end > lastTimeOfDay {
		end = lastTimeOfDay
	}

	key := BookingKey{AgentID: appt.AgentID, Date: date, Start: start, UserID: userID}
	uid := userID
	slot := &models.AvailabilitySlot{
		AgentID:          appt.AgentID,
		DayOfWeek:        at.Weekday().String(),
		SpecificDate:     &date,
		StartTime:        start,
		EndTime:          datatypes.Time(end),
		UserID:           &uid,
		IsAvailable:      false,
		AvailabilityType: models.AvailabilityTypeException,
		Notes:            fmt.Sprintf("Appointment #%d", appt.ID),
	}
	return slot, key
}

// appointmentKey is the booking key an appointment would own in the ledger.
func (s *appointmentSyncService) appointmentKey(appt *models.Appointment) (BookingKey, bool) {
	if appt.Client == nil {
		return BookingKey{}, false
	}
	_, key := bookingSlot(appt, appt.Client.UserID, s.slotDuration)
	return key, true
}

// SyncOne projects one appointment onto the ledger: a scheduled appointment gets its
// busy row, any other status loses it. It returns false when the appointment does
// not exist.
func (s *appointmentSyncService) SyncOne(ctx context.Context, appointmentID uint) (bool, error) {
	var appt models.Appointment
	err := s.db.WithContext(ctx).Preload("Client").First(&appt, appointmentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, persistenceError(err, "failed to load appointment %d", appointmentID)
	}
	if appt.Client == nil {
		return false, notFoundError("client %d of appointment %d not found", appt.ClientID, appointmentID)
	}

	slot, key := bookingSlot(&appt, appt.Client.UserID, s.slotDuration)

	if appt.Status == models.AppointmentStatusScheduled {
		created, err := s.availability.InsertBooking(ctx, slot)
		if err != nil {
			return false, persistenceError(err, "failed to block slot for appointment %d", appointmentID)
		}
		if created {
			log.Printf("AppointmentSync: blocked %s for appointment %d", key, appointmentID)
		}
		return true, nil
	}

	removed, err := s.availability.DeleteBooking(ctx, key)
	if err != nil {
		return false, persistenceError(err, "failed to free slot for appointment %d", appointmentID)
	}
	if removed > 0 {
		log.Printf("AppointmentSync: freed %s for %s appointment %d", key, appt.Status, appointmentID)
	}
	return true, nil
}

// BatchSync syncs every upcoming scheduled appointment, then removes booking rows
// that no scheduled appointment accounts for. One failing appointment never stops
// the run.
func (s *appointmentSyncService) BatchSync(ctx context.Context) (*BatchSyncReport, error) {
	report := &BatchSyncReport{}

	var upcoming []uint
	err := s.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("status = ? AND appointment_date > ?", models.AppointmentStatusScheduled, s.now()).
		Order("appointment_date").
		Pluck("id", &upcoming).Error
	if err != nil {
		return nil, persistenceError(err, "failed to list upcoming appointments")
	}

	for _, id := range upcoming {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if _, err := s.SyncOne(ctx, id); err != nil {
			log.Printf("AppointmentSync: failed to sync appointment %d: %v", id, err)
			report.Failed++
			continue
		}
		report.Synced++
	}

	removed, err := s.cleanupOrphans(ctx)
	if err != nil {
		return report, err
	}
	report.Removed = removed

	log.Printf("AppointmentSync: batch done, synced=%d failed=%d removed=%d", report.Synced, report.Failed, report.Removed)
	return report, nil
}

// cleanupOrphans deletes busy booking rows with no matching scheduled appointment.
// Blackout rows have no user and are never candidates.
func (s *appointmentSyncService) cleanupOrphans(ctx context.Context) (int64, error) {
	busy, err := s.availability.ListBusyBookings(ctx)
	if err != nil {
		return 0, persistenceError(err, "failed to list busy bookings")
	}
	if len(busy) == 0 {
		return 0, nil
	}

	var scheduled []models.Appointment
	if err := s.db.WithContext(ctx).Preload("Client").
		Where("status = ?", models.AppointmentStatusScheduled).
		Find(&scheduled).Error; err != nil {
		return 0, persistenceError(err, "failed to load scheduled appointments")
	}

	live := make(map[string]struct{}, len(scheduled))
	for i := range scheduled {
		if key, ok := s.appointmentKey(&scheduled[i]); ok {
			live[key.String()] = struct{}{}
		}
	}

	var orphans []uint
	for _, slot := range busy {
		key, ok := bookingKeyOf(slot)
		if !ok {
			continue
		}
		if _, found := live[key.String()]; !found {
			orphans = append(orphans, slot.ID)
		}
	}

	removed, err := s.availability.DeleteSlots(ctx, orphans)
	if err != nil {
		return 0, persistenceError(err, "failed to remove orphaned bookings")
	}
	return removed, nil
}
