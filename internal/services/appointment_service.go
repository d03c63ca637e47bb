package services

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/models"
)

// IAppointmentService defines the appointment status workflow.
type IAppointmentService interface {
	UpdateStatus(ctx context.Context, appointmentID uint, status models.AppointmentStatus) (*models.Appointment, error)
	CompletePastDue(ctx context.Context) (int, error)
}

type appointmentService struct {
	db   *gorm.DB
	sync IAppointmentSyncService
	now  func() time.Time
}

// NewAppointmentService creates a new AppointmentService.
func NewAppointmentService(gdb *gorm.DB, sync IAppointmentSyncService) IAppointmentService {
	return &appointmentService{
		db:   gdb,
		sync: sync,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// DueForCompletion returns the scheduled appointments that took place strictly
// before now.
func DueForCompletion(now time.Time, appointments []models.Appointment) []models.Appointment {
	due := make([]models.Appointment, 0)
	for _, a := range appointments {
		if a.Status == models.AppointmentStatusScheduled && a.AppointmentDate.Before(now) {
			due = append(due, a)
		}
	}
	return due
}

// UpdateStatus changes an appointment's status and resyncs its ledger row. A failed
// resync is logged; the next batch sync repairs the ledger.
func (s *appointmentService) UpdateStatus(ctx context.Context, appointmentID uint, status models.AppointmentStatus) (*models.Appointment, error) {
	if !status.Valid() {
		return nil, validationError("unknown appointment status %q", status)
	}

	var appt models.Appointment
	if err := s.db.WithContext(ctx).First(&appt, appointmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("appointment %d not found", appointmentID)
		}
		return nil, persistenceError(err, "failed to load appointment %d", appointmentID)
	}

	if previous := appt.Status; previous != status {
		if err := s.db.WithContext(ctx).Model(&appt).Update("status", status).Error; err != nil {
			return nil, persistenceError(err, "failed to update appointment %d", appointmentID)
		}
		log.Printf("AppointmentService: appointment %d %s -> %s", appointmentID, previous, status)
		appt.Status = status
	}

	if _, err := s.sync.SyncOne(ctx, appointmentID); err != nil {
		log.Printf("AppointmentService: appointment %d is %s but its slot was not synced: %v", appointmentID, status, err)
	}
	return &appt, nil
}

// CompletePastDue marks past scheduled appointments completed and frees their slots.
func (s *appointmentService) CompletePastDue(ctx context.Context) (int, error) {
	var scheduled []models.Appointment
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.AppointmentStatusScheduled).
		Find(&scheduled).Error; err != nil {
		return 0, persistenceError(err, "failed to load scheduled appointments")
	}

	completed := 0
	for _, appt := range DueForCompletion(s.now(), scheduled) {
		if ctx.Err() != nil {
			return completed, ctx.Err()
		}
		res := s.db.WithContext(ctx).Model(&models.Appointment{}).
			Where("id = ? AND status = ?", appt.ID, models.AppointmentStatusScheduled).
			Update("status", models.AppointmentStatusCompleted)
		if res.Error != nil {
			log.Printf("AppointmentService: failed to complete appointment %d: %v", appt.ID, res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}
		if _, err := s.sync.SyncOne(ctx, appt.ID); err != nil {
			log.Printf("AppointmentService: completed appointment %d but could not free its slot: %v", appt.ID, err)
		}
		completed++
	}
	if completed > 0 {
		log.Printf("AppointmentService: completed %d past-due appointments", completed)
	}
	return completed, nil
}
