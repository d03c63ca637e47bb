package handlers_test

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/models"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/services"
)

// --- Mock Services ---

// MockAuctionService
type MockAuctionService struct {
	mock.Mock
}

func (m *MockAuctionService) Setup(ctx context.Context, propertyID uint, startingPrice float64) (*models.PropertyAuction, error) {
	args := m.Called(ctx, propertyID, startingPrice)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PropertyAuction), args.Error(1)
}

func (m *MockAuctionService) End(ctx context.Context, auctionID uint) (*models.AuctionResolution, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuctionResolution), args.Error(1)
}

func (m *MockAuctionService) Extend(ctx context.Context, auctionID uint, hours int) (time.Time, error) {
	args := m.Called(ctx, auctionID, hours)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockAuctionService) Cancel(ctx context.Context, auctionID uint) error {
	return m.Called(ctx, auctionID).Error(0)
}

func (m *MockAuctionService) PlaceBid(ctx context.Context, auctionID, userID uint, amount float64) (*models.AuctionBid, error) {
	args := m.Called(ctx, auctionID, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuctionBid), args.Error(1)
}

func (m *MockAuctionService) GetAuction(ctx context.Context, auctionID uint) (*models.AuctionSummary, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuctionSummary), args.Error(1)
}

func (m *MockAuctionService) ListActiveAuctions(ctx context.Context) ([]models.AuctionSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuctionSummary), args.Error(1)
}

func (m *MockAuctionService) ListRecentResolvedAuctions(ctx context.Context, limit int) ([]models.AuctionSummary, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuctionSummary), args.Error(1)
}

func (m *MockAuctionService) CloseExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockAppointmentService
type MockAppointmentService struct {
	mock.Mock
}

func (m *MockAppointmentService) UpdateStatus(ctx context.Context, appointmentID uint, status models.AppointmentStatus) (*models.Appointment, error) {
	args := m.Called(ctx, appointmentID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *MockAppointmentService) CompletePastDue(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockSyncService
type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) SyncOne(ctx context.Context, appointmentID uint) (bool, error) {
	args := m.Called(ctx, appointmentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSyncService) BatchSync(ctx context.Context) (*services.BatchSyncReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.BatchSyncReport), args.Error(1)
}

// MockAvailabilityService only implements the read used by handlers.
type MockAvailabilityService struct {
	mock.Mock
	services.IAvailabilityService
}

func (m *MockAvailabilityService) ListAgentSlots(ctx context.Context, agentID uint, date time.Time) ([]models.AvailabilitySlot, error) {
	args := m.Called(ctx, agentID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AvailabilitySlot), args.Error(1)
}

// MockAsynqClient
type MockAsynqClient struct {
	mock.Mock
}

func (m *MockAsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task.Type())
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}
