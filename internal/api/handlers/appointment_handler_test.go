package handlers_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/api/handlers"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/models"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/services"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/tasks"
)

type appointmentMocks struct {
	appointments *MockAppointmentService
	sync         *MockSyncService
	availability *MockAvailabilityService
	taskClient   *MockAsynqClient
}

func newAppointmentRouter() (*gin.Engine, appointmentMocks) {
	gin.SetMode(gin.TestMode)
	m := appointmentMocks{
		appointments: new(MockAppointmentService),
		sync:         new(MockSyncService),
		availability: new(MockAvailabilityService),
		taskClient:   new(MockAsynqClient),
	}
	handler := handlers.NewAppointmentHandler(m.appointments, m.sync, m.availability, m.taskClient)

	r := gin.New()
	r.POST("/v1/admin/appointments/:id/sync", handler.Sync)
	r.PUT("/v1/admin/appointments/:id/status", handler.UpdateStatus)
	r.POST("/v1/admin/availability/sync", handler.BatchSync)
	r.GET("/v1/admin/agents/:id/availability", handler.AgentAvailability)
	return r, m
}

func TestAppointmentHandler_Sync(t *testing.T) {
	r, m := newAppointmentRouter()
	m.sync.On("SyncOne", mock.Anything, uint(5)).Return(true, nil)
	m.sync.On("SyncOne", mock.Anything, uint(6)).Return(false, nil)

	w := doJSON(r, http.MethodPost, "/v1/admin/appointments/5/sync", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["synced"])

	w = doJSON(r, http.MethodPost, "/v1/admin/appointments/6/sync", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["synced"])
}

func TestAppointmentHandler_UpdateStatus(t *testing.T) {
	r, m := newAppointmentRouter()
	m.appointments.On("UpdateStatus", mock.Anything, uint(5), models.AppointmentStatusCancelled).
		Return(&models.Appointment{Base: models.Base{ID: 5}, Status: models.AppointmentStatusCancelled}, nil)
	m.appointments.On("UpdateStatus", mock.Anything, uint(5), models.AppointmentStatus("postponed")).
		Return(nil, domainErr(services.KindValidation, "status must be one of scheduled completed cancelled"))

	w := doJSON(r, http.MethodPut, "/v1/admin/appointments/5/status", gin.H{"status": "cancelled"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decodeBody(t, w)["status"])

	w = doJSON(r, http.MethodPut, "/v1/admin/appointments/5/status", gin.H{"status": "postponed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	m.appointments.AssertExpectations(t)
}

func TestAppointmentHandler_BatchSync(t *testing.T) {
	r, m := newAppointmentRouter()
	m.taskClient.On("EnqueueContext", mock.Anything, tasks.TypeAvailabilityBatchSync).Return(&asynq.TaskInfo{ID: "abc"}, nil)
	m.sync.On("BatchSync", mock.Anything).Return(&services.BatchSyncReport{Synced: 2, Removed: 1}, nil)

	w := doJSON(r, http.MethodPost, "/v1/admin/availability/sync", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "abc", decodeBody(t, w)["task_id"])
	m.sync.AssertNotCalled(t, "BatchSync", mock.Anything)

	w = doJSON(r, http.MethodPost, "/v1/admin/availability/sync?inline=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.EqualValues(t, 2, body["synced"])
	assert.EqualValues(t, 1, body["removed"])
}

func TestAppointmentHandler_BatchSync_EnqueueFailure(t *testing.T) {
	r, m := newAppointmentRouter()
	m.taskClient.On("EnqueueContext", mock.Anything, tasks.TypeAvailabilityBatchSync).Return(nil, errors.New("redis down"))

	w := doJSON(r, http.MethodPost, "/v1/admin/availability/sync", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", decodeBody(t, w)["error"])
}

func TestAppointmentHandler_AgentAvailability(t *testing.T) {
	r, m := newAppointmentRouter()
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	m.availability.On("ListAgentSlots", mock.Anything, uint(3), date).
		Return([]models.AvailabilitySlot{{ID: 1, AgentID: 3}, {ID: 2, AgentID: 3}}, nil)

	w := doJSON(r, http.MethodGet, "/v1/admin/agents/3/availability?date=2026-03-02", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["data"], 2)

	w = doJSON(r, http.MethodGet, "/v1/admin/agents/3/availability?date=02/03/2026", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	m.availability.AssertExpectations(t)
}
