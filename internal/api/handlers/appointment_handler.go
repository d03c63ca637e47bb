package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/models"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/services"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/tasks"
)

// AppointmentHandler exposes the appointment workflow and the availability ledger to admins.
type AppointmentHandler struct {
	appointmentService  services.IAppointmentService
	syncService         services.IAppointmentSyncService
	availabilityService services.IAvailabilityService
	taskClient          tasks.TaskEnqueuer
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(
	appointmentService services.IAppointmentService,
	syncService services.IAppointmentSyncService,
	availabilityService services.IAvailabilityService,
	taskClient tasks.TaskEnqueuer,
) *AppointmentHandler {
	return &AppointmentHandler{
		appointmentService:  appointmentService,
		syncService:         syncService,
		availabilityService: availabilityService,
		taskClient:          taskClient,
	}
}

// Sync handles POST /v1/admin/appointments/:id/sync
func (h *AppointmentHandler) Sync(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	synced, err := h.syncService.SyncOne(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": synced})
}

type updateStatusRequest struct {
	Status models.AppointmentStatus `json:"status"`
}

// UpdateStatus handles PUT /v1/admin/appointments/:id/status
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	appt, err := h.appointmentService.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

// BatchSync handles POST /v1/admin/availability/sync. The sweep is queued unless
// ?inline=true asks for it to run within the request.
func (h *AppointmentHandler) BatchSync(c *gin.Context) {
	if c.Query("inline") == "true" {
		report, err := h.syncService.BatchSync(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
		return
	}

	info, err := h.taskClient.EnqueueContext(c.Request.Context(),
		asynq.NewTask(tasks.TypeAvailabilityBatchSync, nil), asynq.Queue("low"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": info.ID})
}

// AgentAvailability handles GET /v1/admin/agents/:id/availability?date=YYYY-MM-DD
func (h *AppointmentHandler) AgentAvailability(c *gin.Context) {
	agentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	date, err := time.ParseInLocation(time.DateOnly, c.Query("date"), time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be formatted YYYY-MM-DD"})
		return
	}
	slots, err := h.availabilityService.ListAgentSlots(c.Request.Context(), agentID, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": slots})
}
