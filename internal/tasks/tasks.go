package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/cache"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/config"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/email"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/services"
)

// TaskType defines the type of a background task.
const (
	TypeEmailDelivery         = "email:deliver"
	TypeAppointmentSync       = "appointment:sync"
	TypeAvailabilityBatchSync = "availability:batch_sync"
	TypeAppointmentRollover   = "appointment:rollover"
	TypeAuctionCloseExpired   = "auction:close_expired"
)

// TaskEnqueuer is the part of asynq.Client the application uses.
// This allows easier mocking than using the concrete asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// --- Task Client (Enqueuing tasks) ---

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// NewClient creates the asynq client used to enqueue tasks.
func NewClient(cfg *config.Config) *asynq.Client {
	return asynq.NewClient(redisOpt(cfg))
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg                  *config.Config
	emailSender          email.Sender
	emailTemplateService services.IEmailTemplateService
	auctionService       services.IAuctionService
	syncService          services.IAppointmentSyncService
	appointmentService   services.IAppointmentService
	locker               cache.Locker
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	emailTemplateService services.IEmailTemplateService,
	auctionService services.IAuctionService,
	syncService services.IAppointmentSyncService,
	appointmentService services.IAppointmentService,
	locker cache.Locker,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:                  cfg,
		emailSender:          emailSender,
		emailTemplateService: emailTemplateService,
		auctionService:       auctionService,
		syncService:          syncService,
		appointmentService:   appointmentService,
		locker:               locker,
	}
}

// SetupServer configures an Asynq server and the mux holding every task handler.
// The caller runs the server.
func SetupServer(cfg *config.Config, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
	mux.HandleFunc(TypeAppointmentSync, processor.HandleAppointmentSyncTask)
	mux.HandleFunc(TypeAvailabilityBatchSync, processor.HandleBatchSyncTask)
	mux.HandleFunc(TypeAppointmentRollover, processor.HandleRolloverTask)
	mux.HandleFunc(TypeAuctionCloseExpired, processor.HandleCloseExpiredTask)
	log.Println("Registered background task handlers (email, sync, rollover, auctions).")

	return srv, mux
}

// NewScheduler registers the periodic sweeps. Auto-closing auctions is only
// scheduled when enabled in configuration.
func NewScheduler(cfg *config.Config) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt(cfg), &asynq.SchedulerOpts{
		Location: time.UTC,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				log.Printf("Scheduler: failed to enqueue periodic task: %v", err)
			}
		},
	})

	entries := []struct {
		spec     string
		taskType string
	}{
		{cfg.SyncCron, TypeAvailabilityBatchSync},
		{cfg.RolloverCron, TypeAppointmentRollover},
	}
	if cfg.AuctionAutoClose {
		entries = append(entries, struct {
			spec     string
			taskType string
		}{cfg.AutoCloseCron, TypeAuctionCloseExpired})
	}

	for _, e := range entries {
		// Unique keeps a slow sweep from piling up behind itself.
		id, err := scheduler.Register(e.spec, asynq.NewTask(e.taskType, nil), asynq.Queue("low"), asynq.Unique(time.Minute))
		if err != nil {
			return nil, fmt.Errorf("failed to schedule %s (%s): %w", e.taskType, e.spec, err)
		}
		log.Printf("Scheduled %s at %q (entry %s)", e.taskType, e.spec, id)
	}
	return scheduler, nil
}

// skipRetryFor marks errors that another attempt cannot fix.
func skipRetryFor(err error) error {
	if errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrValidation) || errors.Is(err, services.ErrInvalidState) {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}

// withSweepLock runs fn unless another worker holds the named sweep lock.
func (p *TaskProcessor) withSweepLock(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if p.locker == nil {
		return fn(ctx)
	}
	release, err := p.locker.Acquire(ctx, name, p.cfg.SweepLockTTL)
	if err != nil {
		if errors.Is(err, cache.ErrLockHeld) {
			log.Printf("Sweep %s already running elsewhere, skipping.", name)
			return nil
		}
		return err
	}
	defer release()
	return fn(ctx)
}

// --- Task Handlers ---

// EmailTaskPayload is the payload of TypeEmailDelivery.
type EmailTaskPayload struct {
	To         string                 `json:"to"`
	TemplateID string                 `json:"template_id"`
	Locale     string                 `json:"locale,omitempty"` // Optional locale
	Data       map[string]interface{} `json:"data"`
}

// HandleEmailDeliveryTask renders a template and sends it.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}

	log.Printf("Sending email task: To=%s, Template=%s", payload.To, payload.TemplateID)

	locale := payload.Locale
	if locale == "" {
		locale = p.cfg.CurrencyLocale
	}

	tmpl, err := p.emailTemplateService.GetTemplate(ctx, payload.TemplateID, locale)
	if err != nil {
		log.Printf("Error getting email template %s/%s: %v", payload.TemplateID, locale, err)
		return fmt.Errorf("email template not found: %w", asynq.SkipRetry)
	}

	// Simple placeholder replacement (replace {{.key}})
	subjectRendered := tmpl.Subject
	bodyRendered := tmpl.Body
	for key, val := range payload.Data {
		placeholder := fmt.Sprintf("{{.%s}}", key)
		valueStr := fmt.Sprintf("%v", val)
		subjectRendered = strings.ReplaceAll(subjectRendered, placeholder, valueStr)
		bodyRendered = strings.ReplaceAll(bodyRendered, placeholder, valueStr)
	}

	fromAddress := p.cfg.SmtpFromAddress
	if fromAddress == "" {
		fromAddress = "noreply@example.com"
		log.Printf("Warning: SmtpFromAddress not configured, using fallback %s for email to %s", fromAddress, payload.To)
	}

	rawMessage := email.BuildMessage(fromAddress, []string{payload.To}, subjectRendered, payload.TemplateID, bodyRendered)
	if err := p.emailSender.Send(ctx, []string{payload.To}, subjectRendered, rawMessage); err != nil {
		log.Printf("Email sending failed, will retry: %v", err)
		return err
	}

	log.Printf("Email task processed successfully: To=%s, Template=%s", payload.To, payload.TemplateID)
	return nil
}

// AppointmentSyncPayload is the payload of TypeAppointmentSync.
type AppointmentSyncPayload struct {
	AppointmentID uint `json:"appointment_id"`
}

// NewAppointmentSyncTask builds a task resyncing one appointment.
func NewAppointmentSyncTask(appointmentID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(AppointmentSyncPayload{AppointmentID: appointmentID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAppointmentSync, payload), nil
}

// HandleAppointmentSyncTask syncs one appointment onto the availability ledger.
func (p *TaskProcessor) HandleAppointmentSyncTask(ctx context.Context, t *asynq.Task) error {
	var payload AppointmentSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.AppointmentID == 0 {
		return fmt.Errorf("invalid appointment sync payload %q: %w", string(t.Payload()), asynq.SkipRetry)
	}

	found, err := p.syncService.SyncOne(ctx, payload.AppointmentID)
	if err != nil {
		return skipRetryFor(err)
	}
	if !found {
		log.Printf("Appointment %d no longer exists, nothing to sync.", payload.AppointmentID)
	}
	return nil
}

// HandleBatchSyncTask reconciles the whole availability ledger.
func (p *TaskProcessor) HandleBatchSyncTask(ctx context.Context, t *asynq.Task) error {
	return p.withSweepLock(ctx, TypeAvailabilityBatchSync, func(ctx context.Context) error {
		report, err := p.syncService.BatchSync(ctx)
		if err != nil {
			return err
		}
		log.Printf("Batch sync finished: synced=%d failed=%d removed=%d", report.Synced, report.Failed, report.Removed)
		return nil
	})
}

// HandleRolloverTask completes past-due appointments.
func (p *TaskProcessor) HandleRolloverTask(ctx context.Context, t *asynq.Task) error {
	return p.withSweepLock(ctx, TypeAppointmentRollover, func(ctx context.Context) error {
		n, err := p.appointmentService.CompletePastDue(ctx)
		if err != nil {
			return err
		}
		log.Printf("Rollover finished: %d appointments completed", n)
		return nil
	})
}

// HandleCloseExpiredTask ends auctions whose deadline has passed.
func (p *TaskProcessor) HandleCloseExpiredTask(ctx context.Context, t *asynq.Task) error {
	if !p.cfg.AuctionAutoClose {
		log.Println("Auction auto-close disabled, skipping.")
		return nil
	}
	return p.withSweepLock(ctx, TypeAuctionCloseExpired, func(ctx context.Context) error {
		_, err := p.auctionService.CloseExpired(ctx)
		return err
	})
}
