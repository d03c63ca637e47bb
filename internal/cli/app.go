package cli

import (
	"log"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/api"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/cache"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/config"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/db"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/email"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/services"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/tasks"
)

// app holds the connections and services shared by commands.
type app struct {
	cfg        *config.Config
	gdb        *gorm.DB
	rdb        *redis.Client
	taskClient *asynq.Client

	auctions     services.IAuctionService
	availability services.IAvailabilityService
	sync         services.IAppointmentSyncService
	appointments services.IAppointmentService
	templates    services.IEmailTemplateService
}

// newApp connects to PostgreSQL and, when withRedis is set, to Redis. Without Redis
// no auction emails are queued.
func newApp(cfg *config.Config, withRedis bool) (*app, error) {
	gdb, err := db.ConnectDB(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, gdb: gdb}

	var notifier services.AuctionNotifier
	if withRedis {
		a.rdb, err = cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			a.close()
			return nil, err
		}
		a.taskClient = tasks.NewClient(cfg)
		notifier = tasks.NewAuctionMailer(cfg, a.taskClient)
	}

	a.auctions = services.NewAuctionService(gdb, notifier)
	a.availability = services.NewAvailabilityService(gdb)
	a.sync = services.NewAppointmentSyncService(gdb, a.availability, cfg.AppointmentSlotDuration)
	a.appointments = services.NewAppointmentService(gdb, a.sync)
	a.templates = services.NewEmailTemplateService(gdb)
	return a, nil
}

func (a *app) apiServices() api.Services {
	return api.Services{
		Auctions:     a.auctions,
		Appointments: a.appointments,
		Sync:         a.sync,
		Availability: a.availability,
	}
}

// emailSender picks the delivery chain: Redis under MOCK_SERVICES, SMTP otherwise,
// plus a file log when LOG_EMAILS is set.
func (a *app) emailSender() email.Sender {
	var primary email.Sender
	if a.cfg.MockServices && a.rdb != nil {
		log.Println("MOCK_SERVICES enabled: Using Redis email sender.")
		primary = email.NewRedisSender(a.rdb, a.cfg)
	} else {
		primary = email.NewSMTPSender(a.cfg)
	}

	composite := email.NewCompositeEmailSender(primary)
	if a.cfg.LogEmailsPath != "" {
		fileSender, err := email.NewFileEmailSender(a.cfg.LogEmailsPath, a.cfg)
		if err != nil {
			log.Printf("WARNING: Failed to initialize file email sender (LOG_EMAILS='%s'): %v. Proceeding without file logging.", a.cfg.LogEmailsPath, err)
		} else {
			composite.AddSender(fileSender)
		}
	}
	return composite
}

func (a *app) taskProcessor() *tasks.TaskProcessor {
	var locker cache.Locker
	if a.rdb != nil {
		locker = cache.NewRedisLocker(a.rdb)
	}
	return tasks.NewTaskProcessor(a.cfg, a.emailSender(), a.templates, a.auctions, a.sync, a.appointments, locker)
}

func (a *app) close() {
	if a.taskClient != nil {
		if err := a.taskClient.Close(); err != nil {
			log.Printf("Error closing task client: %v", err)
		}
	}
	if err := cache.DisconnectRedis(a.rdb); err != nil {
		log.Printf("Error disconnecting from Redis: %v", err)
	}
	if err := db.DisconnectDB(a.gdb); err != nil {
		log.Printf("Error disconnecting from PostgreSQL: %v", err)
	}
}
