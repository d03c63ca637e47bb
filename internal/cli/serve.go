package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/api"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/config"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/tasks"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and/or the background worker",
		Long: `Run the back-office processes.

Modes:
  api  the HTTP API
  bg   the asynq worker and the periodic sweep scheduler
  all  both (default)

A service API (shutdown, getTestEmail) always listens on SERVICE_API_PORT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch mode {
			case "api", "bg", "all":
			default:
				return fmt.Errorf("invalid mode %q: must be one of api, bg, all", mode)
			}
			cfg, err := config.Load(mode)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return serve(cfg)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "all", "run mode (api|bg|all)")
	return cmd
}

func serve(cfg *config.Config) error {
	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.close()
	return run(cfg, a)
}

// startBackground starts the asynq worker and the sweep scheduler.
var startBackground = func(cfg *config.Config, processor *tasks.TaskProcessor) (*asynq.Server, *asynq.Scheduler, error) {
	workerSrv, mux := tasks.SetupServer(cfg, processor)
	if err := workerSrv.Start(mux); err != nil {
		return nil, nil, fmt.Errorf("failed to start background worker: %w", err)
	}
	log.Println("Background worker started.")

	scheduler, err := tasks.NewScheduler(cfg)
	if err != nil {
		workerSrv.Shutdown()
		return nil, nil, err
	}
	if err := scheduler.Start(); err != nil {
		workerSrv.Shutdown()
		return nil, nil, fmt.Errorf("failed to start scheduler: %w", err)
	}
	log.Println("Sweep scheduler started.")
	return workerSrv, scheduler, nil
}

// run starts the processes for cfg.RunMode and blocks until a signal, a service API
// shutdown request or the first process failure, then stops everything it started.
func run(cfg *config.Config, a *app) error {
	var wg sync.WaitGroup
	fatal := make(chan error, 4)
	shutdownChan := make(chan struct{}, 1)

	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(cfg, a.rdb, shutdownChan),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("Service API listening on :%s", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal <- fmt.Errorf("service API: %w", err)
		}
	}()

	var mainApiSrv *http.Server
	var workerSrv *asynq.Server
	var scheduler *asynq.Scheduler

	log.Printf("Starting application in '%s' mode...", cfg.RunMode)

	if cfg.RunMode == "api" || cfg.RunMode == "all" {
		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: api.SetupRouter(cfg, a.apiServices(), a.taskClient),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("Main API listening on :%s", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fatal <- fmt.Errorf("main API: %w", err)
			}
		}()
	}

	if cfg.RunMode == "bg" || cfg.RunMode == "all" {
		var err error
		workerSrv, scheduler, err = startBackground(cfg, a.taskProcessor())
		if err != nil {
			fatal <- err
		}
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case sig := <-quit:
		log.Printf("Received signal: %s. Shutting down gracefully...", sig)
	case <-shutdownChan:
		log.Println("Shutdown requested via Service API. Shutting down gracefully...")
	case runErr = <-fatal:
		log.Printf("Server error: %v. Shutting down...", runErr)
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Service API server shutdown error: %v", err)
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Printf("Main API server shutdown error: %v", err)
		}
	}
	if scheduler != nil {
		scheduler.Shutdown()
	}
	if workerSrv != nil {
		workerSrv.Shutdown()
	}

	wg.Wait()
	log.Println("Server gracefully stopped")
	return runErr
}
