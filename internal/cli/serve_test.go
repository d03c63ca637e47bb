package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/config"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/tasks"
)

func TestRun_BackgroundStartFailureStopsListeners(t *testing.T) {
	orig := startBackground
	t.Cleanup(func() { startBackground = orig })
	startErr := errors.New("redis: connection refused")
	startBackground = func(cfg *config.Config, processor *tasks.TaskProcessor) (*asynq.Server, *asynq.Scheduler, error) {
		return nil, nil, startErr
	}

	cfg := &config.Config{
		RunMode:                "all",
		ApiPort:                "0",
		ServiceApiPort:         "0",
		JwtSecret:              "secret",
		RateLimitBidBucketSize: 5,
		RateLimitBidRefillRate: 1,
	}

	done := make(chan error, 1)
	go func() { done <- run(cfg, &app{cfg: cfg}) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, startErr)
	case <-time.After(20 * time.Second):
		t.Fatal("run did not stop its HTTP listeners after the worker failed to start")
	}
}
