package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/api/handlers"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/api/middleware"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/config"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/email"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/services"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/tasks"
)

// Services groups what the HTTP handlers need.
type Services struct {
	Auctions     services.IAuctionService
	Appointments services.IAppointmentService
	Sync         services.IAppointmentSyncService
	Availability services.IAvailabilityService
}

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, svc Services, taskClient tasks.TaskEnqueuer) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORSMiddleware())

	bidLimiter := middleware.NewRateLimiterMiddleware(cfg.RateLimitBidRefillRate, cfg.RateLimitBidBucketSize)

	auctionHandler := handlers.NewAuctionHandler(svc.Auctions, cfg.AuctionDefaultExtendHours)
	appointmentHandler := handlers.NewAppointmentHandler(svc.Appointments, svc.Sync, svc.Availability, taskClient)

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.GET("/auctions/:id", auctionHandler.Get)
			authRequired.POST("/auctions/:id/bids", bidLimiter.Limit(), auctionHandler.PlaceBid)
		}

		adminRequired := v1.Group("/admin")
		adminRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			adminRequired.POST("/auctions", auctionHandler.Setup)
			adminRequired.GET("/auctions/active", auctionHandler.ListActive)
			adminRequired.GET("/auctions/recent", auctionHandler.ListRecent)
			adminRequired.POST("/auctions/:id/end", auctionHandler.End)
			adminRequired.POST("/auctions/:id/extend", auctionHandler.Extend)
			adminRequired.POST("/auctions/:id/cancel", auctionHandler.Cancel)

			adminRequired.POST("/appointments/:id/sync", appointmentHandler.Sync)
			adminRequired.PUT("/appointments/:id/status", appointmentHandler.UpdateStatus)
			adminRequired.POST("/availability/sync", appointmentHandler.BatchSync)
			adminRequired.GET("/agents/:id/availability", appointmentHandler.AgentAvailability)
		}
	}

	return r
}

// SetupServiceRouter configures and returns the service Gin engine.
// rdb backs the getTestEmail method used by end-to-end tests with MOCK_SERVICES.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				log.Println("Shutdown channel already signaled.")
			}
		case "getTestEmail":
			if rdb == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Redis not configured"})
				return
			}
			var args []string // ["template_id", "email"]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [templateID, email]"})
				return
			}
			redisKey := email.MockEmailKey(args[1], args[0])

			// Poll Redis briefly for the key
			var emailJsonData string
			var getErr error
			found := false
			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()
			for i := 0; i < 10; i++ {
				emailJsonData, getErr = rdb.Get(ctx, redisKey).Result()
				if getErr == nil {
					found = true
					rdb.Del(ctx, redisKey)
					break
				}
				if getErr != redis.Nil {
					log.Printf("Service API: Error getting key %s from Redis: %v", redisKey, getErr)
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
					return
				}
				time.Sleep(200 * time.Millisecond)
			}

			if !found {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", redisKey)})
				return
			}

			var emailData map[string]interface{}
			if err := json.Unmarshal([]byte(emailJsonData), &emailData); err != nil {
				log.Printf("Service API: Error unmarshalling email data from key %s: %v", redisKey, err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "data": emailData})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
