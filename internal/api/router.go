package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"equipment-tracker-backend/config"
	"equipment-tracker-backend/internal/mw"
	"equipment-tracker-backend/internal/store"
	"equipment-tracker-backend/internal/sweeper"
	"equipment-tracker-backend/internal/workflow"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, s store.Store, engine *workflow.Engine, sw *sweeper.Sweeper, webpushOptions *webpush.Options, log *zap.Logger) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, engine, sw, webpushOptions, log)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)

	// The VAPID key is needed before a client can authenticate a push
	// subscription, so it stays outside the auth group.
	api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

	authed := api.Group("")
	authed.Use(mw.Auth(cfg.Auth.JWTSecret))
	{
		authed.GET("/equipment", handler.ListEquipment)
		authed.GET("/equipment/:id", handler.GetEquipment)
		authed.GET("/status_summary", caching, handler.GetStatusSummary)
		authed.POST("/equipment/:id/transition", handler.TransitionEquipment)

		authed.POST("/sweep", handler.RunSweep)

		authed.GET("/subscriptions", handler.GetSubscription)
		authed.PUT("/subscriptions", handler.PutSubscription)
		authed.DELETE("/subscriptions", handler.DeleteSubscription)
	}

	return r
}
