package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"equipment-tracker-backend/internal/store"
	"equipment-tracker-backend/internal/sweeper"
	"equipment-tracker-backend/internal/workflow"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	engine  *workflow.Engine
	sweeper *sweeper.Sweeper
	webpush *webpush.Options
	log     *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, engine *workflow.Engine, sw *sweeper.Sweeper, webpushOptions *webpush.Options, log *zap.Logger) *Handler {
	return &Handler{
		store:   s,
		engine:  engine,
		sweeper: sw,
		webpush: webpushOptions,
		log:     log,
	}
}
