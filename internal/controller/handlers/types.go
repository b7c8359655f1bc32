package handlers

import (
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/controller/state"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
	"go.uber.org/zap"
)

// Handlers serves slash commands and dialog text.
type Handlers struct {
	userService    *service.UserService
	sessionService *service.SessionService
	stateManager   *state.Manager
	logger         *zap.Logger
	now            func() time.Time
}

func NewHandlers(
	userService *service.UserService,
	sessionService *service.SessionService,
	stateManager *state.Manager,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		userService:    userService,
		sessionService: sessionService,
		stateManager:   stateManager,
		logger:         logger,
		now:            time.Now,
	}
}
