package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/task-tracker/internal/events"
)

// StatsInvalidator drops cached dashboard counters for an owner.
type StatsInvalidator interface {
	InvalidateStats(ctx context.Context, ownerID string) error
}

// ActivityService reacts to task lifecycle events: it emits structured
// activity logs and keeps the cached dashboard counters fresh.
type ActivityService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	stats      StatsInvalidator
}

// NewActivityService creates the service.
func NewActivityService(dispatcher events.Dispatcher, logger *zap.Logger, stats StatsInvalidator) *ActivityService {
	return &ActivityService{
		dispatcher: dispatcher,
		logger:     logger,
		stats:      stats,
	}
}

// RegisterHandlers subscribes to events.
func (a *ActivityService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTaskCreated, a.handleTaskEvent)
	a.dispatcher.Subscribe(events.EventTaskUpdated, a.handleTaskEvent)
	a.dispatcher.Subscribe(events.EventTaskDeleted, a.handleTaskEvent)
}

func (a *ActivityService) handleTaskEvent(ctx context.Context, event events.Event) error {
	a.logger.Info("task activity",
		zap.String("event", string(event.Type)),
		zap.String("task_id", event.TaskID),
		zap.String("owner_id", event.OwnerID),
		zap.Any("payload", event.Payload),
	)
	if a.stats != nil {
		if err := a.stats.InvalidateStats(ctx, event.OwnerID); err != nil {
			a.logger.Warn("stats cache invalidation failed",
				zap.String("owner_id", event.OwnerID),
				zap.Error(err))
		}
	}
	return nil
}
