package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/deskops/itsm-service/internal/domain"
	"github.com/deskops/itsm-service/internal/events"
	apperrors "github.com/deskops/itsm-service/pkg/util/errorutil"
)

func agentActor(principal domain.Principal) events.Actor {
	if principal.AgentID == "" {
		return events.Actor{System: true}
	}
	id := principal.AgentID
	return events.Actor{AgentID: &id}
}

// publish fills the envelope and hands the event to the dispatcher. Delivery
// failures never fail the originating write.
func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("tenant_id", event.TenantID),
			zap.Error(err))
	}
}

// notFound converts pgx.ErrNoRows into a NOT_FOUND domain error for resource.
func notFound(err error, resource string, details map[string]any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, details)
	}
	return apperrors.MapError(err)
}
