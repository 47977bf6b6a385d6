// internal/services/audit.go
package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/needus/ecommerce-backend/internal/models"
)

// Actor identifies who triggered a write, for the audit trail.
type Actor struct {
	UserID    uuid.UUID
	IPAddress string
	UserAgent string
}

type actorKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

func newAuditLog(ctx context.Context, action, resourceType string, resourceID uuid.UUID, changed []string, oldValues, newValues models.JSONB) *models.AuditLog {
	entry := &models.AuditLog{
		Action:        action,
		ResourceType:  resourceType,
		ResourceID:    &resourceID,
		ChangedFields: changed,
		OldValues:     oldValues,
		NewValues:     newValues,
	}

	if actor, ok := ActorFrom(ctx); ok {
		if actor.UserID != uuid.Nil {
			userID := actor.UserID
			entry.UserID = &userID
		}
		entry.IPAddress = actor.IPAddress
		entry.UserAgent = actor.UserAgent
	}
	return entry
}
