package port

import (
	"context"

	"github.com/Bigalan09/PlayShelf-sub000/internal/core/domain"
)

// EventPublisher delivers auth lifecycle events to downstream consumers.
// Publication failures are reported but must never fail the primary
// operation that produced the event.
type EventPublisher interface {
	PublishIdentityRegistered(ctx context.Context, event domain.IdentityRegisteredEvent) error
	PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error
	PublishTokenRefreshed(ctx context.Context, event domain.TokenRefreshedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
}
