package ports

import (
	"context"

	"github.com/aretw0/scribe/pkg/domain"
)

// Authorizer is the authorization oracle for message senders and reactors.
type Authorizer interface {
	// IsAuthorized reports whether actor may act within connectionID.
	// connectionID may be empty for messages outside any linked account.
	IsAuthorized(ctx context.Context, connectionID string, actor domain.Actor) (bool, error)
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, connectionID string, actor domain.Actor) (bool, error)

// IsAuthorized calls f.
func (f AuthorizerFunc) IsAuthorized(ctx context.Context, connectionID string, actor domain.Actor) (bool, error) {
	return f(ctx, connectionID, actor)
}
