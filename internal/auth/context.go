package auth

import (
	"context"

	"github.com/google/uuid"
)

// UserContext holds authenticated user information
type UserContext struct {
	UserID uuid.UUID
	Email  string
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// MustFromContext extracts user context or panics
func MustFromContext(ctx context.Context) *UserContext {
	user, ok := FromContext(ctx)
	if !ok {
		panic("user context not found in context")
	}
	return user
}

// UserIDFromContext returns the authenticated user's id, or uuid.Nil when absent
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if user, ok := FromContext(ctx); ok && user != nil {
		return user.UserID
	}
	return uuid.Nil
}

const requestUserKey contextKey = "requestUser"

// WithRequestUserHolder installs holder so middleware running before
// authentication can read the user once the request has been served
func WithRequestUserHolder(ctx context.Context, holder *UserContext) context.Context {
	return context.WithValue(ctx, requestUserKey, holder)
}

func recordRequestUser(ctx context.Context, user *UserContext) {
	if holder, ok := ctx.Value(requestUserKey).(*UserContext); ok && holder != nil && user != nil {
		*holder = *user
	}
}
