package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mcsmartbytes/job-sense/internal/auth"
	"gorm.io/gorm"
)

// Common service errors
var (
	// ErrPermissionDenied is returned when the entity belongs to another user
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrUnauthorized is returned when the caller is not authenticated or
	// presented bad credentials
	ErrUnauthorized = errors.New("unauthorized")

	// ErrEmailNotVerified is returned on login before the address was confirmed
	ErrEmailNotVerified = errors.New("email not verified")

	// ErrInvalidToken is returned for unknown, used or expired single-use tokens
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrInvalidTransition is returned when a status change is not allowed
	ErrInvalidTransition = errors.New("invalid status transition")
)

// currentUser returns the authenticated user id or ErrUnauthorized
func currentUser(ctx context.Context) (uuid.UUID, error) {
	userID := auth.UserIDFromContext(ctx)
	if userID == uuid.Nil {
		return uuid.Nil, ErrUnauthorized
	}
	return userID, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
