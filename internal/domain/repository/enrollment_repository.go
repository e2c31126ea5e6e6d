package repository

import (
	"context"

	"aspen/internal/domain/entity"

	"github.com/pkg/errors"
)

// ErrEnrollmentNotFound is returned when an enrollment is not found.
var ErrEnrollmentNotFound = errors.New("enrollment not found")

// EnrollmentRepository defines database operations for device enrollments.
type EnrollmentRepository interface {
	// FindByUUID retrieves an enrollment by its token.
	FindByUUID(ctx context.Context, uuid string) (*entity.Enrollment, error)

	// FindByUDID retrieves all enrollments for a device, newest first.
	FindByUDID(ctx context.Context, udid string) ([]*entity.Enrollment, error)

	// Save creates or updates an enrollment record keyed by uuid.
	Save(ctx context.Context, enrollment *entity.Enrollment) error
}
