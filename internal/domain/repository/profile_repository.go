package repository

import (
	"context"

	"aspen/internal/domain/entity"

	"github.com/pkg/errors"
)

// ErrProfileNotFound is returned when a provisioning profile is not found.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository defines database operations for provisioning profiles.
type ProfileRepository interface {
	// FindBySID retrieves the profile for an (account, project) pair.
	FindBySID(ctx context.Context, sid string) (*entity.Profile, error)

	// Save creates or updates a profile record keyed by sid.
	Save(ctx context.Context, profile *entity.Profile) error
}
