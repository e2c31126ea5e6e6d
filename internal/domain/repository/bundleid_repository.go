package repository

import (
	"context"

	"aspen/internal/domain/entity"

	"github.com/pkg/errors"
)

// ErrBundleIDNotFound is returned when a bundle id is not found.
var ErrBundleIDNotFound = errors.New("bundle id not found")

// BundleIDRepository defines database operations for registered app
// identifiers.
type BundleIDRepository interface {
	// FindBySID retrieves the bundle id for an (account, project) pair.
	FindBySID(ctx context.Context, sid string) (*entity.BundleID, error)

	// Save creates or updates a bundle id record keyed by sid.
	Save(ctx context.Context, bundleID *entity.BundleID) error
}
