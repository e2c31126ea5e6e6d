package repository

import (
	"context"

	"aspen/internal/domain/entity"

	"github.com/pkg/errors"
)

// ErrProjectNotFound is returned when a project is not found.
var ErrProjectNotFound = errors.New("project not found")

// ProjectRepository defines read operations for projects. Projects are
// provisioned out-of-band; this service never writes them.
type ProjectRepository interface {
	// FindByName retrieves a project by its name.
	FindByName(ctx context.Context, project string) (*entity.Project, error)
}
