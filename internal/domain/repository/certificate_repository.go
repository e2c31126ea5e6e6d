package repository

import (
	"context"
	"time"

	"aspen/internal/domain/entity"

	"github.com/pkg/errors"
)

// ErrCertificateNotFound is returned when a certificate is not found.
var ErrCertificateNotFound = errors.New("certificate not found")

// CertificateRepository defines database operations for signing
// certificates.
type CertificateRepository interface {
	// FindUsable retrieves a non-expired certificate of the given type for
	// an account.
	FindUsable(ctx context.Context, account, typeStr string, now time.Time) (*entity.Certificate, error)

	// Save creates or updates a certificate record keyed by sid.
	Save(ctx context.Context, cert *entity.Certificate) error
}
