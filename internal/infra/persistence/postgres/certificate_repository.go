package postgres

import (
	"context"
	"time"

	"aspen/internal/domain/entity"
	domainerrors "aspen/internal/domain/errors"
	"aspen/internal/domain/repository"
	"aspen/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// certificateRepository implements the repository.CertificateRepository interface.
type certificateRepository struct {
	db *gorm.DB
}

// NewCertificateRepository is the constructor for certificateRepository.
func NewCertificateRepository(db *gorm.DB) repository.CertificateRepository {
	return &certificateRepository{
		db: db,
	}
}

// FindUsable retrieves a non-expired certificate of the given type for an
// account.
func (repo *certificateRepository) FindUsable(ctx context.Context, account, typeStr string, now time.Time) (*entity.Certificate, error) {
	var certM model.CertificateModel

	if err := repo.db.WithContext(ctx).
		Where("account = ? AND type_str = ? AND expire > ?", account, typeStr, now).
		First(&certM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrCertificateNotFound
		}

		return nil, errors.Wrap(err, "failed to find usable certificate")
	}

	return certM.ToDomain(), nil
}

// Save creates or updates a certificate record keyed by sid.
func (repo *certificateRepository) Save(ctx context.Context, cert *entity.Certificate) error {
	certM := model.FromCertificateDomain(cert)

	if err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sid"}},
			UpdateAll: true,
		}).
		Create(certM).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to save certificate")
	}

	cert.CreatedAt = certM.CreatedAt

	return nil
}
