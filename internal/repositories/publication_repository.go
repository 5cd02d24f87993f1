package repositories

import (
	"github.com/opuslog/backend/internal/models"
	"gorm.io/gorm"
)

// PublicationRepository defines the interface for publication and contributor
// data operations. Every authorization decision for a publication reduces to
// GetContributorWithPermissions.
type PublicationRepository interface {
	CreatePublication(pub *models.Publication, creator *models.User) error
	GetPublicationByID(id uint) (*models.Publication, error)
	GetPublicationByHandler(handler string) (*models.Publication, error)
	GetContributor(publicationID, userID uint) (*models.ContributorList, error)
	GetContributorWithPermissions(publicationID, userID uint, codes []string) (*models.ContributorList, error)
	GetContributorsWithPermission(publicationID uint, codes []string) ([]models.ContributorList, error)
	AddContributor(cl *models.ContributorList, codes []string) error
	GetPermissionsByCode(codes []string) ([]models.Permission, error)
}

// PostgresPublicationRepository implements PublicationRepository for PostgreSQL
type PostgresPublicationRepository struct {
	db *gorm.DB
}

// NewPostgresPublicationRepository creates a new PostgresPublicationRepository
func NewPostgresPublicationRepository(db *gorm.DB) *PostgresPublicationRepository {
	return &PostgresPublicationRepository{db: db}
}

// CreatePublication creates the publication together with the creator's owner
// contributor row in one transaction.
func (r *PostgresPublicationRepository) CreatePublication(pub *models.Publication, creator *models.User) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(pub).Error; err != nil {
			return err
		}
		owner := &models.ContributorList{
			PublicationID: pub.ID,
			ContributorID: creator.ID,
			Level:         models.LevelOwner,
		}
		return tx.Create(owner).Error
	})
}

// GetPublicationByID retrieves a publication by ID
func (r *PostgresPublicationRepository) GetPublicationByID(id uint) (*models.Publication, error) {
	var pub models.Publication
	if err := r.db.First(&pub, id).Error; err != nil {
		return nil, err
	}
	return &pub, nil
}

// GetPublicationByHandler retrieves a publication by its public handle
func (r *PostgresPublicationRepository) GetPublicationByHandler(handler string) (*models.Publication, error) {
	var pub models.Publication
	if err := r.db.Where("handler = ?", handler).First(&pub).Error; err != nil {
		return nil, err
	}
	return &pub, nil
}

// GetContributor retrieves the contributor row for a user on a publication,
// with publication, user and permissions preloaded.
func (r *PostgresPublicationRepository) GetContributor(publicationID, userID uint) (*models.ContributorList, error) {
	var cl models.ContributorList
	err := r.db.Preload("Publication").Preload("Contributor").Preload("Permissions").
		Where("publication_id = ? AND contributor_id = ?", publicationID, userID).
		First(&cl).Error
	if err != nil {
		return nil, err
	}
	return &cl, nil
}

// GetContributorWithPermissions narrows the contributor row by each required
// permission code in turn (logical AND). The owner level satisfies every code.
// Returns gorm.ErrRecordNotFound when any code is missing.
func (r *PostgresPublicationRepository) GetContributorWithPermissions(publicationID, userID uint, codes []string) (*models.ContributorList, error) {
	cl, err := r.GetContributor(publicationID, userID)
	if err != nil {
		return nil, err
	}
	if cl.Level == models.LevelOwner {
		return cl, nil
	}
	held := make(map[string]bool, len(cl.Permissions))
	for _, p := range cl.Permissions {
		held[p.CodeName] = true
	}
	for _, code := range codes {
		if !held[code] {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return cl, nil
}

// GetContributorsWithPermission returns every contributor of a publication
// holding all the given permission codes, owners always included. Used by the
// notification fan-out.
func (r *PostgresPublicationRepository) GetContributorsWithPermission(publicationID uint, codes []string) ([]models.ContributorList, error) {
	var all []models.ContributorList
	err := r.db.Preload("Publication").Preload("Contributor").Preload("Permissions").
		Where("publication_id = ?", publicationID).
		Find(&all).Error
	if err != nil {
		return nil, err
	}

	qualified := all[:0]
	for _, cl := range all {
		if cl.Level == models.LevelOwner {
			qualified = append(qualified, cl)
			continue
		}
		held := make(map[string]bool, len(cl.Permissions))
		for _, p := range cl.Permissions {
			held[p.CodeName] = true
		}
		ok := true
		for _, code := range codes {
			if !held[code] {
				ok = false
				break
			}
		}
		if ok {
			qualified = append(qualified, cl)
		}
	}
	return qualified, nil
}

// AddContributor creates a contributor row and attaches the permission rows
// matching the given codes in one transaction.
func (r *PostgresPublicationRepository) AddContributor(cl *models.ContributorList, codes []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(cl).Error; err != nil {
			return err
		}
		if len(codes) == 0 {
			return nil
		}
		var perms []models.Permission
		if err := tx.Where("code_name IN ?", codes).Find(&perms).Error; err != nil {
			return err
		}
		return tx.Model(cl).Association("Permissions").Append(&perms)
	})
}

// GetPermissionsByCode retrieves permission rows for the given code names
func (r *PostgresPublicationRepository) GetPermissionsByCode(codes []string) ([]models.Permission, error) {
	var perms []models.Permission
	if err := r.db.Where("code_name IN ?", codes).Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}
