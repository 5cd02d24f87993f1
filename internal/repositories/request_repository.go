package repositories

import (
	"errors"

	"github.com/opuslog/backend/internal/models"
	"gorm.io/gorm"
)

// ErrDuplicateRequest is returned when a pending request already exists for
// the same (for, to) pair. Surfaced to clients as a conflict.
var ErrDuplicateRequest = errors.New("a pending request already exists for this pair")

// RequestRepository defines the interface for request log data operations
type RequestRepository interface {
	CreateRequest(req *models.RequestLog) error
	GetPendingByID(id uint) (*models.RequestLog, error)
	UpdateStatus(req *models.RequestLog, status string) error
}

// PostgresRequestRepository implements RequestRepository for PostgreSQL
type PostgresRequestRepository struct {
	db *gorm.DB
}

// NewPostgresRequestRepository creates a new PostgresRequestRepository
func NewPostgresRequestRepository(db *gorm.DB) *PostgresRequestRepository {
	return &PostgresRequestRepository{db: db}
}

// CreateRequest persists a pending request. A pending row for the same
// (for, to) pair fails with ErrDuplicateRequest; the unique index backstops
// the pre-check under races.
func (r *PostgresRequestRepository) CreateRequest(req *models.RequestLog) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.RequestLog{}).
			Where("request_for_type = ? AND request_for_id = ? AND request_to_type = ? AND request_to_id = ? AND status = ?",
				req.RequestForType, req.RequestForID, req.RequestToType, req.RequestToID, models.RequestPending).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateRequest
		}
		req.Status = models.RequestPending
		if err := tx.Create(req).Error; err != nil {
			return ErrDuplicateRequest
		}
		return nil
	})
}

// GetPendingByID retrieves a request only while it is still pending
func (r *PostgresRequestRepository) GetPendingByID(id uint) (*models.RequestLog, error) {
	var req models.RequestLog
	if err := r.db.Where("id = ? AND status = ?", id, models.RequestPending).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateStatus resolves a request as accepted or rejected
func (r *PostgresRequestRepository) UpdateStatus(req *models.RequestLog, status string) error {
	return r.db.Model(req).Update("status", status).Error
}
