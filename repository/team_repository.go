package repository

import (
	"context"
	"errors"

	"github.com/videostreampro/adcore/models"
	"gorm.io/gorm"
)

// TeamRepositoryImpl implements TeamRepository, grounded on the teacher's
// smaller lookup-table repositories (e.g. repository/line_number_repository.go):
// a thin BaseRepository wrapper with ID/UUID lookups and no further
// domain-specific behavior.
type TeamRepositoryImpl struct {
	*BaseRepository[models.Team, models.TeamFilter]
}

// NewTeamRepository creates a new team repository.
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &TeamRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Team, models.TeamFilter](db),
	}
}

// ByID retrieves a team by ID.
func (r *TeamRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Team, error) {
	db := r.getDB(ctx)
	var team models.Team
	err := db.Last(&team, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &team, nil
}

// ByUUID retrieves a team by UUID.
func (r *TeamRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Team, error) {
	db := r.getDB(ctx)
	var team models.Team
	err := db.Where("uuid = ?", uuid).Last(&team).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &team, nil
}

// ByFilter retrieves teams based on filter criteria.
func (r *TeamRepositoryImpl) ByFilter(ctx context.Context, filter models.TeamFilter, orderBy string, limit, offset int) ([]*models.Team, error) {
	db := r.getDB(ctx)
	var teams []*models.Team
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	if err := query.Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}

// Count returns the number of teams matching the filter.
func (r *TeamRepositoryImpl) Count(ctx context.Context, filter models.TeamFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	var team models.Team
	query := r.applyFilter(db.Model(&team), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any team matching the filter exists.
func (r *TeamRepositoryImpl) Exists(ctx context.Context, filter models.TeamFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *TeamRepositoryImpl) applyFilter(db *gorm.DB, filter models.TeamFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.OwnerUserID != nil {
		db = db.Where("owner_user_id = ?", *filter.OwnerUserID)
	}
	return db
}
