package repository

import (
	"time"

	"github.com/haitranq/prepline/internal/model"
	"gorm.io/gorm"
)

type AttemptRepository interface {
	Create(attempt *model.StudentAttempt) error
	FindByID(id uint) (*model.StudentAttempt, error)
	FindByIDWithTest(id uint) (*model.StudentAttempt, error)
	FindByIDWithDetails(id uint) (*model.StudentAttempt, error)
	FindInProgressByUserAndTest(userID, mockTestID uint) (*model.StudentAttempt, error)
	FindAllByTestAndUser(mockTestID uint, userID *uint) ([]model.StudentAttempt, error)
	Complete(id uint, totalScore, percentageScore int, completedAt time.Time) (bool, error)
	UpdateTotals(id uint, totalScore, percentageScore int) error
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Create(attempt *model.StudentAttempt) error {
	return r.db.Create(attempt).Error
}

func (r *attemptRepository) FindByID(id uint) (*model.StudentAttempt, error) {
	var attempt model.StudentAttempt
	err := r.db.First(&attempt, id).Error
	return &attempt, err
}

func (r *attemptRepository) FindByIDWithTest(id uint) (*model.StudentAttempt, error) {
	var attempt model.StudentAttempt
	err := r.db.Preload("MockTest").First(&attempt, id).Error
	return &attempt, err
}

func (r *attemptRepository) FindByIDWithDetails(id uint) (*model.StudentAttempt, error) {
	var attempt model.StudentAttempt
	err := r.db.
		Preload("MockTest").
		Preload("Responses.Question").
		First(&attempt, id).Error
	return &attempt, err
}

func (r *attemptRepository) FindInProgressByUserAndTest(userID, mockTestID uint) (*model.StudentAttempt, error) {
	var attempt model.StudentAttempt
	err := r.db.
		Where("user_id = ? AND mock_test_id = ? AND status = ?", userID, mockTestID, model.AttemptInProgress).
		Order("started_at desc").
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) FindAllByTestAndUser(mockTestID uint, userID *uint) ([]model.StudentAttempt, error) {
	var attempts []model.StudentAttempt
	query := r.db.Where("mock_test_id = ?", mockTestID)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	err := query.Order("started_at DESC").Find(&attempts).Error
	return attempts, err
}

// Complete performs the one-time in_progress -> completed transition as a
// single guarded update. The status predicate makes the transition happen at
// most once even if two submissions race across processes; the returned bool
// reports whether this call won. The stored totals are whatever the
// coordinator computed - they are not re-derived here.
func (r *attemptRepository) Complete(id uint, totalScore, percentageScore int, completedAt time.Time) (bool, error) {
	res := r.db.Model(&model.StudentAttempt{}).
		Where("id = ? AND status = ?", id, model.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":           model.AttemptCompleted,
			"completed_at":     completedAt,
			"total_score":      totalScore,
			"percentage_score": percentageScore,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateTotals rewrites the aggregate after a later grading pass assigned
// scores to essay/speaking responses. It does not touch status or completed_at.
func (r *attemptRepository) UpdateTotals(id uint, totalScore, percentageScore int) error {
	return r.db.Model(&model.StudentAttempt{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_score":      totalScore,
			"percentage_score": percentageScore,
		}).Error
}
