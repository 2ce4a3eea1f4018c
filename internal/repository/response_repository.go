package repository

import (
	"time"

	"github.com/haitranq/prepline/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ResponseRepository interface {
	FindByAttemptID(attemptID uint) ([]model.StudentResponse, error)
	FindByAttemptAndQuestion(attemptID, questionID uint) (*model.StudentResponse, error)
	Create(response *model.StudentResponse) error
	UpdateValue(attemptID, questionID uint, value datatypes.JSON) (*model.StudentResponse, error)
	UpdateGrade(id uint, score int, feedback, gradedBy string, gradedAt time.Time) error
}

type responseRepository struct {
	db *gorm.DB
}

func NewResponseRepository(db *gorm.DB) ResponseRepository {
	return &responseRepository{db: db}
}

func (r *responseRepository) FindByAttemptID(attemptID uint) ([]model.StudentResponse, error) {
	var responses []model.StudentResponse
	err := r.db.Where("attempt_id = ?", attemptID).Find(&responses).Error
	return responses, err
}

func (r *responseRepository) FindByAttemptAndQuestion(attemptID, questionID uint) (*model.StudentResponse, error) {
	var response model.StudentResponse
	err := r.db.Where("attempt_id = ? AND question_id = ?", attemptID, questionID).First(&response).Error
	if err != nil {
		return nil, err
	}
	return &response, nil
}

func (r *responseRepository) Create(response *model.StudentResponse) error {
	return r.db.Create(response).Error
}

func (r *responseRepository) UpdateValue(attemptID, questionID uint, value datatypes.JSON) (*model.StudentResponse, error) {
	res := r.db.Model(&model.StudentResponse{}).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		Update("response", value)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByAttemptAndQuestion(attemptID, questionID)
}

func (r *responseRepository) UpdateGrade(id uint, score int, feedback, gradedBy string, gradedAt time.Time) error {
	return r.db.Model(&model.StudentResponse{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"score":     score,
			"feedback":  feedback,
			"graded_by": gradedBy,
			"graded_at": gradedAt,
		}).Error
}
