package repository

import (
	"github.com/haitranq/prepline/internal/model"
	"gorm.io/gorm"
)

type MockTestRepository interface {
	Create(test *model.MockTest) error
	FindByID(id uint) (*model.MockTest, error)
	FindByIDWithQuestions(id uint) (*model.MockTest, error)
	FindAllActive() ([]model.MockTest, error)
	FindAllWithQuestionCount() ([]struct {
		model.MockTest
		QuestionCount int
	}, error)
}

type mockTestRepository struct {
	db *gorm.DB
}

func NewMockTestRepository(db *gorm.DB) MockTestRepository {
	return &mockTestRepository{db: db}
}

func (r *mockTestRepository) Create(test *model.MockTest) error {
	// GORM creates associated questions when test.Questions is populated
	return r.db.Create(test).Error
}

func (r *mockTestRepository) FindByID(id uint) (*model.MockTest, error) {
	var test model.MockTest
	err := r.db.First(&test, id).Error
	return &test, err
}

func (r *mockTestRepository) FindByIDWithQuestions(id uint) (*model.MockTest, error) {
	var test model.MockTest
	err := r.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("questions.order_in_test ASC")
	}).First(&test, id).Error
	return &test, err
}

func (r *mockTestRepository) FindAllActive() ([]model.MockTest, error) {
	var tests []model.MockTest
	err := r.db.Where("is_active = ?", true).Order("created_at desc").Find(&tests).Error
	return tests, err
}

func (r *mockTestRepository) FindAllWithQuestionCount() ([]struct {
	model.MockTest
	QuestionCount int
}, error) {
	var results []struct {
		model.MockTest
		QuestionCount int
	}
	err := r.db.Model(&model.MockTest{}).
		Select("mock_tests.*, (SELECT count(*) FROM questions WHERE questions.mock_test_id = mock_tests.id AND questions.deleted_at IS NULL) as question_count").
		Where("mock_tests.is_active = ?", true).
		Order("mock_tests.created_at desc").
		Find(&results).Error
	return results, err
}
