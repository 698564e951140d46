package repository

import (
	"todonotes/internal/domain"

	"gorm.io/gorm"
)

// TaskRepository defines the interface for task data operations. Every
// mutating method is a single-record statement; there is no bulk
// mutation. Ordering of GetAll is id descending, newest first.
type TaskRepository interface {
	Migrate() error
	Create(task *domain.Task) error
	FindByID(id uint) (*domain.Task, error)
	ExistsByTitle(title string) (bool, error)
	GetAll() ([]domain.Task, error)
	CountAll() (int64, error)
	Update(task *domain.Task) error
	UpdateFields(id uint, fields map[string]any) (int64, error)
	Delete(id uint) (int64, error)
}

// gormTaskRepository implements TaskRepository using GORM
type gormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GORM task repository
func NewGormTaskRepository(db *gorm.DB) TaskRepository {
	return &gormTaskRepository{db: db}
}

// Migrate creates the todos table when absent. Safe to run on every
// process start.
func (r *gormTaskRepository) Migrate() error {
	return r.db.AutoMigrate(&domain.Task{})
}

// Create inserts a new task; GORM populates the ID after the insert.
func (r *gormTaskRepository) Create(task *domain.Task) error {
	result := r.db.Create(task)
	return result.Error
}

// FindByID retrieves a task by its primary key.
func (r *gormTaskRepository) FindByID(id uint) (*domain.Task, error) {
	var task domain.Task
	result := r.db.First(&task, id)
	if result.Error != nil {
		// Callers translate gorm.ErrRecordNotFound themselves.
		return nil, result.Error
	}
	return &task, nil
}

// ExistsByTitle reports whether a task with this exact title exists.
// Matching is case-sensitive at the storage level.
func (r *gormTaskRepository) ExistsByTitle(title string) (bool, error) {
	var count int64
	result := r.db.Model(&domain.Task{}).Where("title = ?", title).Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// GetAll retrieves all tasks, most recently created first.
func (r *gormTaskRepository) GetAll() ([]domain.Task, error) {
	var tasks []domain.Task
	result := r.db.Order("id DESC").Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

// CountAll returns the number of stored tasks.
func (r *gormTaskRepository) CountAll() (int64, error) {
	var count int64
	result := r.db.Model(&domain.Task{}).Count(&count)
	return count, result.Error
}

// Update saves all fields of an existing task.
func (r *gormTaskRepository) Update(task *domain.Task) error {
	result := r.db.Save(task)
	return result.Error
}

// UpdateFields patches the given columns of one task and reports how
// many rows matched, so callers can detect a missing id.
func (r *gormTaskRepository) UpdateFields(id uint, fields map[string]any) (int64, error) {
	result := r.db.Model(&domain.Task{}).Where("id = ?", id).Updates(fields)
	return result.RowsAffected, result.Error
}

// Delete permanently removes a task. The model has no DeletedAt, so
// this is a hard DELETE; deleting a missing id affects zero rows and
// is not an error.
func (r *gormTaskRepository) Delete(id uint) (int64, error) {
	result := r.db.Delete(&domain.Task{}, id)
	return result.RowsAffected, result.Error
}
