package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"todonotes/internal/domain"
	"todonotes/internal/repository"

	"gorm.io/gorm"
)

// Input/Output Structs (Data Transfer Objects - DTOs)

// CreateTaskRequest holds the data needed to create a new task
type CreateTaskRequest struct {
	Title string `json:"title"`
}

// UpdateTaskRequest holds the data for updating an existing task.
// Pointers distinguish a field being omitted from being set to its
// zero value (e.g. setting Done to false).
type UpdateTaskRequest struct {
	Title *string `json:"title"`
	Done  *bool   `json:"done"`
}

// TaskResponse is the standard representation of a Task returned by
// the service. CreatedAt is epoch milliseconds.
type TaskResponse struct {
	ID        uint   `json:"id"`
	Title     string `json:"title"`
	Done      bool   `json:"done"`
	CreatedAt int64  `json:"created_at"`
}

// seed rows inserted on first run so the list is never empty. The
// second one is done and created an hour earlier.
const seedHourMillis = int64(3600000)

var seedTitles = [2]string{"Sample todo 1", "Sample todo 2"}

// TaskService defines the operations for managing tasks. It contains
// the core business logic and owns title validation; nothing below it
// ever sees a blank title.
type TaskService interface {
	// Initialize creates the table when absent and seeds two sample
	// tasks when the table is empty. Idempotent; called on every start.
	Initialize(ctx context.Context) error

	// ListTasks retrieves all tasks ordered by id descending.
	ListTasks(ctx context.Context) ([]TaskResponse, error)

	// GetTaskByID retrieves a single task by its ID.
	GetTaskByID(ctx context.Context, id uint) (*TaskResponse, error)

	// CreateTask creates a new task with done=false.
	CreateTask(ctx context.Context, req CreateTaskRequest) (*TaskResponse, error)

	// CreateImportedTask creates a task carrying a completion flag from
	// an external source. Same validation as CreateTask.
	CreateImportedTask(ctx context.Context, title string, done bool) (*TaskResponse, error)

	// TitleExists reports whether a task with this exact title is
	// already stored. Used as the sync dedup oracle.
	TitleExists(ctx context.Context, title string) (bool, error)

	// UpdateTask replaces the mutable fields of one task.
	UpdateTask(ctx context.Context, id uint, req UpdateTaskRequest) (*TaskResponse, error)

	// SetTaskDone sets the completion flag only.
	SetTaskDone(ctx context.Context, id uint, done bool) (*TaskResponse, error)

	// ToggleTaskDone flips the completion flag from its current value.
	ToggleTaskDone(ctx context.Context, id uint) (*TaskResponse, error)

	// SetTaskTitle updates the title only.
	SetTaskTitle(ctx context.Context, id uint, title string) (*TaskResponse, error)

	// DeleteTask permanently removes a task. Deleting a missing id is a
	// no-op, not an error.
	DeleteTask(ctx context.Context, id uint) error
}

// taskService implements the TaskService interface on top of a
// TaskRepository (constructor injection).
type taskService struct {
	repo repository.TaskRepository
	now  func() int64
}

// NewTaskService creates a new instance of taskService.
func NewTaskService(repo repository.TaskRepository) TaskService {
	return &taskService{
		repo: repo,
		now:  func() int64 { return time.Now().UnixMilli() },
	}
}

func toResponse(task *domain.Task) *TaskResponse {
	return &TaskResponse{
		ID:        task.ID,
		Title:     task.Title,
		Done:      task.Done,
		CreatedAt: task.CreatedAt,
	}
}

// Initialize migrates the schema and seeds the table when empty.
func (s *taskService) Initialize(ctx context.Context) error {
	if err := s.repo.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate tasks table: %w", err)
	}

	count, err := s.repo.CountAll()
	if err != nil {
		return fmt.Errorf("failed to count tasks: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := s.now()
	seeds := []domain.Task{
		{Title: seedTitles[0], Done: false, CreatedAt: now},
		{Title: seedTitles[1], Done: true, CreatedAt: now - seedHourMillis},
	}
	for i := range seeds {
		if err := s.repo.Create(&seeds[i]); err != nil {
			return fmt.Errorf("failed to seed sample tasks: %w", err)
		}
	}
	log.Printf("Seeded %d sample tasks", len(seeds))
	return nil
}

func (s *taskService) ListTasks(ctx context.Context) ([]TaskResponse, error) {
	tasks, err := s.repo.GetAll()
	if err != nil {
		log.Printf("Error fetching all tasks from repository: %v", err)
		return nil, errors.New("failed to retrieve tasks")
	}

	responses := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		responses = append(responses, *toResponse(&tasks[i]))
	}
	return responses, nil
}

func (s *taskService) GetTaskByID(ctx context.Context, id uint) (*TaskResponse, error) {
	task, err := s.repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{ID: id}
		}
		log.Printf("Error fetching task %d from repository: %v", id, err)
		return nil, errors.New("failed to retrieve task")
	}
	return toResponse(task), nil
}

func (s *taskService) CreateTask(ctx context.Context, req CreateTaskRequest) (*TaskResponse, error) {
	return s.create(req.Title, false)
}

func (s *taskService) CreateImportedTask(ctx context.Context, title string, done bool) (*TaskResponse, error) {
	return s.create(title, done)
}

func (s *taskService) create(title string, done bool) (*TaskResponse, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.ErrBlankTitle()
	}

	newTask := &domain.Task{
		Title:     title,
		Done:      done,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(newTask); err != nil {
		log.Printf("Error creating task in repository: %v", err)
		return nil, errors.New("failed to create task")
	}
	return toResponse(newTask), nil
}

func (s *taskService) TitleExists(ctx context.Context, title string) (bool, error) {
	exists, err := s.repo.ExistsByTitle(title)
	if err != nil {
		log.Printf("Error checking title existence: %v", err)
		return false, errors.New("failed to check title existence")
	}
	return exists, nil
}

func (s *taskService) UpdateTask(ctx context.Context, id uint, req UpdateTaskRequest) (*TaskResponse, error) {
	existing, err := s.repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{ID: id}
		}
		log.Printf("Error fetching task %d for update: %v", id, err)
		return nil, errors.New("failed to retrieve task for update")
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, domain.ErrBlankTitle()
		}
		existing.Title = title
	}
	if req.Done != nil {
		existing.Done = *req.Done
	}

	if err := s.repo.Update(existing); err != nil {
		log.Printf("Error updating task %d in repository: %v", id, err)
		return nil, errors.New("failed to update task")
	}
	return toResponse(existing), nil
}

func (s *taskService) SetTaskDone(ctx context.Context, id uint, done bool) (*TaskResponse, error) {
	rows, err := s.repo.UpdateFields(id, map[string]any{"done": done})
	if err != nil {
		log.Printf("Error setting done flag for task %d: %v", id, err)
		return nil, errors.New("failed to update task")
	}
	if rows == 0 {
		return nil, &domain.NotFoundError{ID: id}
	}
	return s.GetTaskByID(ctx, id)
}

func (s *taskService) ToggleTaskDone(ctx context.Context, id uint) (*TaskResponse, error) {
	existing, err := s.repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &domain.NotFoundError{ID: id}
		}
		log.Printf("Error fetching task %d for toggle: %v", id, err)
		return nil, errors.New("failed to retrieve task for toggle")
	}
	return s.SetTaskDone(ctx, id, !existing.Done)
}

func (s *taskService) SetTaskTitle(ctx context.Context, id uint, title string) (*TaskResponse, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.ErrBlankTitle()
	}

	rows, err := s.repo.UpdateFields(id, map[string]any{"title": title})
	if err != nil {
		log.Printf("Error setting title for task %d: %v", id, err)
		return nil, errors.New("failed to update task")
	}
	if rows == 0 {
		return nil, &domain.NotFoundError{ID: id}
	}
	return s.GetTaskByID(ctx, id)
}

func (s *taskService) DeleteTask(ctx context.Context, id uint) error {
	rows, err := s.repo.Delete(id)
	if err != nil {
		log.Printf("Error deleting task %d from repository: %v", id, err)
		return errors.New("failed to delete task")
	}
	if rows == 0 {
		// Idempotent delete: the id is already gone.
		log.Printf("Delete of task %d affected no rows", id)
	}
	return nil
}
