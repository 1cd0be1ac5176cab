package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "taskhub/internal/errors"
	"taskhub/internal/model"
	"taskhub/internal/repository"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	minLimit     = 1
	maxLimit     = 50
)

// sortColumns whitelists sortable fields and maps them to columns. Anything
// else falls back to created_at descending.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
	"status":    "status",
	"priority":  "priority",
}

// CreateTaskInput carries the raw create payload. Unrecognized status or
// priority strings coerce to the defaults rather than failing.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
}

// UpdateTaskInput is a partial update; nil fields are left unchanged.
// Unrecognized status or priority values are ignored, not coerced.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
}

// ListTasksInput carries raw, unclamped query parameters.
type ListTasksInput struct {
	Status   string
	Priority string
	Search   string
	Page     int
	Limit    int
	Sort     string
}

// Pagination describes the window a listing returned.
type Pagination struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// TaskService builds filtered, paginated, sorted views over a user's tasks
// and performs ownership-scoped mutations.
type TaskService interface {
	Create(ctx context.Context, ownerID uuid.UUID, in CreateTaskInput) (*model.Task, error)
	List(ctx context.Context, ownerID uuid.UUID, in ListTasksInput) ([]model.Task, *Pagination, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*model.Task, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, in UpdateTaskInput) (*model.Task, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

type taskService struct {
	tasks repository.TaskRepository
}

// NewTaskService creates a new task service.
func NewTaskService(tasks repository.TaskRepository) TaskService {
	return &taskService{tasks: tasks}
}

func (s *taskService) Create(ctx context.Context, ownerID uuid.UUID, in CreateTaskInput) (*model.Task, error) {
	status := model.StatusPending
	if parsed, ok := model.ParseStatus(in.Status); ok {
		status = parsed
	}
	priority := model.PriorityMedium
	if parsed, ok := model.ParsePriority(in.Priority); ok {
		priority = parsed
	}

	task := &model.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		Priority:    priority,
		UserID:      ownerID,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

func (s *taskService) List(ctx context.Context, ownerID uuid.UUID, in ListTasksInput) ([]model.Task, *Pagination, error) {
	page := in.Page
	if page < 1 {
		page = defaultPage
	}
	// A zero limit means the caller sent none; a negative limit was sent
	// explicitly and clamps to the floor instead of the default.
	limit := in.Limit
	switch {
	case limit == 0:
		limit = defaultLimit
	case limit < minLimit:
		limit = minLimit
	case limit > maxLimit:
		limit = maxLimit
	}

	filter := repository.TaskFilter{
		Search: strings.TrimSpace(in.Search),
		Offset: (page - 1) * limit,
		Limit:  limit,
	}
	// Unrecognized filter values match nothing special: they are dropped.
	if status, ok := model.ParseStatus(in.Status); ok {
		filter.Status = &status
	}
	if priority, ok := model.ParsePriority(in.Priority); ok {
		filter.Priority = &priority
	}
	filter.OrderBy, filter.Desc = parseSort(in.Sort)

	tasks, total, err := s.tasks.ListByOwner(ctx, ownerID, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, paginate(page, limit, total), nil
}

func (s *taskService) Get(ctx context.Context, ownerID, id uuid.UUID) (*model.Task, error) {
	return s.resolve(ctx, ownerID, id)
}

func (s *taskService) Update(ctx context.Context, ownerID, id uuid.UUID, in UpdateTaskInput) (*model.Task, error) {
	task, err := s.resolve(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	changed := false
	if in.Title != nil {
		task.Title = *in.Title
		changed = true
	}
	if in.Description != nil {
		task.Description = *in.Description
		changed = true
	}
	if in.Status != nil {
		if status, ok := model.ParseStatus(*in.Status); ok {
			task.Status = status
			changed = true
		}
	}
	if in.Priority != nil {
		if priority, ok := model.ParsePriority(*in.Priority); ok {
			task.Priority = priority
			changed = true
		}
	}
	if !changed {
		return nil, apperrors.ErrNoFields
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	rows, err := s.tasks.DeleteByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if rows == 0 {
		return apperrors.ErrTaskNotFound
	}
	return nil
}

// resolve looks the task up scoped by (id, owner). A missing task and a task
// owned by someone else are the same error.
func (s *taskService) resolve(ctx context.Context, ownerID, id uuid.UUID) (*model.Task, error) {
	task, err := s.tasks.FindByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTaskNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return task, nil
}

func parseSort(sort string) (column string, desc bool) {
	if sort == "" {
		return "created_at", true
	}
	field := sort
	if strings.HasPrefix(sort, "-") {
		field = sort[1:]
		desc = true
	}
	col, ok := sortColumns[field]
	if !ok {
		return "created_at", true
	}
	return col, desc
}

func paginate(page, limit int, total int64) *Pagination {
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return &Pagination{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}
