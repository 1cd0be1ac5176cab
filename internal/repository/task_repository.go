package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskhub/internal/model"
)

// TaskFilter narrows and orders a task listing. Status/Priority are applied
// only when non-nil; OrderBy must already be a vetted column name.
type TaskFilter struct {
	Status   *model.TaskStatus
	Priority *model.TaskPriority
	Search   string
	Offset   int
	Limit    int
	OrderBy  string
	Desc     bool
}

// TaskRepository defines persistence operations on tasks. Every lookup is
// scoped by (id, owner) so absence and foreign ownership are indistinguishable.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	FindByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*model.Task, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, filter TaskFilter) ([]model.Task, int64, error)
	Update(ctx context.Context, task *model.Task) error
	DeleteByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (int64, error)
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository builds a GORM-backed repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepository) FindByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, filter TaskFilter) ([]model.Task, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Task{}).Where("user_id = ?", ownerID)

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", *filter.Priority)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := clause(filter.OrderBy, filter.Desc)
	var tasks []model.Task
	err := query.Order(order).Limit(filter.Limit).Offset(filter.Offset).Find(&tasks).Error
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func (r *taskRepository) Update(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

// DeleteByIDAndOwner removes the task in a single owner-scoped statement and
// reports the affected row count.
func (r *taskRepository) DeleteByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&model.Task{})
	return res.RowsAffected, res.Error
}

func clause(column string, desc bool) string {
	if column == "" {
		column = "created_at"
		desc = true
	}
	if desc {
		return column + " DESC"
	}
	return column + " ASC"
}
