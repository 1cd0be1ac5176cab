package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "taskhub/internal/errors"
	"taskhub/internal/model"
	"taskhub/internal/repository"
)

// MockTaskRepository is a mock implementation of TaskRepository.
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, task *model.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) FindByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*model.Task, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockTaskRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, filter repository.TaskFilter) ([]model.Task, int64, error) {
	args := m.Called(ctx, ownerID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.Task), args.Get(1).(int64), args.Error(2)
}

func (m *MockTaskRepository) Update(ctx context.Context, task *model.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) DeleteByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, id, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

func TestTaskService_CreateDefaults(t *testing.T) {
	tests := []struct {
		name             string
		status           string
		priority         string
		expectedStatus   model.TaskStatus
		expectedPriority model.TaskPriority
	}{
		{"omitted values default", "", "", model.StatusPending, model.PriorityMedium},
		{"valid values pass through", "in-progress", "high", model.StatusInProgress, model.PriorityHigh},
		{"unrecognized values coerce to defaults", "urgent", "critical", model.StatusPending, model.PriorityMedium},
		{"mixed", "completed", "nonsense", model.StatusCompleted, model.PriorityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ownerID := uuid.New()
			mockRepo := new(MockTaskRepository)
			mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Task")).Return(nil)

			svc := NewTaskService(mockRepo)
			task, err := svc.Create(context.Background(), ownerID, CreateTaskInput{
				Title:    "A",
				Status:   tt.status,
				Priority: tt.priority,
			})

			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, task.Status)
			assert.Equal(t, tt.expectedPriority, task.Priority)
			assert.Equal(t, ownerID, task.UserID)
		})
	}
}

func TestTaskService_ListClamps(t *testing.T) {
	tests := []struct {
		name           string
		page, limit    int
		expectedOffset int
		expectedLimit  int
		expectedPage   int
	}{
		{"defaults", 0, 0, 0, 10, 1},
		{"page floored at 1", -3, 10, 0, 10, 1},
		{"limit clamped to 50", 1, 200, 0, 50, 1},
		{"negative limit floored to 1", 2, -1, 1, 1, 2},
		{"offset follows page", 3, 5, 10, 5, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ownerID := uuid.New()
			mockRepo := new(MockTaskRepository)
			var captured repository.TaskFilter
			mockRepo.On("ListByOwner", mock.Anything, ownerID, mock.AnythingOfType("repository.TaskFilter")).
				Run(func(args mock.Arguments) {
					captured = args.Get(2).(repository.TaskFilter)
				}).Return([]model.Task{}, int64(0), nil)

			svc := NewTaskService(mockRepo)
			_, pagination, err := svc.List(context.Background(), ownerID, ListTasksInput{Page: tt.page, Limit: tt.limit})

			require.NoError(t, err)
			assert.Equal(t, tt.expectedOffset, captured.Offset)
			assert.Equal(t, tt.expectedLimit, captured.Limit)
			assert.Equal(t, tt.expectedPage, pagination.Page)
			assert.Equal(t, tt.expectedLimit, pagination.Limit)
		})
	}
}

func TestTaskService_ListFilters(t *testing.T) {
	ownerID := uuid.New()
	mockRepo := new(MockTaskRepository)
	var captured repository.TaskFilter
	mockRepo.On("ListByOwner", mock.Anything, ownerID, mock.AnythingOfType("repository.TaskFilter")).
		Run(func(args mock.Arguments) {
			captured = args.Get(2).(repository.TaskFilter)
		}).Return([]model.Task{}, int64(0), nil)

	svc := NewTaskService(mockRepo)
	_, _, err := svc.List(context.Background(), ownerID, ListTasksInput{
		Status:   "pending",
		Priority: "bogus",
		Search:   "  report  ",
		Sort:     "-title",
	})
	require.NoError(t, err)

	require.NotNil(t, captured.Status)
	assert.Equal(t, model.StatusPending, *captured.Status)
	assert.Nil(t, captured.Priority, "unrecognized priority filter is dropped")
	assert.Equal(t, "report", captured.Search)
	assert.Equal(t, "title", captured.OrderBy)
	assert.True(t, captured.Desc)
}

func TestTaskService_PaginationMetadata(t *testing.T) {
	ownerID := uuid.New()
	mockRepo := new(MockTaskRepository)
	mockRepo.On("ListByOwner", mock.Anything, ownerID, mock.AnythingOfType("repository.TaskFilter")).
		Return(make([]model.Task, 5), int64(12), nil)

	svc := NewTaskService(mockRepo)
	tasks, pagination, err := svc.List(context.Background(), ownerID, ListTasksInput{Page: 2, Limit: 5})

	require.NoError(t, err)
	assert.Len(t, tasks, 5)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, int64(12), pagination.Total)
	assert.Equal(t, 3, pagination.TotalPages)
	assert.True(t, pagination.HasNextPage)
	assert.True(t, pagination.HasPrevPage)
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name        string
		page, limit int
		total       int64
		totalPages  int
		hasNext     bool
		hasPrev     bool
	}{
		{"empty", 1, 10, 0, 0, false, false},
		{"single page", 1, 10, 7, 1, false, false},
		{"exact boundary", 2, 5, 10, 2, false, true},
		{"middle page", 2, 5, 12, 3, true, true},
		{"last page", 3, 5, 12, 3, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := paginate(tt.page, tt.limit, tt.total)
			assert.Equal(t, tt.totalPages, p.TotalPages)
			assert.Equal(t, tt.hasNext, p.HasNextPage)
			assert.Equal(t, tt.hasPrev, p.HasPrevPage)
		})
	}
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		sort   string
		column string
		desc   bool
	}{
		{"", "created_at", true},
		{"createdAt", "created_at", false},
		{"-createdAt", "created_at", true},
		{"updatedAt", "updated_at", false},
		{"-title", "title", true},
		{"priority", "priority", false},
		{"bogus", "created_at", true},
		{"-user_id", "created_at", true},
	}

	for _, tt := range tests {
		t.Run(tt.sort, func(t *testing.T) {
			column, desc := parseSort(tt.sort)
			assert.Equal(t, tt.column, column)
			assert.Equal(t, tt.desc, desc)
		})
	}
}

func TestTaskService_GetScopedByOwner(t *testing.T) {
	ownerID := uuid.New()
	taskID := uuid.New()

	mockRepo := new(MockTaskRepository)
	mockRepo.On("FindByIDAndOwner", mock.Anything, taskID, ownerID).
		Return(nil, gorm.ErrRecordNotFound)

	svc := NewTaskService(mockRepo)
	_, err := svc.Get(context.Background(), ownerID, taskID)

	// Foreign-owned and missing tasks are indistinguishable.
	assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)
}

func TestTaskService_Update(t *testing.T) {
	ownerID := uuid.New()
	taskID := uuid.New()

	strPtr := func(s string) *string { return &s }

	t.Run("missing task", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("FindByIDAndOwner", mock.Anything, taskID, ownerID).
			Return(nil, gorm.ErrRecordNotFound)

		svc := NewTaskService(mockRepo)
		_, err := svc.Update(context.Background(), ownerID, taskID, UpdateTaskInput{Title: strPtr("X")})
		assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)
	})

	t.Run("empty patch", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("FindByIDAndOwner", mock.Anything, taskID, ownerID).
			Return(&model.Task{ID: taskID, UserID: ownerID}, nil)

		svc := NewTaskService(mockRepo)
		_, err := svc.Update(context.Background(), ownerID, taskID, UpdateTaskInput{})
		assert.ErrorIs(t, err, apperrors.ErrNoFields)
		mockRepo.AssertNotCalled(t, "Update")
	})

	t.Run("only unrecognized enum values counts as empty", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("FindByIDAndOwner", mock.Anything, taskID, ownerID).
			Return(&model.Task{ID: taskID, UserID: ownerID, Status: model.StatusPending}, nil)

		svc := NewTaskService(mockRepo)
		_, err := svc.Update(context.Background(), ownerID, taskID, UpdateTaskInput{
			Status:   strPtr("urgent"),
			Priority: strPtr("critical"),
		})
		assert.ErrorIs(t, err, apperrors.ErrNoFields)
		mockRepo.AssertNotCalled(t, "Update")
	})

	t.Run("partial update applies supplied fields only", func(t *testing.T) {
		existing := &model.Task{
			ID:       taskID,
			UserID:   ownerID,
			Title:    "old title",
			Status:   model.StatusPending,
			Priority: model.PriorityMedium,
		}
		mockRepo := new(MockTaskRepository)
		mockRepo.On("FindByIDAndOwner", mock.Anything, taskID, ownerID).Return(existing, nil)
		mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*model.Task")).Return(nil)

		svc := NewTaskService(mockRepo)
		task, err := svc.Update(context.Background(), ownerID, taskID, UpdateTaskInput{
			Title:  strPtr("new title"),
			Status: strPtr("completed"),
		})

		require.NoError(t, err)
		assert.Equal(t, "new title", task.Title)
		assert.Equal(t, model.StatusCompleted, task.Status)
		assert.Equal(t, model.PriorityMedium, task.Priority)
	})

	t.Run("unrecognized enum alongside a real change is ignored", func(t *testing.T) {
		existing := &model.Task{ID: taskID, UserID: ownerID, Status: model.StatusInProgress}
		mockRepo := new(MockTaskRepository)
		mockRepo.On("FindByIDAndOwner", mock.Anything, taskID, ownerID).Return(existing, nil)
		mockRepo.On("Update", mock.Anything, mock.AnythingOfType("*model.Task")).Return(nil)

		svc := NewTaskService(mockRepo)
		task, err := svc.Update(context.Background(), ownerID, taskID, UpdateTaskInput{
			Title:  strPtr("kept"),
			Status: strPtr("bogus"),
		})

		require.NoError(t, err)
		assert.Equal(t, model.StatusInProgress, task.Status, "unknown status leaves the field unchanged")
	})
}

func TestTaskService_Delete(t *testing.T) {
	ownerID := uuid.New()
	taskID := uuid.New()

	t.Run("deletes owned task", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("DeleteByIDAndOwner", mock.Anything, taskID, ownerID).Return(int64(1), nil)

		svc := NewTaskService(mockRepo)
		assert.NoError(t, svc.Delete(context.Background(), ownerID, taskID))
	})

	t.Run("missing or foreign task", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("DeleteByIDAndOwner", mock.Anything, taskID, ownerID).Return(int64(0), nil)

		svc := NewTaskService(mockRepo)
		assert.ErrorIs(t, svc.Delete(context.Background(), ownerID, taskID), apperrors.ErrTaskNotFound)
	})
}
