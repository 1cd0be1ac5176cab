package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "taskhub/internal/errors"
	"taskhub/internal/response"
	"taskhub/internal/service"
)

// TaskHandler handles task CRUD and listing endpoints.
type TaskHandler struct {
	taskService service.TaskService
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(taskService service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// CreateTaskRequest is the create payload. Status and priority are free-form
// strings; unrecognized values coerce to the defaults.
type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
}

// UpdateTaskRequest is a partial update; absent fields stay unchanged.
type UpdateTaskRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
}

// CreateTask godoc
// @Summary Create a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTaskRequest true "Task data"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	task, err := h.taskService.Create(c.Request().Context(), user.ID, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}

	return response.OK(c, http.StatusCreated, "Task created successfully", echo.Map{"task": task})
}

// ListTasks godoc
// @Summary List the authenticated user's tasks
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Param priority query string false "Filter by priority"
// @Param search query string false "Substring match on title or description"
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 10, max 50)"
// @Param sort query string false "Sort field, '-' prefix for descending"
// @Success 200 {object} response.Envelope
// @Router /tasks [get]
func (h *TaskHandler) ListTasks(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	tasks, pagination, err := h.taskService.List(c.Request().Context(), user.ID, service.ListTasksInput{
		Status:   c.QueryParam("status"),
		Priority: c.QueryParam("priority"),
		Search:   c.QueryParam("search"),
		Page:     page,
		Limit:    limit,
		Sort:     c.QueryParam("sort"),
	})
	if err != nil {
		return err
	}

	return response.OK(c, http.StatusOK, "", echo.Map{
		"tasks":      tasks,
		"pagination": pagination,
	})
}

// GetTask godoc
// @Summary Get a task by id
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID (UUID)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tasks/{id} [get]
func (h *TaskHandler) GetTask(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := taskID(c)
	if err != nil {
		return err
	}

	task, err := h.taskService.Get(c.Request().Context(), user.ID, id)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, "", echo.Map{"task": task})
}

// UpdateTask godoc
// @Summary Update a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID (UUID)"
// @Param request body UpdateTaskRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tasks/{id} [put]
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := taskID(c)
	if err != nil {
		return err
	}

	var req UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	task, err := h.taskService.Update(c.Request().Context(), user.ID, id, service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}

	return response.OK(c, http.StatusOK, "Task updated successfully", echo.Map{"task": task})
}

// DeleteTask godoc
// @Summary Delete a task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID (UUID)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := taskID(c)
	if err != nil {
		return err
	}

	if err := h.taskService.Delete(c.Request().Context(), user.ID, id); err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, "Task deleted successfully", nil)
}

func taskID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperrors.NewValidationError([]apperrors.FieldError{
			{Field: "id", Message: "Invalid task ID"},
		})
	}
	return id, nil
}
