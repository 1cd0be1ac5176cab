package client

import (
	"context"
	"net/http"
	"time"
)

// User mirrors the server's user representation.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Task mirrors the server's task representation.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
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

// Session is the result of a successful register or login.
type Session struct {
	User        User   `json:"user"`
	AccessToken string `json:"accessToken"`
}

// CreateTaskInput is the create payload; empty status/priority take server
// defaults.
type CreateTaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

// UpdateTaskInput is a partial update; nil fields stay unchanged.
type UpdateTaskInput struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty"`
}

// ProfilePatch is a partial profile update.
type ProfilePatch struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// ListTasksOptions narrows and pages a task listing.
type ListTasksOptions struct {
	Status   string
	Priority string
	Search   string
	Page     int
	Limit    int
	Sort     string
}

// TaskPage is one page of tasks plus its pagination metadata.
type TaskPage struct {
	Tasks      []Task     `json:"tasks"`
	Pagination Pagination `json:"pagination"`
}

// Register creates an account and stores the returned access token.
func (c *Client) Register(ctx context.Context, name, email, password string) (*Session, error) {
	body := map[string]string{"name": name, "email": email, "password": password}
	var session Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", body, &session); err != nil {
		return nil, err
	}
	c.storage.Store(session.AccessToken)
	return &session, nil
}

// Login authenticates and stores the returned access token.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	var session Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &session); err != nil {
		return nil, err
	}
	c.storage.Store(session.AccessToken)
	return &session, nil
}

// Logout revokes the server session and clears local state.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.storage.Clear()
	return err
}

// Profile fetches the authenticated user's profile.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/user/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// UpdateProfile applies a partial profile update.
func (c *Client) UpdateProfile(ctx context.Context, patch ProfilePatch) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/user/profile", patch, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// CreateTask creates a task for the authenticated user.
func (c *Client) CreateTask(ctx context.Context, in CreateTaskInput) (*Task, error) {
	var out struct {
		Task Task `json:"task"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/tasks", in, &out); err != nil {
		return nil, err
	}
	return &out.Task, nil
}

// ListTasks fetches one page of the user's tasks.
func (c *Client) ListTasks(ctx context.Context, opts ListTasksOptions) (*TaskPage, error) {
	var page TaskPage
	if err := c.do(ctx, http.MethodGet, "/api/tasks"+listQuery(opts), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetTask fetches a single task by id.
func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	var out struct {
		Task Task `json:"task"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out.Task, nil
}

// UpdateTask applies a partial update to a task.
func (c *Client) UpdateTask(ctx context.Context, id string, in UpdateTaskInput) (*Task, error) {
	var out struct {
		Task Task `json:"task"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/tasks/"+id, in, &out); err != nil {
		return nil, err
	}
	return &out.Task, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+id, nil, nil)
}
