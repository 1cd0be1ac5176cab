package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "taskhub/internal/errors"
	"taskhub/internal/model"
	"taskhub/internal/response"
	"taskhub/internal/service"
)

// UserContextKey is where the auth middleware stores the resolved user.
const UserContextKey = "currentUser"

// currentUser pulls the authenticated user set by the auth middleware.
func currentUser(c echo.Context) (*model.User, error) {
	user, ok := c.Get(UserContextKey).(*model.User)
	if !ok || user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication context")
	}
	return user, nil
}

// UserHandler handles profile endpoints.
type UserHandler struct {
	userService service.UserService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UpdateProfileRequest is a partial profile update.
type UpdateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=50"`
	Email *string `json:"email" validate:"omitempty,email"`
}

// GetProfile godoc
// @Summary Get the authenticated user's profile
// @Tags user
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /user/profile [get]
func (h *UserHandler) GetProfile(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, "", echo.Map{"user": user})
}

// UpdateProfile godoc
// @Summary Update the authenticated user's profile
// @Tags user
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Fields to update"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /user/profile [put]
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Name == nil && req.Email == nil {
		return apperrors.ErrNoFields
	}

	updated, err := h.userService.UpdateProfile(c.Request().Context(), user.ID, service.ProfilePatch{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		return err
	}

	return response.OK(c, http.StatusOK, "Profile updated successfully", echo.Map{"user": updated})
}
