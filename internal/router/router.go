package router

import (
	"net/http"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"taskhub/internal/auth"
	"taskhub/internal/config"
	"taskhub/internal/handler"
	"taskhub/internal/service"
)

const (
	authRateLimit  = 5
	authRateWindow = 15 * time.Minute
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	log *zap.Logger,
	tokens *auth.TokenService,
	userService service.UserService,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	taskHandler *handler.TaskHandler,
	healthHandler *handler.HealthHandler,
) {
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(RequestLogger(log))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.ClientURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler(log)

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	api.GET("/health", healthHandler.Health)

	// Public auth routes; register and login share a per-IP budget.
	authLimiter := RateLimitPerIP(authRateLimit, authRateWindow)
	api.POST("/auth/register", authHandler.Register, authLimiter)
	api.POST("/auth/login", authHandler.Login, authLimiter)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)

	// Secured routes require a bearer access token and a live user.
	secured := api.Group("", BearerAuth(tokens), LoadUser(userService))

	secured.GET("/user/profile", userHandler.GetProfile)
	secured.PUT("/user/profile", userHandler.UpdateProfile)

	secured.POST("/tasks", taskHandler.CreateTask)
	secured.GET("/tasks", taskHandler.ListTasks)
	secured.GET("/tasks/:id", taskHandler.GetTask)
	secured.PUT("/tasks/:id", taskHandler.UpdateTask)
	secured.DELETE("/tasks/:id", taskHandler.DeleteTask)
}

// RequestLogger emits one structured line per request.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// NewValidator builds the Echo validator with the password-strength rule.
func NewValidator() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		pw := fl.Field().String()
		return upperRe.MatchString(pw) && digitRe.MatchString(pw) && specialRe.MatchString(pw)
	})
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
