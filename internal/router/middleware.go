package router

import (
	"errors"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"taskhub/internal/auth"
	"taskhub/internal/handler"
	"taskhub/internal/response"
	"taskhub/internal/service"
)

// BearerAuth validates the Authorization bearer token against the access
// secret and stores the verified claims in the request context.
func BearerAuth(tokens *auth.TokenService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			claims, err := tokens.VerifyAccessToken(token)
			if err != nil {
				return nil, err
			}
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			switch {
			case errors.Is(err, echojwt.ErrJWTMissing):
				return echo.NewHTTPError(http.StatusUnauthorized, "Access denied. No token provided.")
			case errors.Is(err, auth.ErrTokenExpired):
				return echo.NewHTTPError(http.StatusUnauthorized, "Token expired. Please refresh your token.")
			default:
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token.")
			}
		},
	})
}

// LoadUser resolves the token's user and attaches it to the context. A token
// for a user that no longer exists is rejected.
func LoadUser(users service.UserService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get("user").(*auth.Claims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token.")
			}

			user, err := users.GetByID(c.Request().Context(), claims.UserID)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Access denied. User not found.")
			}

			c.Set(handler.UserContextKey, user)
			return next(c)
		}
	}
}

// RateLimitPerIP caps attempts per client IP to limit tokens refilling over
// window. Idle entries expire out of the LRU after one window.
func RateLimitPerIP(limit int, window time.Duration) echo.MiddlewareFunc {
	visitors := lru.NewLRU[string, *rate.Limiter](4096, nil, window)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			limiter, ok := visitors.Get(ip)
			if !ok {
				limiter = rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)
				visitors.Add(ip, limiter)
			}

			if !limiter.Allow() {
				return response.Fail(c, http.StatusTooManyRequests,
					"Too many attempts. Please try again after 15 minutes.", nil)
			}
			return next(c)
		}
	}
}
