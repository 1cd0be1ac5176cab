package router

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/handler"
)

func TestRateLimitPerIP(t *testing.T) {
	e := echo.New()
	mw := RateLimitPerIP(5, 15*time.Minute)
	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = ip + ":51234"
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		require.NoError(t, h(c))
		return rec.Code
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do("10.0.0.1"), "attempt %d within budget", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"), "sixth attempt is rejected")

	// A different IP has its own budget.
	assert.Equal(t, http.StatusOK, do("10.0.0.2"))
}

func TestRateLimitPerIPConcurrent(t *testing.T) {
	e := echo.New()
	mw := RateLimitPerIP(5, 15*time.Minute)
	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.3:51234"
		rec := httptest.NewRecorder()
		assert.NoError(t, h(e.NewContext(req, rec)))
		return rec.Code
	}

	// First request creates the limiter; the rest hammer it concurrently.
	require.Equal(t, http.StatusOK, do())

	const requests = 7
	codes := make(chan int, requests)

	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- do()
		}()
	}
	wg.Wait()
	close(codes)

	var ok, limited int
	for code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusTooManyRequests:
			limited++
		}
	}
	assert.Equal(t, 4, ok)
	assert.Equal(t, 3, limited)
}

func TestValidatorPasswordStrength(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{"strong", "Password1!", true},
		{"no uppercase", "password1!", false},
		{"no digit", "Password!!", false},
		{"no special", "Password11", false},
		{"too short", "Pa1!", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&handler.RegisterRequest{
				Name:     "Test User",
				Email:    "test@example.com",
				Password: tt.password,
			})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
