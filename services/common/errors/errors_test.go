package errors_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	apperrors "checkout-backend/services/common/errors"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(apperrors.ErrorMiddleware())
	return router
}

func TestErrorMiddlewareMapsApplicationErrors(t *testing.T) {
	router := setupRouter()
	router.GET("/carts", func(c *gin.Context) {
		c.Error(apperrors.ErrCartNotFound)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/carts", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"code":404,"message":"Cart not found"}`, w.Body.String())
}

func TestErrorMiddlewareKeepsWrappedCode(t *testing.T) {
	router := setupRouter()
	router.GET("/orders", func(c *gin.Context) {
		c.Error(apperrors.ErrInvalidTransition.WithCause(errors.New("SHIPPED -> CANCELLED")))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/orders", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	// The cause stays server-side; only the stable message goes out.
	assert.NotContains(t, w.Body.String(), "SHIPPED")
}

func TestErrorMiddlewareHidesUnexpectedErrors(t *testing.T) {
	router := setupRouter()
	router.GET("/boom", func(c *gin.Context) {
		c.Error(errors.New("pq: connection refused"))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/boom", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestErrorMiddlewarePassesCleanRequests(t *testing.T) {
	router := setupRouter()
	router.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ok", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSentinelMatchingSurvivesWithCause(t *testing.T) {
	err := apperrors.ErrCheckoutInFlight.WithCause(errors.New("marker tx-1 live"))
	assert.True(t, errors.Is(err, apperrors.ErrCheckoutInFlight))
	assert.False(t, errors.Is(err, apperrors.ErrCartNotFound))
}
