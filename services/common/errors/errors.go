package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithCause copies the error with a wrapped cause attached.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Err: err}
}

// Is matches application errors by code and message, so copies made by
// WithCause still satisfy errors.Is against the sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code && t.Message == e.Message
}

// Common error types
var (
	ErrBadRequest     = New(http.StatusBadRequest, "Bad request", nil)
	ErrUnauthorized   = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrNotFound       = New(http.StatusNotFound, "Not found", nil)
	ErrInternalServer = New(http.StatusInternalServerError, "Internal server error", nil)
)

// Checkout saga error types. Validation errors are rejected synchronously
// before any event is emitted, so no saga instance exists for them.
var (
	ErrCartNotFound       = New(http.StatusNotFound, "Cart not found", nil)
	ErrInvalidItem        = New(http.StatusBadRequest, "Invalid cart item", nil)
	ErrCheckoutInFlight   = New(http.StatusConflict, "Checkout already in progress for these items", nil)
	ErrInvalidTransition  = New(http.StatusConflict, "Invalid order state transition", nil)
	ErrPaymentNotFound    = New(http.StatusNotFound, "Payment not found", nil)
	ErrOrderNotFound      = New(http.StatusNotFound, "Order not found", nil)
	ErrValidation         = New(http.StatusBadRequest, "Validation error", nil)
	ErrDatabaseConnection = New(http.StatusServiceUnavailable, "Database connection error", nil)
)

// ErrorMiddleware converts errors attached to the gin context into JSON
// responses. Controllers push errors with c.Error and return; the last one
// wins. Anything that is not an application Error is reported as a 500
// without leaking its message.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		var appErr *Error
		if !stderrors.As(err, &appErr) {
			appErr = ErrInternalServer.WithCause(err)
		}
		c.JSON(appErr.Code, appErr)
	}
}
