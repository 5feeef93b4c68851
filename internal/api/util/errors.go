package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hbomb79/Mnemo/internal/knowledge"
	"github.com/hbomb79/Mnemo/internal/pipeline"
	"github.com/hbomb79/Mnemo/pkg/logger"
	"github.com/labstack/echo/v4"
)

type APIError struct {
	// Human readable error display message
	Message string `json:"message"`

	// A machine readable and stable identifier for the error case being represented
	Code string `json:"code"`

	// Used to alter the HTTP response status in accordance with the error
	Status int `json:"-"`

	// Additional message for internal logging only. Will not be included in the message
	// sent to the user.
	InternalMessage string `json:"-"`
}

const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeInternal       = "INTERNAL_ERROR"
)

// Error satisifies the Go error interface and simply exposes the
// message contained by this APIError.
func (err APIError) Error() string {
	return fmt.Sprintf("api error: %s", err.Message)
}

func NewBadRequestError(message string) APIError {
	return APIError{Status: http.StatusBadRequest, Code: CodeInvalidRequest, Message: message}
}

func NewNotFoundError(message string) APIError {
	return APIError{Status: http.StatusNotFound, Code: CodeNotFound, Message: message}
}

// ErrorFor converts an error returned by the pipeline in to an APIError,
// choosing the response status based on the type of the error.
func ErrorFor(err error) APIError {
	var invalidErr *pipeline.InvalidRequestError
	if errors.As(err, &invalidErr) {
		return NewBadRequestError(invalidErr.Error())
	}

	if errors.Is(err, knowledge.ErrItemNotFound) {
		return NewNotFoundError(err.Error())
	}

	return APIError{Status: http.StatusInternalServerError, Code: CodeInternal, InternalMessage: err.Error()}
}

// GetHTTPErrorHandler returns an echo HTTP error handler
// which understands how to interpret APIError. If an error is
// provided which is not recognized, it will be passed off to the
// fallback HTTP handler provided.
func GetHTTPErrorHandler(fallbackHandler echo.HTTPErrorHandler) echo.HTTPErrorHandler {
	logger := logger.Get("API")
	return func(err error, ctx echo.Context) {
		var apiErr APIError
		if ok := errors.As(err, &apiErr); ok {
			if apiErr.Status == 0 {
				apiErr.Status = http.StatusInternalServerError
			}
			if len(apiErr.Message) == 0 {
				apiErr.Message = http.StatusText(apiErr.Status)
			}
			if len(apiErr.Code) == 0 {
				apiErr.Code = http.StatusText(apiErr.Status)
			}
			if len(apiErr.InternalMessage) > 0 {
				logger.Errorf("Request failure, internal error: %s\n", apiErr.InternalMessage)
			}

			if err := ctx.JSON(apiErr.Status, apiErr); err == nil {
				return
			}
		}

		fallbackHandler(err, ctx)
	}
}
