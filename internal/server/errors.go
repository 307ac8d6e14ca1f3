package server

import (
	"errors"
	"net/http"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/swapengine"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/swaperr"
	"github.com/labstack/echo/v4"
)

// NotFoundJSON returns a custom HTTP error handler that returns JSON responses
// This ensures all errors (including 404s) have consistent JSON format
func NotFoundJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if he, ok := err.(*echo.HTTPError); ok {
			_ = c.JSON(he.Code, ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  he.Code,
			})
			return
		}

		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}

// statusFor maps engine failures onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, swapengine.ErrAttemptNotFound):
		return http.StatusNotFound
	case errors.Is(err, swapengine.ErrAlreadySubmitted), errors.Is(err, swapengine.ErrAttemptFinished):
		return http.StatusConflict
	}

	switch swaperr.KindOf(err) {
	case swaperr.KindInvalidRequest:
		return http.StatusBadRequest
	case swaperr.KindNoRoute:
		return http.StatusUnprocessableEntity
	case swaperr.KindQuoteNetwork, swaperr.KindQuoteBackendRejected:
		return http.StatusBadGateway
	case swaperr.KindCancelled:
		return http.StatusConflict
	case "":
		return http.StatusInternalServerError
	}
	return http.StatusBadGateway
}
