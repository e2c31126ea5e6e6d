// Package handler contains the HTTP handlers for the application.
package handler

import (
	"io"
	"net/http"

	"aspen/internal/delivery/http/response"
	"aspen/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// SessionHandler holds dependencies for session bootstrap handlers.
type SessionHandler struct {
	uc usecase.SessionUsecase
}

// NewSessionHandler is the constructor for SessionHandler, injected by Fx.
func NewSessionHandler(uc usecase.SessionUsecase) *SessionHandler {
	return &SessionHandler{uc: uc}
}

// LoginByFastlane installs a session from a pasted fastlane session export.
// The transcript rides in the raw request body; session exports contain
// characters that do not survive form encoding.
func (h *SessionHandler) LoginByFastlane(c echo.Context) error {
	transcript, err := io.ReadAll(c.Request().Body)
	if err != nil || len(transcript) == 0 {
		return response.BadRequest(c, "EMPTY_TRANSCRIPT", "Request body carries no transcript")
	}

	result, err := h.uc.LoginByFastlane(c.Request().Context(), string(transcript))
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, result, "Session capture processed")
}

// LoginByCurl installs a session from a pasted browser-exported curl
// command.
func (h *SessionHandler) LoginByCurl(c echo.Context) error {
	transcript, err := io.ReadAll(c.Request().Body)
	if err != nil || len(transcript) == 0 {
		return response.BadRequest(c, "EMPTY_TRANSCRIPT", "Request body carries no transcript")
	}

	result, err := h.uc.LoginByCurl(c.Request().Context(), string(transcript))
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, result, "Session capture processed")
}
