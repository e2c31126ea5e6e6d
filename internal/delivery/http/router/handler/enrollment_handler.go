package handler

import (
	"io"
	"net/http"

	"aspen/internal/delivery/http/response"
	"aspen/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// EnrollmentHandler holds dependencies for enrollment handlers.
type EnrollmentHandler struct {
	uc usecase.EnrollmentUsecase
}

// NewEnrollmentHandler is the constructor for EnrollmentHandler, injected by
// Fx.
func NewEnrollmentHandler(uc usecase.EnrollmentUsecase) *EnrollmentHandler {
	return &EnrollmentHandler{uc: uc}
}

// Newbee mints an enrollment token for a project.
func (h *EnrollmentHandler) Newbee(c echo.Context) error {
	project := c.FormValue("project")
	if project == "" {
		return response.BadRequest(c, "MISSING_PROJECT", "A project name is required")
	}

	token, err := h.uc.NewToken(c.Request().Context(), project)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"uuid": token}, "Token issued")
}

// AddDevice redeems an enrollment token. Devices land here through the
// mobileconfig callback with their plist payload in the body; a successful
// redemption bounces them to the install page.
func (h *EnrollmentHandler) AddDevice(c echo.Context) error {
	token := c.QueryParam("uuid")
	if token == "" {
		return response.BadRequest(c, "MISSING_TOKEN", "An enrollment token is required")
	}
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return response.BadRequest(c, "UNREADABLE_PAYLOAD", "Could not read device payload")
	}

	result, err := h.uc.Redeem(c.Request().Context(), token, c.QueryParam("udid"), payload)
	if err != nil {
		return errors.WithStack(err)
	}
	if result.Succ && result.RedirectURL != "" {
		return c.Redirect(http.StatusMovedPermanently, result.RedirectURL)
	}

	return response.Success(c, http.StatusOK, result, "Enrollment processed")
}

// Info returns the project's landing metadata plus a fresh token.
func (h *EnrollmentHandler) Info(c echo.Context) error {
	project := c.QueryParam("project")
	if project == "" {
		return response.BadRequest(c, "MISSING_PROJECT", "A project name is required")
	}

	info, err := h.uc.Info(c.Request().Context(), project)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, info, "Project info retrieved")
}
