package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"aspen/internal/delivery/http/response"
	"aspen/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// AccountHandler holds dependencies for account maintenance and artifact
// handlers.
type AccountHandler struct {
	uc usecase.AccountUsecase
}

// NewAccountHandler is the constructor for AccountHandler, injected by Fx.
func NewAccountHandler(uc usecase.AccountUsecase) *AccountHandler {
	return &AccountHandler{uc: uc}
}

// InitAccount resyncs an account's portal state into local records.
func (h *AccountHandler) InitAccount(c echo.Context) error {
	account := c.FormValue("account")
	if account == "" {
		return response.BadRequest(c, "MISSING_ACCOUNT", "An account email is required")
	}

	summary, err := h.uc.InitAccount(c.Request().Context(), account)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, summary, "Account resynced")
}

// SecurityCode publishes an operator-entered verification code.
func (h *AccountHandler) SecurityCode(c echo.Context) error {
	account := c.FormValue("account")
	code := c.FormValue("code")
	if account == "" || code == "" {
		return response.BadRequest(c, "MISSING_FIELDS", "Both account and code are required")
	}

	if err := h.uc.SecurityCode(c.Request().Context(), account, code); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Security code published")
}

// SecurityCodeSMS extracts a verification code from a relayed SMS.
func (h *AccountHandler) SecurityCodeSMS(c echo.Context) error {
	phone := c.FormValue("phone")
	sms := c.FormValue("sms")
	if sms == "" {
		return response.BadRequest(c, "MISSING_SMS", "An sms body is required")
	}

	if err := h.uc.SecurityCodeSMS(c.Request().Context(), phone, sms); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Security code published")
}

// Wait blocks until a verification code arrives or the deadline passes.
func (h *AccountHandler) Wait(c echo.Context) error {
	code, err := h.uc.WaitSecurityCode(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, code, "Security code received")
}

// UploadIPA stores a packaged ipa delivered by the build pipeline.
func (h *AccountHandler) UploadIPA(c echo.Context) error {
	project := c.QueryParam("project")
	account := c.QueryParam("account")
	if project == "" || account == "" {
		return response.BadRequest(c, "MISSING_FIELDS", "Both project and account are required")
	}
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil || len(payload) == 0 {
		return response.BadRequest(c, "EMPTY_PAYLOAD", "Request body carries no ipa")
	}

	name, err := h.uc.UploadIPA(c.Request().Context(), project, account, payload)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"name": name}, "Artifact stored")
}

// DownloadProfile serves the mobileprovision blob for an enrollment.
func (h *AccountHandler) DownloadProfile(c echo.Context) error {
	return h.serveArtifact(c, h.uc.DownloadProfile)
}

// DownloadIPA serves the packaged ipa for an enrollment.
func (h *AccountHandler) DownloadIPA(c echo.Context) error {
	return h.serveArtifact(c, h.uc.DownloadIPA)
}

// MobileConfig serves the signed udid-harvest payload for an enrollment.
func (h *AccountHandler) MobileConfig(c echo.Context) error {
	return h.serveArtifact(c, h.uc.MobileConfig)
}

func (h *AccountHandler) serveArtifact(c echo.Context, fetch func(ctx context.Context, token string) (*usecase.Artifact, error)) error {
	token := c.QueryParam("uuid")
	if token == "" {
		return response.BadRequest(c, "MISSING_TOKEN", "An enrollment token is required")
	}

	artifact, err := fetch(c.Request().Context(), token)
	if err != nil {
		return errors.WithStack(err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", artifact.Name))

	return c.Blob(http.StatusOK, artifact.ContentType, artifact.Content)
}
