// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"aspen/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	SessionHandler    *handler.SessionHandler
	EnrollmentHandler *handler.EnrollmentHandler
	AccountHandler    *handler.AccountHandler
}

// router holds all the handlers that need to be registered.
type router struct {
	sessionHandler    *handler.SessionHandler
	enrollmentHandler *handler.EnrollmentHandler
	accountHandler    *handler.AccountHandler
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		sessionHandler:    params.SessionHandler,
		enrollmentHandler: params.EnrollmentHandler,
		accountHandler:    params.AccountHandler,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	appleGroup := e.Group("/apple")
	{
		// Enrollment flow
		appleGroup.POST("/newbee", r.enrollmentHandler.Newbee)
		appleGroup.POST("/add_device", r.enrollmentHandler.AddDevice)
		appleGroup.GET("/info", r.enrollmentHandler.Info)

		// Session bootstrap
		appleGroup.POST("/login_by_fastlane", r.sessionHandler.LoginByFastlane)
		appleGroup.POST("/login_by_curl", r.sessionHandler.LoginByCurl)

		// Account maintenance
		appleGroup.POST("/init_account", r.accountHandler.InitAccount)
		appleGroup.POST("/security_code", r.accountHandler.SecurityCode)
		appleGroup.POST("/security_code_sms", r.accountHandler.SecurityCodeSMS)
		appleGroup.GET("/wait", r.accountHandler.Wait)

		// Artifacts
		appleGroup.GET("/mobconf", r.accountHandler.MobileConfig)
		appleGroup.GET("/download_mp", r.accountHandler.DownloadProfile)
		appleGroup.GET("/download_profile", r.accountHandler.DownloadProfile)
		appleGroup.GET("/download_ipa", r.accountHandler.DownloadIPA)
		appleGroup.POST("/upload_ipa", r.accountHandler.UploadIPA)
	}
}
