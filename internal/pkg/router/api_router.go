package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/nmarkov/adpulse/app/controllers"
	"github.com/nmarkov/adpulse/internal/pkg/constants"
	"github.com/nmarkov/adpulse/internal/pkg/middleware"
	"github.com/nmarkov/adpulse/internal/pkg/quota"
)

type ApiRouter struct {
	gate *quota.Gate
}

func NewApiRouter(gate *quota.Gate) *ApiRouter {
	return &ApiRouter{gate: gate}
}

func (h *ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute, limiter.New(limiter.Config{Max: 120}))

	// public
	api.Post("/register", controllers.HandleRegister)
	api.Post("/login", controllers.HandleLogin)
	api.Post("/password/forgot", controllers.HandleForgotPassword)
	api.Post("/password/reset", controllers.HandleResetPassword)

	// authenticated
	auth := api.Group("", middleware.RequireAuth)
	auth.Get("/dashboard", controllers.HandleDashboard)
	auth.Get("/connect/:provider/accounts", controllers.HandleListAccounts)
	auth.Get("/connect/:provider/fetch", controllers.HandleFetchData)
	auth.Delete("/connect/:provider", controllers.HandleDisconnect)
	auth.Get("/data/:platform/:analysisType", controllers.HandleGetData)
	auth.Get("/revenue/:platform", controllers.HandleRevenue)

	auth.Get("/jobs/:id", controllers.HandleGetJob)

	// the analysis endpoint is the only one that consumes plan quota
	auth.Post("/analyze", quota.Middleware(h.gate), controllers.HandleAnalyze)

	// admin
	admin := api.Group("/admin", middleware.RequireAuth, middleware.RequireAdmin)
	admin.Get("/statistics", controllers.HandleAdminStatistics)
}
