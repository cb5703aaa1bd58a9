package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nmarkov/adpulse/app/controllers"
	"github.com/nmarkov/adpulse/internal/pkg/constants"
	"github.com/nmarkov/adpulse/internal/pkg/middleware"
)

// ConnectRouter carries the browser-facing OAuth endpoints. The auth entry
// point authenticates via the token query parameter because it is reached
// by a plain browser redirect; the callback is reached by the provider and
// correlates the user through the state value instead.
type ConnectRouter struct {
}

func NewConnectRouter() *ConnectRouter {
	return &ConnectRouter{}
}

func (h *ConnectRouter) InstallRouter(app *fiber.App) {
	group := app.Group(constants.ConnectRoute)
	group.Get("/:provider/auth", middleware.RequireAuth, controllers.HandleConnectAuth)
	group.Get("/:provider/callback", controllers.HandleConnectCallback)
}
