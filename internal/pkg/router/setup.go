package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nmarkov/adpulse/internal/pkg/quota"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter registers every route group. The connect router carries
// the OAuth entry points and callbacks; the API router everything else.
func InstallRouter(app *fiber.App, gate *quota.Gate) {
	setup(app, NewConnectRouter(), NewApiRouter(gate))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
