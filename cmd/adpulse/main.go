package main

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/nmarkov/adpulse/app/controllers"
	"github.com/nmarkov/adpulse/app/repository"
	"github.com/nmarkov/adpulse/internal/pkg/cache"
	"github.com/nmarkov/adpulse/internal/pkg/connect"
	"github.com/nmarkov/adpulse/internal/pkg/constants"
	"github.com/nmarkov/adpulse/internal/pkg/database"
	"github.com/nmarkov/adpulse/internal/pkg/env"
	"github.com/nmarkov/adpulse/internal/pkg/insight"
	"github.com/nmarkov/adpulse/internal/pkg/jobqueue"
	"github.com/nmarkov/adpulse/internal/pkg/metrics/counter"
	"github.com/nmarkov/adpulse/internal/pkg/quota"
	"github.com/nmarkov/adpulse/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	factory := repository.NewFactory(db)
	repository.SetGlobalFactory(factory)
	repos := factory.GetRepositories()

	reg := connect.NewRegistry(repos, connect.NewRequestTokenStore())
	loader := insight.NewRepositoryLoader(repos.Dataset)
	agg := insight.NewAggregator(loader, insight.NewChatClient())
	controllers.Setup(reg, agg, loader)

	gate := quota.NewGate(quota.NewStore(db))

	workers, err := strconv.Atoi(env.GetEnv("JOB_WORKERS", "3"))
	if err != nil {
		workers = 3
	}
	jobqueue.Setup(workers, reg)
	counter.StartFlusher(time.Minute, make(chan struct{}))

	app := fiber.New(fiber.Config{
		AppName: "adpulse",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins: env.GetEnv("FRONTEND_URL", "*"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// fiber metrics
	app.Get(constants.MetricsRoute, basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	// ROUTER
	router.InstallRouter(app, gate)

	return app
}
