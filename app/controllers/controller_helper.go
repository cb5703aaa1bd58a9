package controllers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/nmarkov/adpulse/internal/pkg/connect"
	"github.com/nmarkov/adpulse/internal/pkg/insight"
)

// Package-level dependencies, wired once from main before the router is
// installed.
var (
	registry   *connect.Registry
	aggregator *insight.Aggregator
	loader     insight.DatasetLoader

	validate = validator.New()
)

// Setup wires the controller dependencies. Must be called before any
// handler runs.
func Setup(reg *connect.Registry, agg *insight.Aggregator, load insight.DatasetLoader) {
	registry = reg
	aggregator = agg
	loader = load
}

func jsonError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func jsonOK(c *fiber.Ctx, data fiber.Map) error {
	data["success"] = true
	return c.JSON(data)
}
