package controllers

import "github.com/gofiber/fiber/v2"

// HandleHealthCheck answers load balancer and container probes.
func HandleHealthCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).SendString("Healthy")
}
