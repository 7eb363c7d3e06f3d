package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/melih/lighthouse-lxc/internal/core/domain"
)

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	code, ok := domain.CodeOf(err)
	if !ok {
		return fiber.StatusInternalServerError
	}
	switch code {
	case domain.ContainerNotExists:
		return fiber.StatusNotFound
	case domain.ContainerAlreadyExists, domain.ContainerAlreadyRunning:
		return fiber.StatusConflict
	case domain.InvalidName, domain.InvalidArgument:
		return fiber.StatusBadRequest
	case domain.MalformedInfoLine:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func errorResponse(c *fiber.Ctx, err error) error {
	body := fiber.Map{"error": err.Error()}
	if code, ok := domain.CodeOf(err); ok {
		body["code"] = code.String()
	}
	return c.Status(statusFor(err)).JSON(body)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}
