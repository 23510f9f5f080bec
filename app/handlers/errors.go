package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"taskflow/app/platform/membership"
	puser "taskflow/app/platform/user"
	"taskflow/app/platform/workflow"
)

// platformError translates platform sentinel errors into transport status
// codes. The platform packages never decide HTTP codes themselves.
func platformError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, workflow.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Forbidden"})
	case errors.Is(err, workflow.ErrNotFound),
		errors.Is(err, puser.ErrNotFound),
		errors.Is(err, puser.ErrNotificationNotFound),
		errors.Is(err, membership.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Not found"})
	case errors.Is(err, workflow.ErrValidation),
		errors.Is(err, puser.ErrWeakPassword),
		errors.Is(err, puser.ErrInvalidRole):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, workflow.ErrAssigneeNotMember):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Assignee is not a member of this project"})
	case errors.Is(err, membership.ErrAlreadyMember),
		errors.Is(err, puser.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": err.Error()})
	case errors.Is(err, puser.ErrAccountLocked):
		return c.Status(fiber.StatusLocked).JSON(fiber.Map{"message": "Account temporarily locked due to too many failed login attempts"})
	case errors.Is(err, puser.ErrInvalidCredentials),
		errors.Is(err, puser.ErrAccountInactive),
		errors.Is(err, puser.ErrWrongPassword):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid credentials"})
	case errors.Is(err, puser.ErrInvalidResetToken):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid or expired reset token"})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
}
