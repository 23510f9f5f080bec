package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskflow/app/database"
	puser "taskflow/app/platform/user"
	"taskflow/pkg/logger"
)

// GetCurrentUser returns the authenticated user's profile.
func GetCurrentUser(c *fiber.Ctx) error {
	u := c.Locals("user").(database.User)
	return c.JSON(u)
}

// UpdateProfile applies partial profile changes for the authenticated user.
func UpdateProfile(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	input := struct {
		FirstName       *string `json:"first_name"`
		LastName        *string `json:"last_name"`
		Bio             *string `json:"bio"`
		JobTitle        *string `json:"job_title"`
		Department      *string `json:"department"`
		Phone           *string `json:"phone"`
		ThemePreference *string `json:"theme_preference"`
	}{}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}

	err := puser.NewService(db, logger.Get()).UpdateProfile(&u, puser.ProfileInput{
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		Bio:             input.Bio,
		JobTitle:        input.JobTitle,
		Department:      input.Department,
		Phone:           input.Phone,
		ThemePreference: input.ThemePreference,
	})
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(u)
}

// SearchUsers looks up users by username or name fragment.
func SearchUsers(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)

	query := c.Query("q")
	if len(query) < 2 {
		return c.JSON([]database.User{})
	}

	users, err := puser.NewService(db, logger.Get()).Search(query)
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(users)
}

// GetNotifications lists the authenticated user's notifications, newest first.
func GetNotifications(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	notifications, err := puser.NewService(db, logger.Get()).Notifications(u.ID)
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(notifications)
}

// MarkNotificationRead marks a single notification as read.
func MarkNotificationRead(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	notificationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid notification id"})
	}

	if err := puser.NewService(db, logger.Get()).MarkNotificationRead(u.ID, notificationID); err != nil {
		return platformError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Notification marked as read"})
}

// MarkAllNotificationsRead marks every unread notification as read.
func MarkAllNotificationsRead(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	if err := puser.NewService(db, logger.Get()).MarkAllNotificationsRead(u.ID); err != nil {
		return platformError(c, err)
	}

	return c.JSON(fiber.Map{"message": "All notifications marked as read"})
}
