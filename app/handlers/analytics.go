package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskflow/app/config"
	"taskflow/app/database"
	"taskflow/app/platform/analytics"
	"taskflow/pkg/logger"
)

// CreateEvent appends an event to the authenticated user's activity ledger.
// Recording is best-effort on the server side, but a malformed request is
// still rejected up front.
func CreateEvent(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	input := struct {
		EventType  string              `json:"event_type" validate:"required"`
		EntityType string              `json:"entity_type" validate:"required"`
		EntityID   string              `json:"entity_id" validate:"required,uuid"`
		Metadata   database.JSONObject `json:"metadata"`
	}{}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if !database.IsValidEventType(input.EventType) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid event type"})
	}

	entityID, err := uuid.Parse(input.EntityID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid entity id"})
	}

	analytics.NewService(db, logger.Get()).Record(analytics.Entry{
		UserID:     u.ID,
		EventType:  input.EventType,
		EntityType: input.EntityType,
		EntityID:   entityID,
		Metadata:   input.Metadata,
		IPAddress:  c.IP(),
		UserAgent:  c.Get(fiber.HeaderUserAgent),
	})

	return c.SendStatus(fiber.StatusCreated)
}

// GetEvents lists the authenticated user's own events, newest first.
func GetEvents(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	filters := analytics.Filters{
		EventType:  c.Query("event_type"),
		EntityType: c.Query("entity_type"),
		WindowDays: c.QueryInt("days"),
	}

	events, err := analytics.NewService(db, logger.Get()).Query(u.ID, filters)
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(events)
}

// GetDashboard returns the user's aggregated activity summary.
func GetDashboard(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	summary, err := analytics.NewService(db, logger.Get()).Dashboard(u.ID, c.QueryInt("days"))
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(summary)
}

// GetTaskAnalytics returns the user's task movement and completion breakdown.
func GetTaskAnalytics(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	report, err := analytics.NewService(db, logger.Get()).Tasks(u.ID, c.QueryInt("days"))
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(report)
}
