package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"taskflow/app/config"
	"taskflow/app/database"
	"taskflow/app/handlers"
	"taskflow/app/middleware"
	"taskflow/app/platform/storage"
	"taskflow/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}

	store := storage.NewStorageService(cfg.Storage())

	app := fiber.New()

	app.Use(compress.New())
	app.Use(helmet.New())
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(healthcheck.New())

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("db", db)
		c.Locals("storage", store)
		return c.Next()
	})

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", handlers.Register)
	auth.Post("/login", handlers.Login)
	auth.Post("/token-refresh", handlers.RefreshToken)
	auth.Post("/change-password", middleware.AuthMiddleware, handlers.ChangePassword)
	auth.Post("/password-reset", handlers.RequestPasswordReset)
	auth.Post("/password-reset-confirm", handlers.ConfirmPasswordReset)

	user := api.Group("/user", middleware.AuthMiddleware)
	user.Get("/me", handlers.GetCurrentUser)
	user.Put("/me", handlers.UpdateProfile)
	user.Get("/search", handlers.SearchUsers)
	user.Get("/notifications", handlers.GetNotifications)
	user.Post("/notifications/:id/read", handlers.MarkNotificationRead)
	user.Post("/notifications/read-all", handlers.MarkAllNotificationsRead)

	project := api.Group("/projects", middleware.AuthMiddleware)
	project.Get("/", handlers.GetAllProjects)
	project.Post("/", handlers.CreateProject)
	project.Get("/:id", handlers.GetProject)
	project.Put("/:id", handlers.UpdateProject)
	project.Get("/:id/stats", handlers.GetProjectStats)
	project.Get("/:id/members", handlers.GetProjectMembers)
	project.Get("/:id/assignable-users", handlers.GetAssignableUsers)
	project.Post("/:id/members", handlers.AddProjectMember)
	project.Delete("/:id/members/:userId", handlers.RemoveProjectMember)
	project.Get("/:id/tasks", handlers.GetProjectTasks)
	project.Post("/:id/tasks", handlers.CreateProjectTask)

	task := api.Group("/tasks", middleware.AuthMiddleware)
	task.Get("/", handlers.GetAllTasks)
	task.Get("/my", handlers.GetMyTasks)
	task.Get("/created", handlers.GetCreatedTasks)
	task.Get("/:id", handlers.GetTask)
	task.Put("/:id", handlers.UpdateTask)
	task.Post("/:id/assign", handlers.AssignTask)
	task.Post("/:id/unassign", handlers.UnassignTask)
	task.Post("/:id/change-status", handlers.ChangeTaskStatus)
	task.Post("/:id/change-priority", handlers.ChangeTaskPriority)
	task.Get("/:id/comments", handlers.GetTaskComments)
	task.Post("/:id/comments", handlers.AddTaskComment)
	task.Get("/:id/attachments", handlers.GetTaskAttachments)
	task.Post("/:id/attachments", handlers.UploadTaskAttachment)

	events := api.Group("/analytics", middleware.AuthMiddleware)
	events.Post("/events", handlers.CreateEvent)
	events.Get("/events", handlers.GetEvents)
	events.Get("/dashboard", handlers.GetDashboard)
	events.Get("/tasks", handlers.GetTaskAnalytics)

	app.Use(func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})

	log.Fatal(app.Listen(fmt.Sprintf(":%d", cfg.ServerPort)))
}
