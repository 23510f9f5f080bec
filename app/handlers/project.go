package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskflow/app/config"
	"taskflow/app/database"
	"taskflow/app/platform/analytics"
	"taskflow/app/platform/membership"
	"taskflow/app/platform/workflow"
	"taskflow/pkg/logger"
)

const dateLayout = "2006-01-02"

func engine(db *gorm.DB) *workflow.Service {
	return workflow.NewService(db, membership.NewService(db), analytics.NewService(db, logger.Get()), logger.Get())
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, value)
}

// GetAllProjects lists the projects visible to the authenticated user.
func GetAllProjects(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	projects, err := engine(db).ListProjects(&u)
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(projects)
}

// CreateProject creates a project owned by the authenticated scrum master.
func CreateProject(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	input := struct {
		Name        string `json:"name" validate:"required,max=200"`
		Description string `json:"description"`
		StartDate   string `json:"start_date"`
		EndDate     string `json:"end_date"`
		Status      string `json:"status"`
	}{}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	startDate, err := parseDate(input.StartDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid start_date, expected YYYY-MM-DD"})
	}
	endDate, err := parseDate(input.EndDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid end_date, expected YYYY-MM-DD"})
	}

	project, err := engine(db).CreateProject(&u, workflow.ProjectInput{
		Name:        input.Name,
		Description: input.Description,
		StartDate:   startDate,
		EndDate:     endDate,
		Status:      input.Status,
	})
	if err != nil {
		return platformError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(project)
}

// GetProject returns a single project, including its members.
func GetProject(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid project id"})
	}

	project, err := engine(db).GetProject(&u, projectID)
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(project)
}

// UpdateProject updates a project's details. Scrum-master-only.
func UpdateProject(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid project id"})
	}

	input := struct {
		Name        string `json:"name" validate:"required,max=200"`
		Description string `json:"description"`
		StartDate   string `json:"start_date"`
		EndDate     string `json:"end_date"`
		Status      string `json:"status"`
	}{}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	startDate, err := parseDate(input.StartDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid start_date, expected YYYY-MM-DD"})
	}
	endDate, err := parseDate(input.EndDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid end_date, expected YYYY-MM-DD"})
	}

	project, err := engine(db).UpdateProject(&u, projectID, workflow.ProjectInput{
		Name:        input.Name,
		Description: input.Description,
		StartDate:   startDate,
		EndDate:     endDate,
		Status:      input.Status,
	})
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(project)
}

// GetProjectMembers lists the members of a project.
func GetProjectMembers(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid project id"})
	}

	// Visibility check doubles as an existence check.
	if _, err := engine(db).GetProject(&u, projectID); err != nil {
		return platformError(c, err)
	}

	members, err := membership.NewService(db).MembersOf(projectID)
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(members)
}

// GetAssignableUsers lists the users tasks in this project may be assigned
// to, which is exactly the membership.
func GetAssignableUsers(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid project id"})
	}

	if _, err := engine(db).GetProject(&u, projectID); err != nil {
		return platformError(c, err)
	}

	members, err := membership.NewService(db).MembersOf(projectID)
	if err != nil {
		return platformError(c, err)
	}

	users := make([]database.User, 0, len(members))
	for _, member := range members {
		if member.User != nil {
			users = append(users, *member.User)
		}
	}

	return c.JSON(users)
}

// AddProjectMember adds a user to a project. Scrum-master-only.
func AddProjectMember(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid project id"})
	}

	input := struct {
		UserID string `json:"user_id" validate:"required,uuid"`
		Role   string `json:"role"`
	}{}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	userID, err := uuid.Parse(input.UserID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid user id"})
	}

	member, err := engine(db).AddMember(&u, projectID, userID, input.Role)
	if err != nil {
		return platformError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(member)
}

// RemoveProjectMember removes a user from a project. Scrum-master-only.
func RemoveProjectMember(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid project id"})
	}
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid user id"})
	}

	if err := engine(db).RemoveMember(&u, projectID, userID); err != nil {
		return platformError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Member removed"})
}

// GetProjectStats returns task progress counters for a project.
func GetProjectStats(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid project id"})
	}

	stats, err := engine(db).Stats(&u, projectID)
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(stats)
}

// GetProjectTasks lists the tasks of a single project visible to the user.
func GetProjectTasks(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid project id"})
	}

	if _, err := engine(db).GetProject(&u, projectID); err != nil {
		return platformError(c, err)
	}

	filters := taskFiltersFromQuery(c)
	filters.ProjectID = &projectID

	tasks, err := engine(db).ListTasks(&u, filters)
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(tasks)
}

// CreateProjectTask creates a task within a project. Scrum-master-only.
func CreateProjectTask(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	projectID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid project id"})
	}

	input := struct {
		Title       string `json:"title" validate:"required"`
		Description string `json:"description"`
		Status      string `json:"status"`
		Priority    string `json:"priority"`
		DueDate     string `json:"due_date"`
		AssigneeID  string `json:"assignee_id"`
	}{}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	dueDate, err := parseDate(input.DueDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid due_date, expected YYYY-MM-DD"})
	}

	var assigneeID *uuid.UUID
	if input.AssigneeID != "" {
		id, err := uuid.Parse(input.AssigneeID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid assignee id"})
		}
		assigneeID = &id
	}

	task, err := engine(db).CreateTask(&u, projectID, workflow.TaskInput{
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		DueDate:     dueDate,
		AssigneeID:  assigneeID,
	})
	if err != nil {
		return platformError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(task)
}
