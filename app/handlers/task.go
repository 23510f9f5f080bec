package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskflow/app/config"
	"taskflow/app/database"
	"taskflow/app/platform/storage"
	"taskflow/app/platform/workflow"
)

func taskFiltersFromQuery(c *fiber.Ctx) workflow.TaskFilters {
	filters := workflow.TaskFilters{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
	}
	if raw := c.Query("assignee"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			filters.AssigneeID = &id
		}
	}
	if raw := c.Query("project"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			filters.ProjectID = &id
		}
	}
	return filters
}

// GetAllTasks lists tasks visible to the authenticated user.
func GetAllTasks(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	tasks, err := engine(db).ListTasks(&u, taskFiltersFromQuery(c))
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(tasks)
}

// GetMyTasks lists tasks assigned to the authenticated user.
func GetMyTasks(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	tasks, err := engine(db).TasksAssignedTo(u.ID)
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(tasks)
}

// GetCreatedTasks lists tasks created by the authenticated user.
func GetCreatedTasks(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	tasks, err := engine(db).TasksCreatedBy(u.ID)
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(tasks)
}

// GetTask returns a single task visible to the authenticated user.
func GetTask(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid task id"})
	}

	task, err := engine(db).GetTask(&u, taskID)
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(task)
}

// UpdateTask applies a partial update to a task. Employees may only change
// the status of tasks assigned to them.
func UpdateTask(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid task id"})
	}

	input := struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Status      *string `json:"status"`
		Priority    *string `json:"priority"`
		DueDate     *string `json:"due_date"`
		AssigneeID  *string `json:"assignee_id"`
	}{}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}

	update := workflow.TaskUpdateInput{
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
	}

	if input.DueDate != nil {
		dueDate, err := parseDate(*input.DueDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid due_date, expected YYYY-MM-DD"})
		}
		update.DueDate = &dueDate
	}

	if input.AssigneeID != nil {
		if *input.AssigneeID == "" {
			update.ClearAssignee = true
		} else {
			id, err := uuid.Parse(*input.AssigneeID)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid assignee id"})
			}
			update.AssigneeID = &id
		}
	}

	task, err := engine(db).UpdateTask(&u, taskID, update)
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(task)
}

// AssignTask assigns a task to a project member. Scrum-master-only.
func AssignTask(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid task id"})
	}

	input := struct {
		UserID string `json:"user_id" validate:"required,uuid"`
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

	task, err := engine(db).AssignTask(&u, taskID, userID)
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(task)
}

// UnassignTask removes the current assignee from a task. Scrum-master-only.
func UnassignTask(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid task id"})
	}

	task, err := engine(db).UnassignTask(&u, taskID)
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(task)
}

// ChangeTaskStatus moves a task through its workflow.
func ChangeTaskStatus(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid task id"})
	}

	input := struct {
		Status string `json:"status" validate:"required"`
	}{}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	task, err := engine(db).ChangeStatus(&u, taskID, input.Status)
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(task)
}

// ChangeTaskPriority updates a task's priority. Scrum-master-only.
func ChangeTaskPriority(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid task id"})
	}

	input := struct {
		Priority string `json:"priority" validate:"required"`
	}{}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	task, err := engine(db).ChangePriority(&u, taskID, input.Priority)
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(task)
}

// GetTaskComments lists a task's comments, newest first.
func GetTaskComments(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid task id"})
	}

	comments, err := engine(db).Comments(&u, taskID)
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(comments)
}

// AddTaskComment adds a comment to a task the user can see.
func AddTaskComment(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid task id"})
	}

	input := struct {
		Content string `json:"content" validate:"required"`
	}{}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	comment, err := engine(db).AddComment(&u, taskID, input.Content)
	if err != nil {
		return platformError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetTaskAttachments lists a task's attachments.
func GetTaskAttachments(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid task id"})
	}

	attachments, err := engine(db).Attachments(&u, taskID)
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(attachments)
}

// UploadTaskAttachment stores an uploaded file and links it to the task.
func UploadTaskAttachment(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)
	store := c.Locals("storage").(storage.StorageService)

	taskID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid task id"})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Missing file"})
	}
	if !store.IsFileExtensionAllowed(file.Filename) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "File type not allowed"})
	}

	// Task must exist and be visible before anything hits the object store.
	if _, err := engine(db).GetTask(&u, taskID); err != nil {
		return platformError(c, err)
	}

	key := store.GenerateKeyName()
	if err := store.SaveFile(file, key, c); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to store file"})
	}

	attachment, err := engine(db).AddAttachment(&u, taskID, file.Filename, key, file.Size)
	if err != nil {
		return platformError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(attachment)
}
