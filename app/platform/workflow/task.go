package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskflow/app/database"
	"taskflow/app/platform/analytics"
	"taskflow/app/platform/policy"
)

const minTitleLength = 3

type TaskInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     time.Time
	AssigneeID  *uuid.UUID
}

// CreateTask creates a task in the project. Scrum-master-only; an assignee
// must already be a member of the project.
func (s *Service) CreateTask(actor *database.User, projectID uuid.UUID, input TaskInput) (*database.Task, error) {
	if !policy.Can(actor, policy.ActionCreateTask, nil) {
		return nil, ErrForbidden
	}

	project, err := s.GetProject(actor, projectID)
	if err != nil {
		return nil, err
	}

	input.Title = strings.TrimSpace(input.Title)
	if len(input.Title) < minTitleLength {
		return nil, fmt.Errorf("%w: title must be at least %d characters", ErrValidation, minTitleLength)
	}
	if input.Status == "" {
		input.Status = database.TaskStatusTodo
	}
	if !database.IsValidTaskStatus(input.Status) {
		return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, input.Status)
	}
	if input.Priority == "" {
		input.Priority = database.PriorityMedium
	}
	if !database.IsValidPriority(input.Priority) {
		return nil, fmt.Errorf("%w: invalid priority %q", ErrValidation, input.Priority)
	}

	if input.AssigneeID != nil {
		isMember, err := s.members.IsMember(project.ID, *input.AssigneeID)
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, ErrAssigneeNotMember
		}
	}

	task := database.Task{
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		ProjectID:   project.ID,
		AssigneeID:  input.AssigneeID,
		CreatedByID: actor.ID,
	}
	applyStatusSideEffects(&task)

	if err := s.db.Create(&task).Error; err != nil {
		return nil, err
	}

	s.events.Record(analytics.Entry{
		UserID:     actor.ID,
		EventType:  database.EventTaskCreated,
		EntityType: "task",
		EntityID:   task.ID,
		Metadata: database.JSONObject{
			"priority":   task.Priority,
			"project_id": task.ProjectID.String(),
		},
	})

	if task.AssigneeID != nil {
		s.notify(*task.AssigneeID, database.NotificationTaskAssigned,
			"Task assigned", fmt.Sprintf("You have been assigned to %q", task.Title),
			fmt.Sprintf("/tasks/%s", task.ID))
	}

	s.log.Info().Str("task_id", task.ID.String()).Str("project_id", project.ID.String()).Msg("task created")

	return &task, nil
}

// applyStatusSideEffects keeps completed_at consistent with the status:
// non-nil exactly when the task is done.
func applyStatusSideEffects(task *database.Task) {
	if task.Status == database.TaskStatusDone {
		if task.CompletedAt == nil {
			now := time.Now()
			task.CompletedAt = &now
		}
	} else {
		task.CompletedAt = nil
	}
}

// checkAssigneeInvariant re-validates that the task's assignee, when set, is
// still a member of the task's project.
func (s *Service) checkAssigneeInvariant(task *database.Task) error {
	if task.AssigneeID == nil {
		return nil
	}
	isMember, err := s.members.IsMember(task.ProjectID, *task.AssigneeID)
	if err != nil {
		return err
	}
	if !isMember {
		return ErrAssigneeNotMember
	}
	return nil
}

// GetTask fetches a task visible to the actor: its assignee, its creator, or
// any member of its project.
func (s *Service) GetTask(actor *database.User, taskID uuid.UUID) (*database.Task, error) {
	var task database.Task
	if err := s.db.First(&task, "id = ?", taskID).Error; err != nil {
		return nil, ErrNotFound
	}

	if actor.IsSuperuser ||
		task.CreatedByID == actor.ID ||
		(task.AssigneeID != nil && *task.AssigneeID == actor.ID) {
		return &task, nil
	}

	isMember, err := s.members.IsMember(task.ProjectID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrNotFound
	}

	return &task, nil
}

// TaskFilters narrows ListTasks. Zero values mean no filter.
type TaskFilters struct {
	Status     string
	Priority   string
	AssigneeID *uuid.UUID
	ProjectID  *uuid.UUID
	Search     string
	Ordering   string
}

var allowedTaskOrderings = map[string]string{
	"due_date":    "due_date ASC",
	"-due_date":   "due_date DESC",
	"priority":    "priority ASC",
	"-priority":   "priority DESC",
	"created_at":  "created_at ASC",
	"-created_at": "created_at DESC",
}

// ListTasks returns tasks visible to the actor, filtered and ordered.
func (s *Service) ListTasks(actor *database.User, f TaskFilters) ([]database.Task, error) {
	memberOf := s.db.Model(&database.ProjectMember{}).
		Select("project_id").
		Where("user_id = ?", actor.ID)

	q := s.db.Model(&database.Task{})
	if !actor.IsSuperuser {
		q = q.Where("assignee_id = ? OR created_by_id = ? OR project_id IN (?)", actor.ID, actor.ID, memberOf)
	}

	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.AssigneeID != nil {
		q = q.Where("assignee_id = ?", *f.AssigneeID)
	}
	if f.ProjectID != nil {
		q = q.Where("project_id = ?", *f.ProjectID)
	}
	if f.Search != "" {
		pattern := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	if order, ok := allowedTaskOrderings[f.Ordering]; ok {
		q = q.Order(order)
	} else {
		q = q.Order("created_at DESC")
	}

	var tasks []database.Task
	err := q.Find(&tasks).Error
	return tasks, err
}

// TasksAssignedTo lists tasks assigned to the user, newest first.
func (s *Service) TasksAssignedTo(userID uuid.UUID) ([]database.Task, error) {
	var tasks []database.Task
	err := s.db.Where("assignee_id = ?", userID).
		Order("created_at DESC").
		Find(&tasks).Error
	return tasks, err
}

// TasksCreatedBy lists tasks created by the user, newest first.
func (s *Service) TasksCreatedBy(userID uuid.UUID) ([]database.Task, error) {
	var tasks []database.Task
	err := s.db.Where("created_by_id = ?", userID).
		Order("created_at DESC").
		Find(&tasks).Error
	return tasks, err
}

// TaskUpdateInput carries a partial update; nil fields are untouched.
type TaskUpdateInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	DueDate     *time.Time
	AssigneeID  *uuid.UUID
	// ClearAssignee distinguishes "unassign" from "leave unchanged".
	ClearAssignee bool
}

// UpdateTask applies a partial update. Employees may only touch the status
// of tasks assigned to them; any other field from an employee is denied
// outright rather than silently dropped.
func (s *Service) UpdateTask(actor *database.User, taskID uuid.UUID, input TaskUpdateInput) (*database.Task, error) {
	task, err := s.GetTask(actor, taskID)
	if err != nil {
		return nil, err
	}

	if !policy.Can(actor, policy.ActionUpdateTask, task) {
		return nil, ErrForbidden
	}

	if !actor.IsScrumMaster() && !actor.IsSuperuser {
		touched := map[string]bool{}
		if input.Title != nil {
			touched["title"] = true
		}
		if input.Description != nil {
			touched["description"] = true
		}
		if input.Status != nil {
			touched["status"] = true
		}
		if input.Priority != nil {
			touched["priority"] = true
		}
		if input.DueDate != nil {
			touched["due_date"] = true
		}
		if input.AssigneeID != nil || input.ClearAssignee {
			touched["assignee_id"] = true
		}
		for field := range touched {
			if !policy.EmployeeUpdatableFields[field] {
				return nil, ErrForbidden
			}
		}
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if len(title) < minTitleLength {
			return nil, fmt.Errorf("%w: title must be at least %d characters", ErrValidation, minTitleLength)
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		if !database.IsValidTaskStatus(*input.Status) {
			return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, *input.Status)
		}
		task.Status = *input.Status
	}
	if input.Priority != nil {
		if !database.IsValidPriority(*input.Priority) {
			return nil, fmt.Errorf("%w: invalid priority %q", ErrValidation, *input.Priority)
		}
		task.Priority = *input.Priority
	}
	if input.DueDate != nil {
		task.DueDate = *input.DueDate
	}
	if input.ClearAssignee {
		task.AssigneeID = nil
	} else if input.AssigneeID != nil {
		task.AssigneeID = input.AssigneeID
	}

	if err := s.checkAssigneeInvariant(task); err != nil {
		return nil, err
	}

	applyStatusSideEffects(task)

	if err := s.db.Save(task).Error; err != nil {
		return nil, err
	}

	s.events.Record(analytics.Entry{
		UserID:     actor.ID,
		EventType:  database.EventTaskUpdated,
		EntityType: "task",
		EntityID:   task.ID,
		Metadata:   database.JSONObject{"status": task.Status},
	})

	return task, nil
}

// AssignTask assigns the task to a project member. Scrum-master-only; a
// non-member assignee is rejected and the prior assignee is preserved.
func (s *Service) AssignTask(actor *database.User, taskID, userID uuid.UUID) (*database.Task, error) {
	if !policy.Can(actor, policy.ActionAssignTask, nil) {
		return nil, ErrForbidden
	}

	task, err := s.GetTask(actor, taskID)
	if err != nil {
		return nil, err
	}

	var assignee database.User
	if err := s.db.First(&assignee, "id = ?", userID).Error; err != nil {
		return nil, ErrNotFound
	}

	isMember, err := s.members.IsMember(task.ProjectID, assignee.ID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, ErrAssigneeNotMember
	}

	task.AssigneeID = &assignee.ID
	if err := s.db.Save(task).Error; err != nil {
		return nil, err
	}

	s.events.Record(analytics.Entry{
		UserID:     actor.ID,
		EventType:  database.EventTaskAssigned,
		EntityType: "task",
		EntityID:   task.ID,
		Metadata:   database.JSONObject{"assignee_id": assignee.ID.String()},
	})

	s.notify(assignee.ID, database.NotificationTaskAssigned,
		"Task assigned", fmt.Sprintf("You have been assigned to %q", task.Title),
		fmt.Sprintf("/tasks/%s", task.ID))

	return task, nil
}

// UnassignTask clears the task's assignee. Scrum-master-only.
func (s *Service) UnassignTask(actor *database.User, taskID uuid.UUID) (*database.Task, error) {
	if !policy.Can(actor, policy.ActionUnassignTask, nil) {
		return nil, ErrForbidden
	}

	task, err := s.GetTask(actor, taskID)
	if err != nil {
		return nil, err
	}

	task.AssigneeID = nil
	if err := s.db.Save(task).Error; err != nil {
		return nil, err
	}

	return task, nil
}

// ChangeStatus moves the task to a new board state. Any state may move to
// any other; entering done stamps completed_at and leaving done clears it.
// Emits task_completed when the target is done, task_moved otherwise.
func (s *Service) ChangeStatus(actor *database.User, taskID uuid.UUID, status string) (*database.Task, error) {
	if !database.IsValidTaskStatus(status) {
		return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, status)
	}

	task, err := s.GetTask(actor, taskID)
	if err != nil {
		return nil, err
	}

	if !policy.Can(actor, policy.ActionChangeTaskStatus, task) {
		return nil, ErrForbidden
	}

	if err := s.checkAssigneeInvariant(task); err != nil {
		return nil, err
	}

	task.Status = status
	applyStatusSideEffects(task)

	if err := s.db.Save(task).Error; err != nil {
		return nil, err
	}

	eventType := database.EventTaskMoved
	if status == database.TaskStatusDone {
		eventType = database.EventTaskCompleted
	}
	s.events.Record(analytics.Entry{
		UserID:     actor.ID,
		EventType:  eventType,
		EntityType: "task",
		EntityID:   task.ID,
		Metadata:   database.JSONObject{"to_status": status},
	})

	return task, nil
}

// ChangePriority sets the task priority. Scrum-master-only; no side effects
// beyond persistence.
func (s *Service) ChangePriority(actor *database.User, taskID uuid.UUID, priority string) (*database.Task, error) {
	if !database.IsValidPriority(priority) {
		return nil, fmt.Errorf("%w: invalid priority %q", ErrValidation, priority)
	}

	if !policy.Can(actor, policy.ActionChangePriority, nil) {
		return nil, ErrForbidden
	}

	task, err := s.GetTask(actor, taskID)
	if err != nil {
		return nil, err
	}

	task.Priority = priority
	if err := s.db.Save(task).Error; err != nil {
		return nil, err
	}

	return task, nil
}

// AddComment attaches a comment to a task visible to the actor.
func (s *Service) AddComment(actor *database.User, taskID uuid.UUID, content string) (*database.TaskComment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}

	task, err := s.GetTask(actor, taskID)
	if err != nil {
		return nil, err
	}

	comment := database.TaskComment{
		TaskID:  task.ID,
		UserID:  actor.ID,
		Content: content,
	}
	if err := s.db.Create(&comment).Error; err != nil {
		return nil, err
	}

	s.events.Record(analytics.Entry{
		UserID:     actor.ID,
		EventType:  database.EventCommentAdded,
		EntityType: "task",
		EntityID:   task.ID,
	})

	return &comment, nil
}

// Comments lists a task's comments, newest first.
func (s *Service) Comments(actor *database.User, taskID uuid.UUID) ([]database.TaskComment, error) {
	task, err := s.GetTask(actor, taskID)
	if err != nil {
		return nil, err
	}

	var comments []database.TaskComment
	err = s.db.Where("task_id = ?", task.ID).
		Order("created_at DESC").
		Find(&comments).Error
	return comments, err
}

// AddAttachment records an uploaded file against a task. The blob itself is
// stored by the storage service before this is called.
func (s *Service) AddAttachment(actor *database.User, taskID uuid.UUID, filename, key string, sizeBytes int64) (*database.TaskAttachment, error) {
	task, err := s.GetTask(actor, taskID)
	if err != nil {
		return nil, err
	}

	attachment := database.TaskAttachment{
		TaskID:       task.ID,
		UploadedByID: actor.ID,
		Filename:     filename,
		Key:          key,
		SizeBytes:    sizeBytes,
	}
	if err := s.db.Create(&attachment).Error; err != nil {
		return nil, err
	}

	s.events.Record(analytics.Entry{
		UserID:     actor.ID,
		EventType:  database.EventFileUploaded,
		EntityType: "task",
		EntityID:   task.ID,
		Metadata:   database.JSONObject{"filename": filename},
	})

	return &attachment, nil
}

// Attachments lists a task's attachments, newest first.
func (s *Service) Attachments(actor *database.User, taskID uuid.UUID) ([]database.TaskAttachment, error) {
	task, err := s.GetTask(actor, taskID)
	if err != nil {
		return nil, err
	}

	var attachments []database.TaskAttachment
	err = s.db.Where("task_id = ?", task.ID).
		Order("uploaded_at DESC").
		Find(&attachments).Error
	return attachments, err
}
