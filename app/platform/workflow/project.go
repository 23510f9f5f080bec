package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskflow/app/database"
	"taskflow/app/platform/analytics"
	"taskflow/app/platform/membership"
	"taskflow/app/platform/policy"
)

type ProjectInput struct {
	Name        string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Status      string
}

func validateProjectInput(input *ProjectInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if input.Status == "" {
		input.Status = database.ProjectStatusPlanning
	}
	if !database.IsValidProjectStatus(input.Status) {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, input.Status)
	}
	if !input.StartDate.IsZero() && !input.EndDate.IsZero() && input.EndDate.Before(input.StartDate) {
		return fmt.Errorf("%w: end date precedes start date", ErrValidation)
	}
	return nil
}

// CreateProject persists the project and the creator's admin membership in
// one transaction, then emits project_created best-effort.
func (s *Service) CreateProject(actor *database.User, input ProjectInput) (*database.Project, error) {
	if !policy.Can(actor, policy.ActionCreateProject, nil) {
		return nil, ErrForbidden
	}

	if err := validateProjectInput(&input); err != nil {
		return nil, err
	}

	project := database.Project{
		Name:        input.Name,
		Description: input.Description,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Status:      input.Status,
		CreatedByID: actor.ID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		return membership.NewService(tx).EnsureCreatorMembership(&project)
	})
	if err != nil {
		return nil, err
	}

	s.events.Record(analytics.Entry{
		UserID:     actor.ID,
		EventType:  database.EventProjectCreated,
		EntityType: "project",
		EntityID:   project.ID,
		Metadata:   database.JSONObject{"name": project.Name},
	})

	s.log.Info().Str("project_id", project.ID.String()).Str("user_id", actor.ID.String()).Msg("project created")

	return &project, nil
}

// UpdateProject applies changed attributes. Scrum-master-only, and the
// project must be visible to the actor.
func (s *Service) UpdateProject(actor *database.User, projectID uuid.UUID, input ProjectInput) (*database.Project, error) {
	if !policy.Can(actor, policy.ActionUpdateProject, nil) {
		return nil, ErrForbidden
	}

	project, err := s.GetProject(actor, projectID)
	if err != nil {
		return nil, err
	}

	if err := validateProjectInput(&input); err != nil {
		return nil, err
	}

	project.Name = input.Name
	project.Description = input.Description
	project.Status = input.Status
	if !input.StartDate.IsZero() {
		project.StartDate = input.StartDate
	}
	if !input.EndDate.IsZero() {
		project.EndDate = input.EndDate
	}

	if err := s.db.Save(project).Error; err != nil {
		return nil, err
	}

	s.events.Record(analytics.Entry{
		UserID:     actor.ID,
		EventType:  database.EventProjectUpdated,
		EntityType: "project",
		EntityID:   project.ID,
		Metadata:   database.JSONObject{"name": project.Name},
	})

	return project, nil
}

// ListProjects returns the projects visible to the actor: employees see only
// projects they are members of; scrum masters see projects they created or
// belong to.
func (s *Service) ListProjects(actor *database.User) ([]database.Project, error) {
	memberOf := s.db.Model(&database.ProjectMember{}).
		Select("project_id").
		Where("user_id = ?", actor.ID)

	q := s.db.Order("created_at DESC")
	if actor.Role == database.RoleEmployee && !actor.IsSuperuser {
		q = q.Where("id IN (?)", memberOf)
	} else {
		q = q.Where("created_by_id = ? OR id IN (?)", actor.ID, memberOf)
	}

	var projects []database.Project
	err := q.Find(&projects).Error
	return projects, err
}

// GetProject fetches a project if it is visible to the actor; invisible
// projects are indistinguishable from missing ones.
func (s *Service) GetProject(actor *database.User, projectID uuid.UUID) (*database.Project, error) {
	var project database.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		return nil, ErrNotFound
	}

	if actor.IsSuperuser {
		return &project, nil
	}

	isMember, err := s.members.IsMember(projectID, actor.ID)
	if err != nil {
		return nil, err
	}
	if isMember {
		return &project, nil
	}
	if actor.IsScrumMaster() && project.CreatedByID == actor.ID {
		return &project, nil
	}

	return nil, ErrNotFound
}

// AddMember adds a user to the project. Scrum-master-only; duplicate
// membership is a conflict.
func (s *Service) AddMember(actor *database.User, projectID, userID uuid.UUID, role string) (*database.ProjectMember, error) {
	if !policy.Can(actor, policy.ActionAddMember, nil) {
		return nil, ErrForbidden
	}

	project, err := s.GetProject(actor, projectID)
	if err != nil {
		return nil, err
	}

	var u database.User
	if err := s.db.First(&u, "id = ?", userID).Error; err != nil {
		return nil, ErrNotFound
	}

	if role != "" && !database.IsValidMemberRole(role) {
		return nil, fmt.Errorf("%w: invalid member role %q", ErrValidation, role)
	}

	member, err := s.members.AddMember(project.ID, u.ID, role)
	if err != nil {
		return nil, err
	}
	member.User = &u

	return member, nil
}

// RemoveMember removes a user from the project. Scrum-master-only.
func (s *Service) RemoveMember(actor *database.User, projectID, userID uuid.UUID) error {
	if !policy.Can(actor, policy.ActionRemoveMember, nil) {
		return ErrForbidden
	}

	if _, err := s.GetProject(actor, projectID); err != nil {
		return err
	}

	return s.members.RemoveMember(projectID, userID)
}

// ProjectStats summarizes task progress for a project. Derived on read,
// never stored.
type ProjectStats struct {
	ProjectID          uuid.UUID `json:"project_id"`
	ProjectName        string    `json:"project_name"`
	TotalTasks         int64     `json:"total_tasks"`
	CompletedTasks     int64     `json:"completed_tasks"`
	InProgressTasks    int64     `json:"in_progress_tasks"`
	TodoTasks          int64     `json:"todo_tasks"`
	ProgressPercentage float64   `json:"progress_percentage"`
	MembersCount       int64     `json:"members_count"`
}

func (s *Service) Stats(actor *database.User, projectID uuid.UUID) (*ProjectStats, error) {
	project, err := s.GetProject(actor, projectID)
	if err != nil {
		return nil, err
	}

	stats := ProjectStats{ProjectID: project.ID, ProjectName: project.Name}

	tasks := s.db.Model(&database.Task{}).Where("project_id = ?", project.ID)
	if err := tasks.Count(&stats.TotalTasks).Error; err != nil {
		return nil, err
	}
	countByStatus := func(status string, into *int64) error {
		return s.db.Model(&database.Task{}).
			Where("project_id = ? AND status = ?", project.ID, status).
			Count(into).Error
	}
	if err := countByStatus(database.TaskStatusDone, &stats.CompletedTasks); err != nil {
		return nil, err
	}
	if err := countByStatus(database.TaskStatusInProgress, &stats.InProgressTasks); err != nil {
		return nil, err
	}
	if err := countByStatus(database.TaskStatusTodo, &stats.TodoTasks); err != nil {
		return nil, err
	}

	if stats.TotalTasks > 0 {
		stats.ProgressPercentage = float64(stats.CompletedTasks) / float64(stats.TotalTasks) * 100
	}

	if err := s.db.Model(&database.ProjectMember{}).
		Where("project_id = ?", project.ID).
		Count(&stats.MembersCount).Error; err != nil {
		return nil, err
	}

	return &stats, nil
}
