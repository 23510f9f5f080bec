// Package membership owns the ProjectMember edge between users and projects.
package membership

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskflow/app/database"
)

var (
	ErrAlreadyMember = errors.New("user is already a member of this project")
	ErrNotFound      = errors.New("member not found")
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// AddMember inserts the membership edge, failing when the pair already exists.
func (s *Service) AddMember(projectID, userID uuid.UUID, role string) (*database.ProjectMember, error) {
	if role == "" {
		role = database.MemberRoleMember
	}

	exists, err := s.IsMember(projectID, userID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyMember
	}

	member := database.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
	}
	if err := s.db.Create(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (s *Service) RemoveMember(projectID, userID uuid.UUID) error {
	result := s.db.Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&database.ProjectMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) IsMember(projectID, userID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.Model(&database.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

// MembersOf lists the project's membership edges with users preloaded.
func (s *Service) MembersOf(projectID uuid.UUID) ([]database.ProjectMember, error) {
	var members []database.ProjectMember
	err := s.db.Preload("User").
		Where("project_id = ?", projectID).
		Find(&members).Error
	return members, err
}

// EnsureCreatorMembership inserts an admin membership for the project creator
// if absent. Idempotent; called at project creation but safe to repeat.
func (s *Service) EnsureCreatorMembership(project *database.Project) error {
	exists, err := s.IsMember(project.ID, project.CreatedByID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	member := database.ProjectMember{
		ProjectID: project.ID,
		UserID:    project.CreatedByID,
		Role:      database.MemberRoleAdmin,
	}
	return s.db.Create(&member).Error
}
