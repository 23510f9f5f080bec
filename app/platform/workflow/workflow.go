// Package workflow owns the project and task lifecycle: creation, membership
// changes, assignment, and the task status state machine. Every mutating
// entry point is gated by the authorization policy and re-validates the
// assignee membership invariant before persisting.
package workflow

import (
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"taskflow/app/database"
	"taskflow/app/platform/analytics"
	"taskflow/app/platform/membership"
)

var (
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrAssigneeNotMember = errors.New("assignee is not a project member")
)

type Service struct {
	db      *gorm.DB
	members *membership.Service
	events  *analytics.Service
	log     zerolog.Logger
}

func NewService(db *gorm.DB, members *membership.Service, events *analytics.Service, log zerolog.Logger) *Service {
	return &Service{db: db, members: members, events: events, log: log}
}

// notify inserts a notification row. Best-effort; a failure is logged and
// never fails the triggering operation.
func (s *Service) notify(userID uuid.UUID, kind, title, message, link string) {
	n := database.Notification{
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
		Link:    link,
	}
	if err := s.db.Create(&n).Error; err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to create notification")
	}
}
