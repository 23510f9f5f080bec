package user

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskflow/app/database"
)

var ErrNotificationNotFound = errors.New("notification not found")

// Notifications lists the user's notifications, newest first.
func (s *Service) Notifications(userID uuid.UUID) ([]database.Notification, error) {
	var notifications []database.Notification
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&notifications).Error
	return notifications, err
}

// MarkNotificationRead marks one of the user's notifications as read.
func (s *Service) MarkNotificationRead(userID, notificationID uuid.UUID) error {
	var n database.Notification
	result := s.db.First(&n, "id = ? AND user_id = ?", notificationID, userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return result.Error
	}

	return s.db.Model(&n).Update("is_read", true).Error
}

// MarkAllNotificationsRead marks every unread notification for the user.
func (s *Service) MarkAllNotificationsRead(userID uuid.UUID) error {
	return s.db.Model(&database.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}
