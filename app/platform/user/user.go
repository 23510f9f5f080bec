// Package user owns user identity and the account security state machines:
// failed-login lockout and password-reset tokens.
package user

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"taskflow/app/database"
	"taskflow/pkg/utils"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrConflict           = errors.New("username or email already in use")
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrAccountInactive    = errors.New("account is deactivated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrInvalidRole        = errors.New("invalid role")
)

const (
	maxFailedLogins = 5
	lockoutDuration = 30 * time.Minute
	resetTokenTTL   = time.Hour
)

type Service struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewService(db *gorm.DB, log zerolog.Logger) *Service {
	return &Service{db: db, log: log}
}

type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// Register creates a new active account. The email is lowercase-normalized
// and both username and email must be unique.
func (s *Service) Register(input RegisterInput) (*database.User, error) {
	role := input.Role
	if role == "" {
		role = database.RoleEmployee
	}
	if role != database.RoleEmployee && role != database.RoleScrumMaster {
		return nil, ErrInvalidRole
	}

	if err := ValidatePasswordStrength(input.Password); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.TrimSpace(input.Username)
	if username == "" {
		username = email
	}

	var count int64
	if err := s.db.Model(&database.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrConflict
	}

	u := database.User{
		Username:      username,
		Email:         email,
		PasswordHash:  utils.HashPassword(input.Password),
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		Role:          role,
		IsActive:      true,
		EmailVerified: true,
	}

	if err := s.db.Create(&u).Error; err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", u.ID.String()).Str("role", u.Role).Msg("user registered")

	return &u, nil
}

// Authenticate verifies credentials for a username or email identifier.
// Failed attempts increment the lockout counter; the attempt that reaches
// the threshold locks the account for the lockout window. A successful
// login clears the counter and any expired lock.
func (s *Service) Authenticate(identifier, password string) (*database.User, error) {
	var u database.User
	result := s.db.First(&u, "username = ? OR email = ?", identifier, strings.ToLower(identifier))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}

	if u.IsAccountLocked() {
		return nil, ErrAccountLocked
	}

	if !u.IsActive {
		return nil, ErrAccountInactive
	}

	if u.PasswordHash == "" || !utils.VerifyPassword(password, u.PasswordHash) {
		if err := s.recordFailedLogin(u.ID); err != nil {
			s.log.Error().Err(err).Str("user_id", u.ID.String()).Msg("failed to record failed login")
		}
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.db.Exec(
		"UPDATE users SET failed_login_attempts = 0, account_locked = ?, locked_until = NULL, last_login = ?, last_active = ? WHERE id = ?",
		false, now, now, u.ID,
	).Error; err != nil {
		return nil, err
	}

	u.FailedLoginAttempts = 0
	u.AccountLocked = false
	u.LockedUntil = nil
	u.LastLogin = now
	u.LastActive = now

	return &u, nil
}

// recordFailedLogin increments the counter and locks the account in the same
// statement when the threshold is reached, so concurrent failures cannot
// under-count the lockout.
func (s *Service) recordFailedLogin(userID uuid.UUID) error {
	lockedUntil := time.Now().Add(lockoutDuration)
	return s.db.Exec(`
		UPDATE users SET
			failed_login_attempts = failed_login_attempts + 1,
			account_locked = CASE WHEN failed_login_attempts + 1 >= ? THEN ? ELSE account_locked END,
			locked_until = CASE WHEN failed_login_attempts + 1 >= ? THEN ? ELSE locked_until END
		WHERE id = ?`,
		maxFailedLogins, true, maxFailedLogins, lockedUntil, userID,
	).Error
}

// IssuePasswordReset generates a fresh reset token expiring in one hour,
// replacing any outstanding token for the user.
func (s *Service) IssuePasswordReset(email string) (*database.User, string, error) {
	var u database.User
	result := s.db.First(&u, "email = ?", strings.ToLower(email))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", result.Error
	}

	token := uuid.NewString()
	expires := time.Now().Add(resetTokenTTL)

	if err := s.db.Model(&u).Updates(map[string]any{
		"password_reset_token":   token,
		"password_reset_expires": expires,
	}).Error; err != nil {
		return nil, "", err
	}

	s.log.Info().Str("user_id", u.ID.String()).Msg("password reset requested")

	return &u, token, nil
}

// ValidateResetToken resolves a reset token to its user, rejecting unknown
// and expired tokens.
func (s *Service) ValidateResetToken(token string) (*database.User, error) {
	if token == "" {
		return nil, ErrInvalidResetToken
	}

	var u database.User
	result := s.db.First(&u, "password_reset_token = ?", token)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidResetToken
		}
		return nil, result.Error
	}

	if u.PasswordResetExpires == nil || !time.Now().Before(*u.PasswordResetExpires) {
		return nil, ErrInvalidResetToken
	}

	return &u, nil
}

// CompletePasswordReset sets the new password, clears the token, and stamps
// the password change in a single transaction.
func (s *Service) CompletePasswordReset(token, newPassword string) (*database.User, error) {
	u, err := s.ValidateResetToken(token)
	if err != nil {
		return nil, err
	}

	if err := ValidatePasswordStrength(newPassword); err != nil {
		return nil, err
	}

	hash := utils.HashPassword(newPassword)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Model(u).Updates(map[string]any{
			"password_hash":          hash,
			"password_reset_token":   nil,
			"password_reset_expires": nil,
			"last_password_change":   time.Now(),
			"failed_login_attempts":  0,
			"account_locked":         false,
			"locked_until":           nil,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", u.ID.String()).Msg("password reset completed")

	return u, nil
}

// ChangePassword verifies the current password before applying the new one.
func (s *Service) ChangePassword(u *database.User, currentPassword, newPassword string) error {
	if !utils.VerifyPassword(currentPassword, u.PasswordHash) {
		return ErrWrongPassword
	}

	if err := ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	return s.db.Model(u).Updates(map[string]any{
		"password_hash":        utils.HashPassword(newPassword),
		"last_password_change": time.Now(),
	}).Error
}

func (s *Service) GetByID(userID uuid.UUID) (*database.User, error) {
	var u database.User
	result := s.db.First(&u, "id = ?", userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &u, nil
}

// TouchLastActive stamps the user's last activity. Called on authenticated
// requests; losing a tick is harmless.
func (s *Service) TouchLastActive(userID uuid.UUID) {
	if err := s.db.Exec("UPDATE users SET last_active = ? WHERE id = ?", time.Now(), userID).Error; err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to update last_active")
	}
}

type ProfileInput struct {
	FirstName       *string
	LastName        *string
	Bio             *string
	JobTitle        *string
	Department      *string
	Phone           *string
	ThemePreference *string
}

// UpdateProfile applies the provided profile fields, leaving nil fields
// untouched. Role and security columns are not reachable from here.
func (s *Service) UpdateProfile(u *database.User, input ProfileInput) error {
	apply := func(target *string, value *string) {
		if value != nil {
			*target = *value
		}
	}

	apply(&u.FirstName, input.FirstName)
	apply(&u.LastName, input.LastName)
	apply(&u.Bio, input.Bio)
	apply(&u.JobTitle, input.JobTitle)
	apply(&u.Department, input.Department)
	apply(&u.Phone, input.Phone)
	apply(&u.ThemePreference, input.ThemePreference)

	return s.db.Save(u).Error
}

// Search matches usernames and names case-insensitively, capped at 10 rows.
func (s *Service) Search(query string) ([]database.User, error) {
	var users []database.User
	pattern := "%" + strings.ToLower(query) + "%"
	result := s.db.
		Where("LOWER(username) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", pattern, pattern, pattern).
		Limit(10).
		Find(&users)
	return users, result.Error
}
