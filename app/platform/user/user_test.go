package user

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"taskflow/app/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(newTestDB(t), zerolog.Nop())
}

const testPassword = "Str0ng&Secret"

func registerTestUser(t *testing.T, s *Service, username, role string) *database.User {
	t.Helper()

	u, err := s.Register(RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: testPassword,
		Role:     role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u
}

func TestRegister(t *testing.T) {
	s := newTestService(t)

	u, err := s.Register(RegisterInput{
		Username: "alice",
		Email:    "Alice@Example.COM",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q; want lowercase normalized", u.Email)
	}
	if u.Role != database.RoleEmployee {
		t.Errorf("role = %q; want default %q", u.Role, database.RoleEmployee)
	}
	if !u.IsActive {
		t.Error("new account should be active")
	}

	_, err = s.Register(RegisterInput{Username: "alice", Email: "other@example.com", Password: testPassword})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate username: got %v; want ErrConflict", err)
	}
	_, err = s.Register(RegisterInput{Username: "bob", Email: "alice@example.com", Password: testPassword})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate email: got %v; want ErrConflict", err)
	}
	_, err = s.Register(RegisterInput{Username: "eve", Email: "eve@example.com", Password: testPassword, Role: "warlord"})
	if !errors.Is(err, ErrInvalidRole) {
		t.Errorf("invalid role: got %v; want ErrInvalidRole", err)
	}
	_, err = s.Register(RegisterInput{Username: "weak", Email: "weak@example.com", Password: "short"})
	if !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak password: got %v; want ErrWeakPassword", err)
	}
}

func TestAuthenticate(t *testing.T) {
	s := newTestService(t)
	registerTestUser(t, s, "alice", database.RoleEmployee)

	if _, err := s.Authenticate("alice", testPassword); err != nil {
		t.Fatalf("authenticate by username: %v", err)
	}
	if _, err := s.Authenticate("Alice@Example.com", testPassword); err != nil {
		t.Fatalf("authenticate by email: %v", err)
	}
	if _, err := s.Authenticate("nobody", testPassword); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user: got %v; want ErrNotFound", err)
	}
	if _, err := s.Authenticate("alice", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v; want ErrInvalidCredentials", err)
	}
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	s := newTestService(t)
	u := registerTestUser(t, s, "alice", database.RoleEmployee)

	if err := s.db.Model(u).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, err := s.Authenticate("alice", testPassword); !errors.Is(err, ErrAccountInactive) {
		t.Errorf("got %v; want ErrAccountInactive", err)
	}
}

func TestLockoutAfterRepeatedFailures(t *testing.T) {
	s := newTestService(t)
	u := registerTestUser(t, s, "alice", database.RoleEmployee)

	for i := 0; i < maxFailedLogins; i++ {
		if _, err := s.Authenticate("alice", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: got %v; want ErrInvalidCredentials", i+1, err)
		}
	}

	var locked database.User
	if err := s.db.First(&locked, "id = ?", u.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if locked.FailedLoginAttempts != maxFailedLogins {
		t.Errorf("failed_login_attempts = %d; want %d", locked.FailedLoginAttempts, maxFailedLogins)
	}
	if !locked.AccountLocked {
		t.Error("account should be locked after the threshold attempt")
	}
	if locked.LockedUntil == nil || !locked.LockedUntil.After(time.Now()) {
		t.Error("locked_until should be set in the future")
	}

	// Even the correct password is rejected while the lock window holds.
	if _, err := s.Authenticate("alice", testPassword); !errors.Is(err, ErrAccountLocked) {
		t.Errorf("login while locked: got %v; want ErrAccountLocked", err)
	}
}

func TestLockoutExpires(t *testing.T) {
	s := newTestService(t)
	u := registerTestUser(t, s, "alice", database.RoleEmployee)

	expired := time.Now().Add(-time.Minute)
	err := s.db.Model(u).Updates(map[string]any{
		"failed_login_attempts": maxFailedLogins,
		"account_locked":        true,
		"locked_until":          expired,
	}).Error
	if err != nil {
		t.Fatalf("seed lock: %v", err)
	}

	got, err := s.Authenticate("alice", testPassword)
	if err != nil {
		t.Fatalf("login after lock expiry: %v", err)
	}
	if got.FailedLoginAttempts != 0 || got.AccountLocked || got.LockedUntil != nil {
		t.Errorf("lock state not cleared: attempts=%d locked=%v until=%v",
			got.FailedLoginAttempts, got.AccountLocked, got.LockedUntil)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestService(t)
	u := registerTestUser(t, s, "alice", database.RoleEmployee)

	_, _, err := s.IssuePasswordReset("missing@example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown email: got %v; want ErrNotFound", err)
	}

	_, token, err := s.IssuePasswordReset("alice@example.com")
	if err != nil {
		t.Fatalf("issue reset: %v", err)
	}
	if token == "" {
		t.Fatal("expected a reset token")
	}

	resolved, err := s.ValidateResetToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if resolved.ID != u.ID {
		t.Errorf("token resolved to %s; want %s", resolved.ID, u.ID)
	}

	if _, err := s.ValidateResetToken("not-a-token"); !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("unknown token: got %v; want ErrInvalidResetToken", err)
	}

	const newPassword = "N3w&Secret!pass"
	if _, err := s.CompletePasswordReset(token, "weak"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak replacement: got %v; want ErrWeakPassword", err)
	}
	if _, err := s.CompletePasswordReset(token, newPassword); err != nil {
		t.Fatalf("complete reset: %v", err)
	}

	// The token is single-use.
	if _, err := s.CompletePasswordReset(token, newPassword); !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("token reuse: got %v; want ErrInvalidResetToken", err)
	}

	if _, err := s.Authenticate("alice", testPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password: got %v; want ErrInvalidCredentials", err)
	}
	if _, err := s.Authenticate("alice", newPassword); err != nil {
		t.Errorf("new password: %v", err)
	}
}

func TestPasswordResetTokenExpires(t *testing.T) {
	s := newTestService(t)
	u := registerTestUser(t, s, "alice", database.RoleEmployee)

	_, token, err := s.IssuePasswordReset("alice@example.com")
	if err != nil {
		t.Fatalf("issue reset: %v", err)
	}

	expired := time.Now().Add(-time.Minute)
	if err := s.db.Model(u).Update("password_reset_expires", expired).Error; err != nil {
		t.Fatalf("expire token: %v", err)
	}

	if _, err := s.ValidateResetToken(token); !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("expired token: got %v; want ErrInvalidResetToken", err)
	}
}

func TestPasswordResetClearsLockout(t *testing.T) {
	s := newTestService(t)
	registerTestUser(t, s, "alice", database.RoleEmployee)

	for i := 0; i < maxFailedLogins; i++ {
		s.Authenticate("alice", "wrong-password")
	}

	_, token, err := s.IssuePasswordReset("alice@example.com")
	if err != nil {
		t.Fatalf("issue reset: %v", err)
	}

	const newPassword = "N3w&Secret!pass"
	reset, err := s.CompletePasswordReset(token, newPassword)
	if err != nil {
		t.Fatalf("complete reset: %v", err)
	}

	var reloaded database.User
	if err := s.db.First(&reloaded, "id = ?", reset.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.FailedLoginAttempts != 0 || reloaded.AccountLocked || reloaded.LockedUntil != nil {
		t.Error("reset should clear the lockout state")
	}
	if _, err := s.Authenticate("alice", newPassword); err != nil {
		t.Errorf("login after reset: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	s := newTestService(t)
	u := registerTestUser(t, s, "alice", database.RoleEmployee)

	if err := s.ChangePassword(u, "wrong-password", "N3w&Secret!pass"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("wrong current password: got %v; want ErrWrongPassword", err)
	}
	if err := s.ChangePassword(u, testPassword, "weak"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak new password: got %v; want ErrWeakPassword", err)
	}
	if err := s.ChangePassword(u, testPassword, "N3w&Secret!pass"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := s.Authenticate("alice", "N3w&Secret!pass"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	s := newTestService(t)
	u := registerTestUser(t, s, "alice", database.RoleEmployee)

	bio := "Backend engineer"
	phone := "06-12345678"
	if err := s.UpdateProfile(u, ProfileInput{Bio: &bio, Phone: &phone}); err != nil {
		t.Fatalf("update profile: %v", err)
	}

	reloaded, err := s.GetByID(u.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Bio != bio || reloaded.Phone != phone {
		t.Errorf("profile not applied: bio=%q phone=%q", reloaded.Bio, reloaded.Phone)
	}
	if reloaded.Username != "alice" {
		t.Errorf("username changed unexpectedly: %q", reloaded.Username)
	}
}

func TestSearch(t *testing.T) {
	s := newTestService(t)
	registerTestUser(t, s, "alice", database.RoleEmployee)
	registerTestUser(t, s, "alison", database.RoleScrumMaster)
	registerTestUser(t, s, "bob", database.RoleEmployee)

	users, err := s.Search("ali")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("search(ali) returned %d users; want 2", len(users))
	}
}
