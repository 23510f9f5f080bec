package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskflow/app/auth"
	"taskflow/app/config"
	"taskflow/app/database"
	"taskflow/app/mail"
	"taskflow/app/platform/analytics"
	puser "taskflow/app/platform/user"
	"taskflow/pkg/logger"
)

func tokenPair(cfg *config.Config, userID uuid.UUID) (string, string, error) {
	access, err := auth.GenerateAccessToken(cfg.JWTSecret, userID, time.Duration(cfg.AccessTokenTTL)*time.Second)
	if err != nil {
		return "", "", err
	}
	refresh, err := auth.GenerateRefreshToken(cfg.JWTSecret, userID)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Register creates a new account and returns a fresh token pair.
func Register(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	cfg := c.Locals("config").(*config.Config)

	input := struct {
		Username        string `json:"username" validate:"required,min=3,max=150"`
		Email           string `json:"email" validate:"required,email"`
		Password        string `json:"password" validate:"required"`
		ConfirmPassword string `json:"confirm_password" validate:"required"`
		FirstName       string `json:"first_name"`
		LastName        string `json:"last_name"`
		Role            string `json:"role"`
	}{}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if input.Password != input.ConfirmPassword {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Passwords do not match"})
	}

	userService := puser.NewService(db, logger.Get())
	u, err := userService.Register(puser.RegisterInput{
		Username:  input.Username,
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Role:      input.Role,
	})
	if err != nil {
		return platformError(c, err)
	}

	if cfg.MailgunDomain != "" {
		go func() {
			m := mail.NewMailer(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunAPIBase)
			if err := m.SendMail(mail.WelcomeEmail(cfg.MailgunDomain, u.Email, u.FirstName, u.Username, u.Role)); err != nil {
				log := logger.Get()
				log.Warn().Err(err).Str("email", u.Email).Msg("welcome mail failed")
			}
		}()
	}

	access, refresh, err := tokenPair(cfg, u.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":    u,
		"access":  access,
		"refresh": refresh,
	})
}

// Login authenticates by username or email and returns a token pair.
func Login(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	cfg := c.Locals("config").(*config.Config)

	input := struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}{}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	userService := puser.NewService(db, logger.Get())
	u, err := userService.Authenticate(input.Username, input.Password)
	if err != nil {
		return platformError(c, err)
	}

	analytics.NewService(db, logger.Get()).Record(analytics.Entry{
		UserID:     u.ID,
		EventType:  database.EventUserLogin,
		EntityType: "user",
		EntityID:   u.ID,
		IPAddress:  c.IP(),
		UserAgent:  c.Get(fiber.HeaderUserAgent),
	})

	access, refresh, err := tokenPair(cfg, u.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	return c.JSON(fiber.Map{
		"user":    u,
		"access":  access,
		"refresh": refresh,
	})
}

// RefreshToken exchanges a valid refresh token for a new access token.
func RefreshToken(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	cfg := c.Locals("config").(*config.Config)

	input := struct {
		Refresh string `json:"refresh" validate:"required"`
	}{}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	claims, err := auth.VerifyToken(cfg.JWTSecret, input.Refresh)
	if err != nil || claims["type"] != auth.TokenTypeRefresh {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid refresh token"})
	}
	userID, ok := auth.UserIDFromClaims(claims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid refresh token"})
	}

	u, err := puser.NewService(db, logger.Get()).GetByID(userID)
	if err != nil || !u.IsActive {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid refresh token"})
	}

	access, err := auth.GenerateAccessToken(cfg.JWTSecret, u.ID, time.Duration(cfg.AccessTokenTTL)*time.Second)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}

	return c.JSON(fiber.Map{"access": access})
}

// ChangePassword sets a new password for the authenticated user.
func ChangePassword(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	u := c.Locals("user").(database.User)

	input := struct {
		CurrentPassword string `json:"current_password" validate:"required"`
		NewPassword     string `json:"new_password" validate:"required"`
	}{}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	err := puser.NewService(db, logger.Get()).ChangePassword(&u, input.CurrentPassword, input.NewPassword)
	if err != nil {
		return platformError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password changed successfully"})
}

// RequestPasswordReset issues a reset token and mails it to the account owner.
func RequestPasswordReset(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)
	cfg := c.Locals("config").(*config.Config)

	input := struct {
		Email string `json:"email" validate:"required,email"`
	}{}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	u, token, err := puser.NewService(db, logger.Get()).IssuePasswordReset(input.Email)
	if err != nil {
		if errors.Is(err, puser.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "No account found with this email"})
		}
		return platformError(c, err)
	}

	if cfg.MailgunDomain != "" {
		go func() {
			m := mail.NewMailer(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunAPIBase)
			if err := m.SendMail(mail.PasswordResetEmail(cfg.MailgunDomain, cfg.FrontendURL, u.Email, u.FirstName, token)); err != nil {
				log := logger.Get()
				log.Warn().Err(err).Str("email", u.Email).Msg("reset mail failed")
			}
		}()
	}

	return c.JSON(fiber.Map{"message": "Password reset email sent"})
}

// ConfirmPasswordReset consumes a reset token and installs the new password.
func ConfirmPasswordReset(c *fiber.Ctx) error {
	db := c.Locals("db").(*gorm.DB)

	input := struct {
		Token       string `json:"token" validate:"required"`
		NewPassword string `json:"new_password" validate:"required"`
	}{}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}
	if err := config.Validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	if _, err := puser.NewService(db, logger.Get()).CompletePasswordReset(input.Token, input.NewPassword); err != nil {
		return platformError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password has been reset successfully"})
}
