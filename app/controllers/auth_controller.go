package controllers

import (
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/nmarkov/adpulse/app/models"
	"github.com/nmarkov/adpulse/app/repository"
	"github.com/nmarkov/adpulse/internal/pkg/env"
	"github.com/nmarkov/adpulse/internal/pkg/hcaptcha"
	"github.com/nmarkov/adpulse/internal/pkg/security"
	"github.com/nmarkov/adpulse/internal/pkg/utils"
)

type registerRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	CaptchaToken string `json:"captchaToken"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func tokenTTL() time.Duration {
	hours, err := strconv.Atoi(env.GetEnv("JWT_TTL_HOURS", "72"))
	if err != nil || hours <= 0 {
		hours = 72
	}
	return time.Duration(hours) * time.Hour
}

func issueToken(userID uint) (string, error) {
	return security.GenerateAccessToken(userID, tokenTTL(), env.GetEnv("JWT_SECRET", ""))
}

func userPayload(user *models.User) fiber.Map {
	return fiber.Map{
		"id":     user.ID,
		"email":  user.Email,
		"plan":   user.Plan,
		"role":   user.Role,
		"avatar": utils.GetGravatarURL(user.Email, 200),
	}
}

// HandleRegister creates an account on the free plan and returns a bearer
// token so the client is logged in right away.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Email and a password of at least 8 characters are required")
	}
	if hcaptcha.Enabled() {
		if ok, err := hcaptcha.Verify(req.CaptchaToken); !ok {
			log.Printf("register: captcha verification failed: %v", err)
			return jsonError(c, fiber.StatusBadRequest, "Captcha verification failed")
		}
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	if _, err := repo.GetByEmail(req.Email); err == nil {
		return jsonError(c, fiber.StatusConflict, "An account with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("register: email lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Registration failed")
	}

	user, err := models.CreateUser(req.Email, req.Password)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}
	if err := repo.Create(user); err != nil {
		log.Printf("register: create failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Registration failed")
	}

	token, err := issueToken(user.ID)
	if err != nil {
		log.Printf("register: token generation failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Registration failed")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"token":   token,
		"user":    userPayload(user),
	})
}

// HandleLogin verifies credentials and returns a bearer token.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Email and password are required")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusUnauthorized, "Invalid email or password")
		}
		log.Printf("login: lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Login failed")
	}
	if !user.CheckPassword(req.Password) {
		return jsonError(c, fiber.StatusUnauthorized, "Invalid email or password")
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := repo.Update(user); err != nil {
		log.Printf("login: last login update failed: %v", err)
	}

	token, err := issueToken(user.ID)
	if err != nil {
		log.Printf("login: token generation failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Login failed")
	}
	return jsonOK(c, fiber.Map{
		"token": token,
		"user":  userPayload(user),
	})
}

// HandleForgotPassword starts a password reset. The response is identical
// whether or not the email exists, so the endpoint cannot be used to probe
// for accounts. Delivery of the token is out of scope; it is logged for
// the operator to relay.
func HandleForgotPassword(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "A valid email is required")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(req.Email)
	if err == nil {
		if err := user.GenerateResetPasswordToken(); err == nil {
			if err := repo.Update(user); err != nil {
				log.Printf("forgot password: update failed: %v", err)
			} else {
				log.Printf("password reset requested for user %d, token %s", user.ID, user.ResetPasswordToken)
			}
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("forgot password: lookup failed: %v", err)
	}

	return jsonOK(c, fiber.Map{
		"message": "If the email exists, a reset token has been issued",
	})
}

// HandleResetPassword finishes a password reset with the issued token.
func HandleResetPassword(c *fiber.Ctx) error {
	var req struct {
		Token    string `json:"token" validate:"required"`
		Password string `json:"password" validate:"required,min=8"`
	}
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Token and a password of at least 8 characters are required")
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByResetPasswordToken(req.Token)
	if err != nil || !user.IsResetPasswordTokenValid(req.Token) {
		return jsonError(c, fiber.StatusBadRequest, "Invalid or expired reset token")
	}

	if err := user.SetPassword(req.Password); err != nil {
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	}
	user.ClearResetPasswordRequest()
	if err := repo.Update(user); err != nil {
		log.Printf("reset password: update failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Password reset failed")
	}

	return jsonOK(c, fiber.Map{
		"message": "Password updated",
	})
}
