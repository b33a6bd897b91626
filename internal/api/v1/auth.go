package v1

import (
	"errors"
	"fmt"
	"strings"

	"github.com/akulinin/mediascore/internal/auth"
	"github.com/akulinin/mediascore/internal/models"
	"github.com/akulinin/mediascore/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Signup creates an account or re-issues a confirmation code for an
// existing one. Open to anonymous callers. The decision table:
// exact (username, email) match means a re-request; a partial match on
// either field is a collision and fails on that field; no match creates
// a new account with the user role.
func Signup(c *fiber.Ctx) error {
	type signupInput struct {
		Username  string `json:"username" validate:"required,max=150,username"`
		Email     string `json:"email" validate:"required,max=254,email"`
		FirstName string `json:"first_name" validate:"omitempty,max=150"`
		LastName  string `json:"last_name" validate:"omitempty,max=150"`
		Bio       string `json:"bio"`
	}
	in := new(signupInput)
	if err := utils.ParseBody(c, in); err != nil {
		return parseError(c, err)
	}

	fe := utils.FieldErrors{}
	if ve := Validator.Validate(in); ve != nil {
		fe.Merge(ve)
	}
	if strings.EqualFold(in.Username, "me") {
		fe.Add("username", fmt.Sprintf("%q is not allowed as a username.", in.Username))
	}
	if len(fe) > 0 {
		return fieldErrors(c, fe)
	}

	ctx := c.UserContext()

	var user models.User
	err := DB.WithContext(ctx).
		Where("username = ? AND email = ?", in.Username, in.Email).
		First(&user).Error
	switch {
	case err == nil:
		// Re-request for the same account: fall through and reissue the code.
	case errors.Is(err, gorm.ErrRecordNotFound):
		if fe := signupCollisions(c, in.Username, in.Email); len(fe) > 0 {
			return fieldErrors(c, fe)
		}
		user = models.User{
			Username:  in.Username,
			Email:     in.Email,
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Bio:       in.Bio,
			Role:      models.RoleUser,
		}
		if err := DB.WithContext(ctx).Create(&user).Error; err != nil {
			if !isDuplicate(err) {
				Logger.Error(ctx).WithFields(err).Logs("Failed to create user: %v")
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"detail": "Failed to create user.",
				})
			}
			// Lost a race against a concurrent signup. If the winner is the
			// same (username, email) pair this is now a re-request; anything
			// else is a collision.
			if fe := signupCollisions(c, in.Username, in.Email); len(fe) > 0 {
				return fieldErrors(c, fe)
			}
			if err := DB.WithContext(ctx).
				Where("username = ? AND email = ?", in.Username, in.Email).
				First(&user).Error; err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"detail": "Failed to create user.",
				})
			}
		}
	default:
		Logger.Error(ctx).WithFields(err).Logs("Failed to look up user: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to process signup.",
		})
	}

	code, err := utils.GenerateConfirmationCode()
	if err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to generate confirmation code: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to generate confirmation code.",
		})
	}
	if err := DB.WithContext(ctx).Model(&user).Update("confirmation_code", code).Error; err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to store confirmation code: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to process signup.",
		})
	}

	// Delivery failure is deliberately swallowed: the code is persisted and
	// signup can be repeated to resend it.
	if err := utils.SendConfirmationEmail(ctx, EmailCfg, user.Email, user.Username, code, Logger); err != nil {
		Logger.Warn(ctx).WithFields(user.Email).Logs("Confirmation email to %s failed, user kept")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"username":   in.Username,
		"email":      in.Email,
		"first_name": in.FirstName,
		"last_name":  in.LastName,
		"bio":        in.Bio,
	})
}

// signupCollisions reports partial username/email matches against other
// accounts as field-level errors.
func signupCollisions(c *fiber.Ctx, username, email string) utils.FieldErrors {
	ctx := c.UserContext()
	fe := utils.FieldErrors{}

	var usernameTaken, emailTaken int64
	DB.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&usernameTaken)
	DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&emailTaken)

	if usernameTaken > 0 && emailTaken > 0 {
		// The exact pair is handled by the caller; both fields taken here
		// means they belong to different accounts.
		fe.Add("username", fmt.Sprintf("User with username %s already exists.", username))
		fe.Add("email", fmt.Sprintf("User with email %s already exists.", email))
	} else if usernameTaken > 0 {
		fe.Add("username", fmt.Sprintf("User with username %s already exists.", username))
	} else if emailTaken > 0 {
		fe.Add("email", fmt.Sprintf("User with email %s already exists.", email))
	}
	return fe
}

// IssueToken exchanges a confirmation code for an access token. The code
// is single use: it is cleared on success, so a replay fails validation.
func IssueToken(c *fiber.Ctx) error {
	type tokenInput struct {
		Username         string `json:"username" validate:"required,max=150"`
		ConfirmationCode string `json:"confirmation_code" validate:"required"`
	}
	in := new(tokenInput)
	if err := utils.ParseBody(c, in); err != nil {
		return parseError(c, err)
	}
	if fe := Validator.Validate(in); fe != nil {
		return fieldErrors(c, fe)
	}

	ctx := c.UserContext()

	var user models.User
	if err := DB.WithContext(ctx).Where("username = ?", in.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c)
		}
		Logger.Error(ctx).WithFields(err).Logs("Failed to look up user: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to process token request.",
		})
	}

	if user.ConfirmationCode == "" || user.ConfirmationCode != in.ConfirmationCode {
		fe := utils.FieldErrors{}
		fe.Add("confirmation_code", "Invalid confirmation code.")
		return fieldErrors(c, fe)
	}

	if err := DB.WithContext(ctx).Model(&user).Update("confirmation_code", "").Error; err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to clear confirmation code: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to process token request.",
		})
	}

	token, err := auth.GenerateAccessToken(user.ID)
	if err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to issue access token: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to issue token.",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"token": token})
}
