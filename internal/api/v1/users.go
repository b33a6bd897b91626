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

// userInput is the write shape for accounts. Pointer fields distinguish
// an omitted field from an explicit empty value on partial updates.
type userInput struct {
	Username  *string `json:"username" validate:"omitempty,max=150,username"`
	Email     *string `json:"email" validate:"omitempty,max=254,email"`
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
	Bio       *string `json:"bio"`
	Role      *string `json:"role" validate:"omitempty,oneof=user moderator admin"`
}

func userJSON(u *models.User) fiber.Map {
	return fiber.Map{
		"username":   u.Username,
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"bio":        u.Bio,
		"role":       u.Role,
	}
}

// applyUserInput copies the provided fields onto the account. The role is
// only applied when the caller is allowed to change it.
func applyUserInput(u *models.User, in *userInput, allowRole bool) {
	if in.Username != nil {
		u.Username = *in.Username
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.Bio != nil {
		u.Bio = *in.Bio
	}
	if allowRole && in.Role != nil {
		u.Role = models.Role(*in.Role)
	}
}

// userFieldErrors runs the shared write-shape checks: format validation,
// the reserved "me" name, and uniqueness against other accounts. excludeID
// is the account being updated, or 0 on create.
func userFieldErrors(c *fiber.Ctx, in *userInput, excludeID uint) utils.FieldErrors {
	fe := utils.FieldErrors{}
	if ve := Validator.Validate(in); ve != nil {
		fe.Merge(ve)
	}
	if in.Username != nil && strings.EqualFold(*in.Username, "me") {
		fe.Add("username", fmt.Sprintf("%q is not allowed as a username.", *in.Username))
	}
	if len(fe) > 0 {
		return fe
	}

	ctx := c.UserContext()
	if in.Username != nil {
		var n int64
		DB.WithContext(ctx).Model(&models.User{}).
			Where("username = ? AND id <> ?", *in.Username, excludeID).Count(&n)
		if n > 0 {
			fe.Add("username", fmt.Sprintf("User with username %s already exists.", *in.Username))
		}
	}
	if in.Email != nil {
		var n int64
		DB.WithContext(ctx).Model(&models.User{}).
			Where("email = ? AND id <> ?", *in.Email, excludeID).Count(&n)
		if n > 0 {
			fe.Add("email", fmt.Sprintf("User with email %s already exists.", *in.Email))
		}
	}
	return fe
}

// ListUsers returns all accounts, admin only. The search parameter filters
// on username substring.
func ListUsers(c *fiber.Ctx) error {
	if d := auth.AdminOnly(auth.CurrentUser(c)); d != nil {
		return deny(c, d)
	}
	ctx := c.UserContext()
	limit, offset := pageParams(c)

	q := DB.WithContext(ctx).Model(&models.User{})
	if search := c.Query("search"); search != "" {
		q = q.Where("username LIKE ?", "%"+search+"%")
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to count users: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to list users.",
		})
	}

	var users []models.User
	if err := q.Order("username").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to list users: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to list users.",
		})
	}

	results := make([]fiber.Map, 0, len(users))
	for i := range users {
		results = append(results, userJSON(&users[i]))
	}
	return c.Status(fiber.StatusOK).JSON(newPage(c, count, limit, offset, results))
}

// CreateUser creates an account with any role, admin only. No confirmation
// email is involved; the new user still obtains a token via signup.
func CreateUser(c *fiber.Ctx) error {
	if d := auth.AdminOnly(auth.CurrentUser(c)); d != nil {
		return deny(c, d)
	}

	in := new(userInput)
	if err := utils.ParseBody(c, in); err != nil {
		return parseError(c, err)
	}

	fe := utils.FieldErrors{}
	if in.Username == nil {
		fe.Add("username", "This field is required.")
	}
	if in.Email == nil {
		fe.Add("email", "This field is required.")
	}
	fe.Merge(userFieldErrors(c, in, 0))
	if len(fe) > 0 {
		return fieldErrors(c, fe)
	}

	user := models.User{Role: models.RoleUser}
	applyUserInput(&user, in, true)

	ctx := c.UserContext()
	if err := DB.WithContext(ctx).Create(&user).Error; err != nil {
		if isDuplicate(err) {
			return fieldErrors(c, userFieldErrors(c, in, 0))
		}
		Logger.Error(ctx).WithFields(err).Logs("Failed to create user: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to create user.",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(userJSON(&user))
}

// GetUser returns one account by username, admin only.
func GetUser(c *fiber.Ctx) error {
	if d := auth.AdminOnly(auth.CurrentUser(c)); d != nil {
		return deny(c, d)
	}
	user, err := fetchUser(c)
	if user == nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(userJSON(user))
}

// UpdateUser partially updates an account, admin only. Role changes are
// allowed here, unlike on the self endpoint.
func UpdateUser(c *fiber.Ctx) error {
	if d := auth.AdminOnly(auth.CurrentUser(c)); d != nil {
		return deny(c, d)
	}
	user, err := fetchUser(c)
	if user == nil {
		return err
	}

	in := new(userInput)
	if err := utils.ParseBody(c, in); err != nil {
		return parseError(c, err)
	}
	if fe := userFieldErrors(c, in, user.ID); len(fe) > 0 {
		return fieldErrors(c, fe)
	}

	applyUserInput(user, in, true)

	ctx := c.UserContext()
	if err := DB.WithContext(ctx).Save(user).Error; err != nil {
		if isDuplicate(err) {
			return fieldErrors(c, userFieldErrors(c, in, user.ID))
		}
		Logger.Error(ctx).WithFields(err).Logs("Failed to update user: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to update user.",
		})
	}
	auth.InvalidateUser(ctx, Redis, user.ID)

	return c.Status(fiber.StatusOK).JSON(userJSON(user))
}

// DeleteUser removes an account and everything it authored, admin only.
func DeleteUser(c *fiber.Ctx) error {
	if d := auth.AdminOnly(auth.CurrentUser(c)); d != nil {
		return deny(c, d)
	}
	user, err := fetchUser(c)
	if user == nil {
		return err
	}

	ctx := c.UserContext()
	if err := DB.WithContext(ctx).Delete(user).Error; err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to delete user: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to delete user.",
		})
	}
	auth.InvalidateUser(ctx, Redis, user.ID)

	return c.SendStatus(fiber.StatusNoContent)
}

// Me returns the caller's own account. Any authenticated role.
func Me(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)
	if d := auth.Authenticated(user); d != nil {
		return deny(c, d)
	}
	return c.Status(fiber.StatusOK).JSON(userJSON(user))
}

// UpdateMe partially updates the caller's own account. For non-admin
// callers the role field is ignored, not rejected; admins keep the
// ability to change their own role.
func UpdateMe(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)
	if d := auth.Authenticated(user); d != nil {
		return deny(c, d)
	}

	in := new(userInput)
	if err := utils.ParseBody(c, in); err != nil {
		return parseError(c, err)
	}
	// For non-admins the role is read-only: dropped before validation,
	// not rejected. Admins may change their own role here.
	if !user.IsAdmin() {
		in.Role = nil
	}
	if fe := userFieldErrors(c, in, user.ID); len(fe) > 0 {
		return fieldErrors(c, fe)
	}

	applyUserInput(user, in, user.IsAdmin())

	ctx := c.UserContext()
	if err := DB.WithContext(ctx).Save(user).Error; err != nil {
		if isDuplicate(err) {
			return fieldErrors(c, userFieldErrors(c, in, user.ID))
		}
		Logger.Error(ctx).WithFields(err).Logs("Failed to update own account: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to update account.",
		})
	}
	auth.InvalidateUser(ctx, Redis, user.ID)

	return c.Status(fiber.StatusOK).JSON(userJSON(user))
}

// fetchUser loads the account named in the path, writing a 404 when it
// does not exist.
func fetchUser(c *fiber.Ctx) (*models.User, error) {
	ctx := c.UserContext()
	var user models.User
	err := DB.WithContext(ctx).Where("username = ?", c.Params("username")).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(c)
		}
		Logger.Error(ctx).WithFields(err).Logs("Failed to load user: %v")
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to load user.",
		})
	}
	return &user, nil
}
