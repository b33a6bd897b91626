package v1

import (
	"errors"
	"fmt"

	"github.com/akulinin/mediascore/internal/auth"
	"github.com/akulinin/mediascore/internal/models"
	"github.com/akulinin/mediascore/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// classifierInput is the shared write shape for categories and genres.
// A missing slug is derived from the name.
type classifierInput struct {
	Name *string `json:"name" validate:"omitempty,max=256"`
	Slug *string `json:"slug" validate:"omitempty,max=50,slugfmt"`
}

func classifierJSON(name, slugVal string) fiber.Map {
	return fiber.Map{"name": name, "slug": slugVal}
}

// resolveClassifier validates the input and returns the final (name, slug)
// pair, deriving the slug from the name when it was omitted.
func resolveClassifier(in *classifierInput) (string, string, utils.FieldErrors) {
	fe := utils.FieldErrors{}
	if in.Name == nil || *in.Name == "" {
		fe.Add("name", "This field is required.")
	}
	if ve := Validator.Validate(in); ve != nil {
		fe.Merge(ve)
	}
	if len(fe) > 0 {
		return "", "", fe
	}

	s := ""
	if in.Slug != nil && *in.Slug != "" {
		s = *in.Slug
	} else {
		s = slug.Make(*in.Name)
		if len(s) > 50 {
			s = s[:50]
		}
	}
	return *in.Name, s, nil
}

// ListCategories is public. The search parameter filters on name substring;
// results are ordered by name.
func ListCategories(c *fiber.Ctx) error {
	ctx := c.UserContext()
	limit, offset := pageParams(c)

	q := DB.WithContext(ctx).Model(&models.Category{})
	if search := c.Query("search"); search != "" {
		q = q.Where("name LIKE ?", "%"+search+"%")
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to count categories: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to list categories.",
		})
	}

	var cats []models.Category
	if err := q.Order("name").Limit(limit).Offset(offset).Find(&cats).Error; err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to list categories: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to list categories.",
		})
	}

	results := make([]fiber.Map, 0, len(cats))
	for i := range cats {
		results = append(results, classifierJSON(cats[i].Name, cats[i].Slug))
	}
	return c.Status(fiber.StatusOK).JSON(newPage(c, count, limit, offset, results))
}

// CreateCategory is admin only.
func CreateCategory(c *fiber.Ctx) error {
	if d := auth.ReadOnlyOrAdmin(auth.CurrentUser(c), false); d != nil {
		return deny(c, d)
	}

	in := new(classifierInput)
	if err := utils.ParseBody(c, in); err != nil {
		return parseError(c, err)
	}
	name, slugVal, fe := resolveClassifier(in)
	if fe != nil {
		return fieldErrors(c, fe)
	}

	ctx := c.UserContext()
	cat := models.Category{Name: name, Slug: slugVal}
	if err := DB.WithContext(ctx).Create(&cat).Error; err != nil {
		if isDuplicate(err) {
			fe := utils.FieldErrors{}
			fe.Add("slug", fmt.Sprintf("Category with slug %s already exists.", slugVal))
			return fieldErrors(c, fe)
		}
		Logger.Error(ctx).WithFields(err).Logs("Failed to create category: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to create category.",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(classifierJSON(cat.Name, cat.Slug))
}

// DeleteCategory is admin only. Titles in the category are removed with it.
func DeleteCategory(c *fiber.Ctx) error {
	if d := auth.ReadOnlyOrAdmin(auth.CurrentUser(c), false); d != nil {
		return deny(c, d)
	}

	ctx := c.UserContext()
	var cat models.Category
	if err := DB.WithContext(ctx).Where("slug = ?", c.Params("slug")).First(&cat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c)
		}
		Logger.Error(ctx).WithFields(err).Logs("Failed to load category: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to load category.",
		})
	}
	if err := DB.WithContext(ctx).Delete(&cat).Error; err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to delete category: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to delete category.",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
