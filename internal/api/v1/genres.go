package v1

import (
	"errors"
	"fmt"

	"github.com/akulinin/mediascore/internal/auth"
	"github.com/akulinin/mediascore/internal/models"
	"github.com/akulinin/mediascore/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ListGenres is public. Same shape and ordering as the category list.
func ListGenres(c *fiber.Ctx) error {
	ctx := c.UserContext()
	limit, offset := pageParams(c)

	q := DB.WithContext(ctx).Model(&models.Genre{})
	if search := c.Query("search"); search != "" {
		q = q.Where("name LIKE ?", "%"+search+"%")
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to count genres: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to list genres.",
		})
	}

	var genres []models.Genre
	if err := q.Order("name").Limit(limit).Offset(offset).Find(&genres).Error; err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to list genres: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to list genres.",
		})
	}

	results := make([]fiber.Map, 0, len(genres))
	for i := range genres {
		results = append(results, classifierJSON(genres[i].Name, genres[i].Slug))
	}
	return c.Status(fiber.StatusOK).JSON(newPage(c, count, limit, offset, results))
}

// CreateGenre is admin only.
func CreateGenre(c *fiber.Ctx) error {
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
	genre := models.Genre{Name: name, Slug: slugVal}
	if err := DB.WithContext(ctx).Create(&genre).Error; err != nil {
		if isDuplicate(err) {
			fe := utils.FieldErrors{}
			fe.Add("slug", fmt.Sprintf("Genre with slug %s already exists.", slugVal))
			return fieldErrors(c, fe)
		}
		Logger.Error(ctx).WithFields(err).Logs("Failed to create genre: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to create genre.",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(classifierJSON(genre.Name, genre.Slug))
}

// DeleteGenre is admin only. Link rows to titles are removed; the titles
// themselves survive.
func DeleteGenre(c *fiber.Ctx) error {
	if d := auth.ReadOnlyOrAdmin(auth.CurrentUser(c), false); d != nil {
		return deny(c, d)
	}

	ctx := c.UserContext()
	var genre models.Genre
	if err := DB.WithContext(ctx).Where("slug = ?", c.Params("slug")).First(&genre).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c)
		}
		Logger.Error(ctx).WithFields(err).Logs("Failed to load genre: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to load genre.",
		})
	}
	err := DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("genre_id = ?", genre.ID).Delete(&models.GenreTitle{}).Error; err != nil {
			return err
		}
		return tx.Delete(&genre).Error
	})
	if err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to delete genre: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to delete genre.",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}
