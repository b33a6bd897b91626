package v1

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/akulinin/mediascore/internal/auth"
	"github.com/akulinin/mediascore/internal/models"
	"github.com/akulinin/mediascore/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// titleInput is the write shape for titles. Category and genres are
// referenced by slug; the read shape expands them to full objects.
type titleInput struct {
	Name        *string   `json:"name" validate:"omitempty,max=256"`
	Year        *int      `json:"year"`
	Description *string   `json:"description"`
	Genre       *[]string `json:"genre"`
	Category    *string   `json:"category"`
}

// titleWriteJSON renders the response of create and update: category and
// genres stay slugs and no rating is computed, mirroring the write shape.
func titleWriteJSON(t *models.Title) fiber.Map {
	slugs := make([]string, 0, len(t.Genres))
	for i := range t.Genres {
		slugs = append(slugs, t.Genres[i].Slug)
	}
	return fiber.Map{
		"id":          t.ID,
		"name":        t.Name,
		"year":        t.Year,
		"description": t.Description,
		"genre":       slugs,
		"category":    t.Category.Slug,
	}
}

// titleJSON renders the read shape. rating is nil until the first review.
func titleJSON(t *models.Title, rating *int) fiber.Map {
	genres := make([]fiber.Map, 0, len(t.Genres))
	for i := range t.Genres {
		genres = append(genres, classifierJSON(t.Genres[i].Name, t.Genres[i].Slug))
	}
	return fiber.Map{
		"id":          t.ID,
		"name":        t.Name,
		"year":        t.Year,
		"rating":      rating,
		"description": t.Description,
		"genre":       genres,
		"category":    classifierJSON(t.Category.Name, t.Category.Slug),
	}
}

// ratingsFor computes the average score per title for the given ids.
// Averages are truncated toward zero; titles without reviews are absent
// from the map.
func ratingsFor(ctx context.Context, ids []uint) (map[uint]int, error) {
	ratings := make(map[uint]int, len(ids))
	if len(ids) == 0 {
		return ratings, nil
	}
	var rows []struct {
		TitleID uint
		Avg     float64
	}
	err := DB.WithContext(ctx).Model(&models.Review{}).
		Select("title_id, AVG(score) AS avg").
		Where("title_id IN ?", ids).
		Group("title_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		ratings[r.TitleID] = int(r.Avg)
	}
	return ratings, nil
}

func ratingPtr(ratings map[uint]int, id uint) *int {
	if v, ok := ratings[id]; ok {
		return &v
	}
	return nil
}

// ListTitles is public. Filters: category and genre by slug, year exact,
// name substring. Ordering follows category, then name, newest year first.
func ListTitles(c *fiber.Ctx) error {
	ctx := c.UserContext()
	limit, offset := pageParams(c)

	// A malformed year filter is a validation error, not an empty filter.
	var yearFilter *int
	if v := c.Query("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			fe := utils.FieldErrors{}
			fe.Add("year", "Enter a number.")
			return fieldErrors(c, fe)
		}
		yearFilter = &year
	}

	// Each call builds a fresh statement so count and fetch do not share
	// GORM clause state.
	filtered := func() *gorm.DB {
		q := DB.WithContext(ctx).Model(&models.Title{})
		if v := c.Query("category"); v != "" {
			q = q.Where("category_id IN (?)",
				DB.Model(&models.Category{}).Select("id").Where("slug = ?", v))
		}
		if v := c.Query("genre"); v != "" {
			q = q.Where("titles.id IN (?)",
				DB.Model(&models.GenreTitle{}).Select("genre_titles.title_id").
					Joins("JOIN genres ON genres.id = genre_titles.genre_id").
					Where("genres.slug = ?", v))
		}
		if yearFilter != nil {
			q = q.Where("year = ?", *yearFilter)
		}
		if v := c.Query("name"); v != "" {
			q = q.Where("name LIKE ?", "%"+v+"%")
		}
		return q
	}

	var count int64
	if err := filtered().Count(&count).Error; err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to count titles: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to list titles.",
		})
	}

	var titles []models.Title
	err := filtered().
		Preload("Category").Preload("Genres").
		Order("category_id, name, year DESC").
		Limit(limit).Offset(offset).
		Find(&titles).Error
	if err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to list titles: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to list titles.",
		})
	}

	ids := make([]uint, 0, len(titles))
	for i := range titles {
		ids = append(ids, titles[i].ID)
	}
	ratings, err := ratingsFor(ctx, ids)
	if err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to compute ratings: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to list titles.",
		})
	}

	results := make([]fiber.Map, 0, len(titles))
	for i := range titles {
		results = append(results, titleJSON(&titles[i], ratingPtr(ratings, titles[i].ID)))
	}
	return c.Status(fiber.StatusOK).JSON(newPage(c, count, limit, offset, results))
}

// resolveTitleRefs maps the category slug and genre slugs to rows, adding
// field errors for any slug that does not exist.
func resolveTitleRefs(ctx context.Context, in *titleInput, fe utils.FieldErrors) (*models.Category, []models.Genre) {
	var category *models.Category
	if in.Category != nil {
		var cat models.Category
		if err := DB.WithContext(ctx).Where("slug = ?", *in.Category).First(&cat).Error; err != nil {
			fe.Add("category", fmt.Sprintf("Object with slug=%s does not exist.", *in.Category))
		} else {
			category = &cat
		}
	}

	var genres []models.Genre
	if in.Genre != nil {
		genres = make([]models.Genre, 0, len(*in.Genre))
		for _, s := range *in.Genre {
			var g models.Genre
			if err := DB.WithContext(ctx).Where("slug = ?", s).First(&g).Error; err != nil {
				fe.Add("genre", fmt.Sprintf("Object with slug=%s does not exist.", s))
				continue
			}
			genres = append(genres, g)
		}
	}
	return category, genres
}

// CreateTitle is admin only. Year may not exceed the current calendar year.
func CreateTitle(c *fiber.Ctx) error {
	if d := auth.ReadOnlyOrAdmin(auth.CurrentUser(c), false); d != nil {
		return deny(c, d)
	}

	in := new(titleInput)
	if err := utils.ParseBody(c, in); err != nil {
		return parseError(c, err)
	}

	fe := utils.FieldErrors{}
	if in.Name == nil || *in.Name == "" {
		fe.Add("name", "This field is required.")
	}
	if in.Year == nil {
		fe.Add("year", "This field is required.")
	} else if msg := models.ValidateYear(*in.Year); msg != "" {
		fe.Add("year", msg)
	}
	if in.Category == nil {
		fe.Add("category", "This field is required.")
	}
	if in.Genre == nil {
		fe.Add("genre", "This field is required.")
	}
	if ve := Validator.Validate(in); ve != nil {
		fe.Merge(ve)
	}
	if len(fe) > 0 {
		return fieldErrors(c, fe)
	}

	ctx := c.UserContext()
	category, genres := resolveTitleRefs(ctx, in, fe)
	if len(fe) > 0 {
		return fieldErrors(c, fe)
	}

	title := models.Title{
		Name:       *in.Name,
		Year:       *in.Year,
		CategoryID: category.ID,
		Category:   *category,
		Genres:     genres,
	}
	if in.Description != nil {
		title.Description = *in.Description
	}
	if err := DB.WithContext(ctx).Create(&title).Error; err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to create title: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to create title.",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(titleWriteJSON(&title))
}

// GetTitle is public.
func GetTitle(c *fiber.Ctx) error {
	title, err := fetchTitle(c, "id")
	if title == nil {
		return err
	}
	ctx := c.UserContext()
	ratings, rerr := ratingsFor(ctx, []uint{title.ID})
	if rerr != nil {
		Logger.Error(ctx).WithFields(rerr).Logs("Failed to compute rating: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to load title.",
		})
	}
	return c.Status(fiber.StatusOK).JSON(titleJSON(title, ratingPtr(ratings, title.ID)))
}

// UpdateTitle partially updates a title, admin only. A provided genre list
// replaces the existing set.
func UpdateTitle(c *fiber.Ctx) error {
	if d := auth.ReadOnlyOrAdmin(auth.CurrentUser(c), false); d != nil {
		return deny(c, d)
	}
	title, err := fetchTitle(c, "id")
	if title == nil {
		return err
	}

	in := new(titleInput)
	if err := utils.ParseBody(c, in); err != nil {
		return parseError(c, err)
	}

	fe := utils.FieldErrors{}
	if in.Year != nil {
		if msg := models.ValidateYear(*in.Year); msg != "" {
			fe.Add("year", msg)
		}
	}
	if ve := Validator.Validate(in); ve != nil {
		fe.Merge(ve)
	}
	if len(fe) > 0 {
		return fieldErrors(c, fe)
	}

	ctx := c.UserContext()
	category, genres := resolveTitleRefs(ctx, in, fe)
	if len(fe) > 0 {
		return fieldErrors(c, fe)
	}

	if in.Name != nil {
		title.Name = *in.Name
	}
	if in.Year != nil {
		title.Year = *in.Year
	}
	if in.Description != nil {
		title.Description = *in.Description
	}
	if category != nil {
		title.CategoryID = category.ID
		title.Category = *category
	}

	err = DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Genres", "Category").Save(title).Error; err != nil {
			return err
		}
		if in.Genre != nil {
			if err := tx.Model(title).Association("Genres").Replace(genres); err != nil {
				return err
			}
			title.Genres = genres
		}
		return nil
	})
	if err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to update title: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to update title.",
		})
	}

	return c.Status(fiber.StatusOK).JSON(titleWriteJSON(title))
}

// DeleteTitle is admin only. Reviews, comments and genre links go with it.
func DeleteTitle(c *fiber.Ctx) error {
	if d := auth.ReadOnlyOrAdmin(auth.CurrentUser(c), false); d != nil {
		return deny(c, d)
	}
	title, err := fetchTitle(c, "id")
	if title == nil {
		return err
	}

	ctx := c.UserContext()
	err = DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("title_id = ?", title.ID).Delete(&models.GenreTitle{}).Error; err != nil {
			return err
		}
		return tx.Delete(title).Error
	})
	if err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to delete title: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to delete title.",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// fetchTitle loads the title addressed by the given path parameter with its
// category and genres, writing a 404 when it does not exist.
func fetchTitle(c *fiber.Ctx, param string) (*models.Title, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return nil, notFound(c)
	}

	ctx := c.UserContext()
	var title models.Title
	err = DB.WithContext(ctx).Preload("Category").Preload("Genres").First(&title, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(c)
		}
		Logger.Error(ctx).WithFields(err).Logs("Failed to load title: %v")
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to load title.",
		})
	}
	return &title, nil
}
