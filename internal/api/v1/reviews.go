package v1

import (
	"errors"
	"time"

	"github.com/akulinin/mediascore/internal/auth"
	"github.com/akulinin/mediascore/internal/models"
	"github.com/akulinin/mediascore/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// reviewInput is the write shape for reviews. Score bounds are checked by
// hand so an explicit zero is rejected rather than skipped.
type reviewInput struct {
	Text  *string `json:"text"`
	Score *int    `json:"score"`
}

func reviewJSON(r *models.Review) fiber.Map {
	return fiber.Map{
		"id":       r.ID,
		"text":     r.Text,
		"author":   r.Author.Username,
		"score":    r.Score,
		"title":    r.TitleID,
		"pub_date": formatPubDate(r.PubDate),
	}
}

func validateScore(score int) string {
	if score < 1 {
		return "Ensure this value is greater than or equal to 1."
	}
	if score > 10 {
		return "Ensure this value is less than or equal to 10."
	}
	return ""
}

// ListReviews is public; newest first.
func ListReviews(c *fiber.Ctx) error {
	title, err := fetchTitle(c, "title_id")
	if title == nil {
		return err
	}

	ctx := c.UserContext()
	limit, offset := pageParams(c)

	q := DB.WithContext(ctx).Model(&models.Review{}).Where("title_id = ?", title.ID)

	var count int64
	if err := q.Count(&count).Error; err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to count reviews: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to list reviews.",
		})
	}

	var reviews []models.Review
	err = q.Preload("Author").
		Order("pub_date DESC, title_id, score DESC, text").
		Limit(limit).Offset(offset).
		Find(&reviews).Error
	if err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to list reviews: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to list reviews.",
		})
	}

	results := make([]fiber.Map, 0, len(reviews))
	for i := range reviews {
		results = append(results, reviewJSON(&reviews[i]))
	}
	return c.Status(fiber.StatusOK).JSON(newPage(c, count, limit, offset, results))
}

// CreateReview lets any authenticated user post one review per title.
func CreateReview(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)
	if d := auth.ReadOnlyOrAuthenticated(user, false); d != nil {
		return deny(c, d)
	}
	title, err := fetchTitle(c, "title_id")
	if title == nil {
		return err
	}

	in := new(reviewInput)
	if err := utils.ParseBody(c, in); err != nil {
		return parseError(c, err)
	}

	fe := utils.FieldErrors{}
	if in.Text == nil || *in.Text == "" {
		fe.Add("text", "This field is required.")
	}
	if in.Score == nil {
		fe.Add("score", "This field is required.")
	} else if msg := validateScore(*in.Score); msg != "" {
		fe.Add("score", msg)
	}
	if len(fe) > 0 {
		return fieldErrors(c, fe)
	}

	ctx := c.UserContext()

	var existing int64
	DB.WithContext(ctx).Model(&models.Review{}).
		Where("title_id = ? AND author_id = ?", title.ID, user.ID).
		Count(&existing)
	if existing > 0 {
		fe.Add("non_field_errors", "You have already reviewed this title.")
		return fieldErrors(c, fe)
	}

	review := models.Review{
		Text:     *in.Text,
		Score:    *in.Score,
		AuthorID: user.ID,
		Author:   *user,
		TitleID:  title.ID,
		PubDate:  time.Now().UTC(),
	}
	if err := DB.WithContext(ctx).Omit("Author", "Title").Create(&review).Error; err != nil {
		if isDuplicate(err) {
			fe.Add("non_field_errors", "You have already reviewed this title.")
			return fieldErrors(c, fe)
		}
		Logger.Error(ctx).WithFields(err).Logs("Failed to create review: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to create review.",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(reviewJSON(&review))
}

// GetReview is public.
func GetReview(c *fiber.Ctx) error {
	review, err := fetchReview(c, "id")
	if review == nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(reviewJSON(review))
}

// UpdateReview is restricted to the author, moderators and admins.
func UpdateReview(c *fiber.Ctx) error {
	review, err := fetchReview(c, "id")
	if review == nil {
		return err
	}
	if d := auth.CanModifyObject(auth.CurrentUser(c), review.AuthorID); d != nil {
		return deny(c, d)
	}

	in := new(reviewInput)
	if err := utils.ParseBody(c, in); err != nil {
		return parseError(c, err)
	}

	fe := utils.FieldErrors{}
	if in.Score != nil {
		if msg := validateScore(*in.Score); msg != "" {
			fe.Add("score", msg)
		}
	}
	if len(fe) > 0 {
		return fieldErrors(c, fe)
	}

	if in.Text != nil {
		review.Text = *in.Text
	}
	if in.Score != nil {
		review.Score = *in.Score
	}

	ctx := c.UserContext()
	if err := DB.WithContext(ctx).Omit("Author", "Title").Save(review).Error; err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to update review: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to update review.",
		})
	}

	return c.Status(fiber.StatusOK).JSON(reviewJSON(review))
}

// DeleteReview is restricted to the author, moderators and admins. Comments
// under the review are removed with it.
func DeleteReview(c *fiber.Ctx) error {
	review, err := fetchReview(c, "id")
	if review == nil {
		return err
	}
	if d := auth.CanModifyObject(auth.CurrentUser(c), review.AuthorID); d != nil {
		return deny(c, d)
	}

	ctx := c.UserContext()
	if err := DB.WithContext(ctx).Delete(review).Error; err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to delete review: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to delete review.",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// fetchReview loads the review addressed by the path, scoped to the title
// in the path. A review id that exists under a different title is a 404.
func fetchReview(c *fiber.Ctx, param string) (*models.Review, error) {
	title, err := fetchTitle(c, "title_id")
	if title == nil {
		return nil, err
	}
	id, perr := c.ParamsInt(param)
	if perr != nil || id <= 0 {
		return nil, notFound(c)
	}

	ctx := c.UserContext()
	var review models.Review
	err = DB.WithContext(ctx).Preload("Author").
		Where("id = ? AND title_id = ?", id, title.ID).
		First(&review).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(c)
		}
		Logger.Error(ctx).WithFields(err).Logs("Failed to load review: %v")
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to load review.",
		})
	}
	return &review, nil
}
