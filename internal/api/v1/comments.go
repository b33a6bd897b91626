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

type commentInput struct {
	Text *string `json:"text"`
}

// commentJSON renders a comment; review is the text of the review the
// comment sits under.
func commentJSON(cm *models.Comment) fiber.Map {
	return fiber.Map{
		"id":       cm.ID,
		"text":     cm.Text,
		"author":   cm.Author.Username,
		"review":   cm.Review.Text,
		"pub_date": formatPubDate(cm.PubDate),
	}
}

// ListComments is public; newest first.
func ListComments(c *fiber.Ctx) error {
	review, err := fetchReview(c, "review_id")
	if review == nil {
		return err
	}

	ctx := c.UserContext()
	limit, offset := pageParams(c)

	q := DB.WithContext(ctx).Model(&models.Comment{}).Where("review_id = ?", review.ID)

	var count int64
	if err := q.Count(&count).Error; err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to count comments: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to list comments.",
		})
	}

	var comments []models.Comment
	err = q.Preload("Author").Preload("Review").
		Order("pub_date DESC, review_id, text").
		Limit(limit).Offset(offset).
		Find(&comments).Error
	if err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to list comments: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to list comments.",
		})
	}

	results := make([]fiber.Map, 0, len(comments))
	for i := range comments {
		results = append(results, commentJSON(&comments[i]))
	}
	return c.Status(fiber.StatusOK).JSON(newPage(c, count, limit, offset, results))
}

// CreateComment lets any authenticated user comment on a review.
func CreateComment(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)
	if d := auth.ReadOnlyOrAuthenticated(user, false); d != nil {
		return deny(c, d)
	}
	review, err := fetchReview(c, "review_id")
	if review == nil {
		return err
	}

	in := new(commentInput)
	if err := utils.ParseBody(c, in); err != nil {
		return parseError(c, err)
	}
	if in.Text == nil || *in.Text == "" {
		fe := utils.FieldErrors{}
		fe.Add("text", "This field is required.")
		return fieldErrors(c, fe)
	}

	ctx := c.UserContext()
	comment := models.Comment{
		Text:     *in.Text,
		AuthorID: user.ID,
		Author:   *user,
		ReviewID: review.ID,
		PubDate:  time.Now().UTC(),
	}
	if err := DB.WithContext(ctx).Omit("Author", "Review").Create(&comment).Error; err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to create comment: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to create comment.",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(commentJSON(&comment))
}

// GetComment is public.
func GetComment(c *fiber.Ctx) error {
	comment, err := fetchComment(c)
	if comment == nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(commentJSON(comment))
}

// UpdateComment is restricted to the author, moderators and admins.
func UpdateComment(c *fiber.Ctx) error {
	comment, err := fetchComment(c)
	if comment == nil {
		return err
	}
	if d := auth.CanModifyObject(auth.CurrentUser(c), comment.AuthorID); d != nil {
		return deny(c, d)
	}

	in := new(commentInput)
	if err := utils.ParseBody(c, in); err != nil {
		return parseError(c, err)
	}
	if in.Text != nil {
		comment.Text = *in.Text
	}

	ctx := c.UserContext()
	if err := DB.WithContext(ctx).Omit("Author", "Review").Save(comment).Error; err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to update comment: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to update comment.",
		})
	}

	return c.Status(fiber.StatusOK).JSON(commentJSON(comment))
}

// DeleteComment is restricted to the author, moderators and admins.
func DeleteComment(c *fiber.Ctx) error {
	comment, err := fetchComment(c)
	if comment == nil {
		return err
	}
	if d := auth.CanModifyObject(auth.CurrentUser(c), comment.AuthorID); d != nil {
		return deny(c, d)
	}

	ctx := c.UserContext()
	if err := DB.WithContext(ctx).Delete(comment).Error; err != nil {
		Logger.Error(ctx).WithFields(err).Logs("Failed to delete comment: %v")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to delete comment.",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// fetchComment loads the comment addressed by the path, scoped to the
// review (and transitively the title) in the path.
func fetchComment(c *fiber.Ctx) (*models.Comment, error) {
	review, err := fetchReview(c, "review_id")
	if review == nil {
		return nil, err
	}
	id, perr := c.ParamsInt("id")
	if perr != nil || id <= 0 {
		return nil, notFound(c)
	}

	ctx := c.UserContext()
	var comment models.Comment
	err = DB.WithContext(ctx).Preload("Author").Preload("Review").
		Where("id = ? AND review_id = ?", id, review.ID).
		First(&comment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(c)
		}
		Logger.Error(ctx).WithFields(err).Logs("Failed to load comment: %v")
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Failed to load comment.",
		})
	}
	return &comment, nil
}
