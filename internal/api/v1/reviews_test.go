package v1

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/akulinin/mediascore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reviewsPath(titleID uint) string {
	return fmt.Sprintf("/v1/titles/%d/reviews", titleID)
}

func TestReviewCreate(t *testing.T) {
	app, gdb := newTestApp(t)
	films := createCategory(t, gdb, "Films", "films")
	title := createTitle(t, gdb, "Reviewed", 2000, films)
	user := createUser(t, gdb, "reviewer", models.RoleUser)

	t.Run("anonymous is 401", func(t *testing.T) {
		status, _ := doJSON(t, app, http.MethodPost, reviewsPath(title.ID),
			map[string]interface{}{"text": "great", "score": 9}, "")
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("authenticated user creates", func(t *testing.T) {
		status, body := doJSON(t, app, http.MethodPost, reviewsPath(title.ID),
			map[string]interface{}{"text": "great", "score": 9}, tokenFor(t, user))
		require.Equal(t, http.StatusCreated, status, "body: %v", body)
		assert.Equal(t, "great", body["text"])
		assert.EqualValues(t, 9, body["score"])
		assert.Equal(t, "reviewer", body["author"])
		assert.EqualValues(t, title.ID, body["title"])
		assert.NotEmpty(t, body["pub_date"])
	})

	t.Run("second review for same title is 400", func(t *testing.T) {
		status, body := doJSON(t, app, http.MethodPost, reviewsPath(title.ID),
			map[string]interface{}{"text": "changed my mind", "score": 2}, tokenFor(t, user))
		require.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body, "non_field_errors")
	})

	t.Run("same user may review another title", func(t *testing.T) {
		other := createTitle(t, gdb, "Another", 2001, films)
		status, _ := doJSON(t, app, http.MethodPost, reviewsPath(other.ID),
			map[string]interface{}{"text": "fine", "score": 5}, tokenFor(t, user))
		assert.Equal(t, http.StatusCreated, status)
	})

	t.Run("unknown title is 404", func(t *testing.T) {
		status, _ := doJSON(t, app, http.MethodPost, reviewsPath(9999),
			map[string]interface{}{"text": "x", "score": 5}, tokenFor(t, user))
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestReviewScoreBounds(t *testing.T) {
	app, gdb := newTestApp(t)
	films := createCategory(t, gdb, "Films", "films")
	title := createTitle(t, gdb, "Scored", 2000, films)
	user := createUser(t, gdb, "reviewer", models.RoleUser)
	token := tokenFor(t, user)

	tests := []struct {
		name    string
		payload map[string]interface{}
	}{
		{"score zero", map[string]interface{}{"text": "x", "score": 0}},
		{"score eleven", map[string]interface{}{"text": "x", "score": 11}},
		{"score missing", map[string]interface{}{"text": "x"}},
		{"text missing", map[string]interface{}{"score": 5}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := doJSON(t, app, http.MethodPost, reviewsPath(title.ID), tc.payload, token)
			require.Equal(t, http.StatusBadRequest, status, "body: %v", body)
		})
	}

	t.Run("boundary scores accepted", func(t *testing.T) {
		u1 := createUser(t, gdb, "low", models.RoleUser)
		u10 := createUser(t, gdb, "high", models.RoleUser)
		status, _ := doJSON(t, app, http.MethodPost, reviewsPath(title.ID),
			map[string]interface{}{"text": "bad", "score": 1}, tokenFor(t, u1))
		assert.Equal(t, http.StatusCreated, status)
		status, _ = doJSON(t, app, http.MethodPost, reviewsPath(title.ID),
			map[string]interface{}{"text": "perfect", "score": 10}, tokenFor(t, u10))
		assert.Equal(t, http.StatusCreated, status)
	})
}

func TestReviewUniquenessConstraint(t *testing.T) {
	_, gdb := newTestApp(t)
	films := createCategory(t, gdb, "Films", "films")
	title := createTitle(t, gdb, "Guarded", 2000, films)
	user := createUser(t, gdb, "reviewer", models.RoleUser)

	createReview(t, gdb, title, user, 5, "first")

	dup := &models.Review{
		Text:     "second",
		Score:    6,
		AuthorID: user.ID,
		TitleID:  title.ID,
		PubDate:  time.Now().UTC(),
	}
	err := gdb.Omit("Author", "Title").Create(dup).Error
	require.Error(t, err, "the composite index backs the one-review rule")
	assert.True(t, isDuplicate(err), "duplicate detection must recognize the driver error")
}

func TestReviewListAndDetail(t *testing.T) {
	app, gdb := newTestApp(t)
	films := createCategory(t, gdb, "Films", "films")
	title := createTitle(t, gdb, "Listed", 2000, films)
	u1 := createUser(t, gdb, "u1", models.RoleUser)
	u2 := createUser(t, gdb, "u2", models.RoleUser)
	r1 := createReview(t, gdb, title, u1, 4, "meh")
	createReview(t, gdb, title, u2, 9, "wow")

	status, body := doJSON(t, app, http.MethodGet, reviewsPath(title.ID), nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["count"])

	status, body = doJSON(t, app, http.MethodGet,
		fmt.Sprintf("%s/%d", reviewsPath(title.ID), r1.ID), nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "meh", body["text"])
	assert.Equal(t, "u1", body["author"])
	assert.EqualValues(t, title.ID, body["title"])

	t.Run("review under wrong title is 404", func(t *testing.T) {
		other := createTitle(t, gdb, "Other", 2001, films)
		status, _ := doJSON(t, app, http.MethodGet,
			fmt.Sprintf("%s/%d", reviewsPath(other.ID), r1.ID), nil, "")
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestReviewOrdering(t *testing.T) {
	app, gdb := newTestApp(t)
	films := createCategory(t, gdb, "Films", "films")
	title := createTitle(t, gdb, "Ranked", 2000, films)

	when := time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC)
	seed := []struct {
		user  string
		score int
		text  string
		at    time.Time
	}{
		{"early", 10, "ancient", when.Add(-time.Hour)},
		{"alice", 3, "bbb", when},
		{"bob", 7, "aaa", when},
		{"carol", 7, "zzz", when},
	}
	for _, s := range seed {
		u := createUser(t, gdb, s.user, models.RoleUser)
		r := &models.Review{
			Text:     s.text,
			Score:    s.score,
			AuthorID: u.ID,
			TitleID:  title.ID,
			PubDate:  s.at,
		}
		require.NoError(t, gdb.Omit("Author", "Title").Create(r).Error)
	}

	status, body := doJSON(t, app, http.MethodGet, reviewsPath(title.ID), nil, "")
	require.Equal(t, http.StatusOK, status)

	var texts []string
	for _, r := range results(t, body) {
		texts = append(texts, r.(map[string]interface{})["text"].(string))
	}
	assert.Equal(t, []string{"aaa", "zzz", "bbb", "ancient"}, texts,
		"newest first, same-moment ties by score desc then text")
}

func TestReviewModeration(t *testing.T) {
	app, gdb := newTestApp(t)
	films := createCategory(t, gdb, "Films", "films")
	title := createTitle(t, gdb, "Moderated", 2000, films)
	author := createUser(t, gdb, "author", models.RoleUser)
	stranger := createUser(t, gdb, "stranger", models.RoleUser)
	moderator := createUser(t, gdb, "moderator", models.RoleModerator)
	review := createReview(t, gdb, title, author, 5, "original")

	path := fmt.Sprintf("%s/%d", reviewsPath(title.ID), review.ID)

	t.Run("stranger cannot edit", func(t *testing.T) {
		status, _ := doJSON(t, app, http.MethodPatch, path,
			map[string]interface{}{"text": "vandalized"}, tokenFor(t, stranger))
		assert.Equal(t, http.StatusForbidden, status)
	})
	t.Run("anonymous cannot edit", func(t *testing.T) {
		status, _ := doJSON(t, app, http.MethodPatch, path,
			map[string]interface{}{"text": "vandalized"}, "")
		assert.Equal(t, http.StatusUnauthorized, status)
	})
	t.Run("author edits own review", func(t *testing.T) {
		status, body := doJSON(t, app, http.MethodPatch, path,
			map[string]interface{}{"score": 7}, tokenFor(t, author))
		require.Equal(t, http.StatusOK, status)
		assert.EqualValues(t, 7, body["score"])
		assert.Equal(t, "original", body["text"], "omitted fields untouched")
	})
	t.Run("moderator deletes someone else's review", func(t *testing.T) {
		comment := createComment(t, gdb, review, stranger, "under it")

		status, _ := doJSON(t, app, http.MethodDelete, path, nil, tokenFor(t, moderator))
		require.Equal(t, http.StatusNoContent, status)

		var comments int64
		require.NoError(t, gdb.Model(&models.Comment{}).Where("review_id = ?", comment.ReviewID).Count(&comments).Error)
		assert.Zero(t, comments, "comments go with the review")
	})
}
