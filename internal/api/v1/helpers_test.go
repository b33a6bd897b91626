package v1

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/akulinin/mediascore/internal/auth"
	"github.com/akulinin/mediascore/internal/config"
	"github.com/akulinin/mediascore/internal/models"
	"github.com/akulinin/mediascore/pkg/logger"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database migrated with the full
// schema. The DSN is derived from the test name so parallel packages do
// not share state.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)",
		strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.SetupJoinTables(gdb))
	require.NoError(t, gdb.AutoMigrate(models.All()...))
	return gdb
}

// newTestApp wires a Fiber app the way the router does, minus the outer
// rate limiting and compression.
func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	gdb := newTestDB(t)

	log, err := logger.NewLogger(logger.WithOutputDir(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(log.Close)

	Setup(gdb, nil, log, &config.Config{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
		PageSize:  10,
	})

	app := fiber.New()
	app.Use(logger.SetupLogger(log))
	app.Use(auth.New(auth.Options{DB: gdb, Logger: log}))
	Register(app)
	return app, gdb
}

func createUser(t *testing.T, gdb *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
	}
	require.NoError(t, gdb.Create(u).Error)
	return u
}

func tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := auth.GenerateAccessToken(u.ID)
	require.NoError(t, err)
	return token
}

func createCategory(t *testing.T, gdb *gorm.DB, name, slug string) *models.Category {
	t.Helper()
	cat := &models.Category{Name: name, Slug: slug}
	require.NoError(t, gdb.Create(cat).Error)
	return cat
}

func createGenre(t *testing.T, gdb *gorm.DB, name, slug string) *models.Genre {
	t.Helper()
	g := &models.Genre{Name: name, Slug: slug}
	require.NoError(t, gdb.Create(g).Error)
	return g
}

func createTitle(t *testing.T, gdb *gorm.DB, name string, year int, cat *models.Category, genres ...*models.Genre) *models.Title {
	t.Helper()
	title := &models.Title{Name: name, Year: year, CategoryID: cat.ID}
	for _, g := range genres {
		title.Genres = append(title.Genres, *g)
	}
	require.NoError(t, gdb.Create(title).Error)
	return title
}

func createReview(t *testing.T, gdb *gorm.DB, title *models.Title, author *models.User, score int, text string) *models.Review {
	t.Helper()
	r := &models.Review{
		Text:     text,
		Score:    score,
		AuthorID: author.ID,
		TitleID:  title.ID,
		PubDate:  time.Now().UTC(),
	}
	require.NoError(t, gdb.Omit("Author", "Title").Create(r).Error)
	return r
}

func createComment(t *testing.T, gdb *gorm.DB, review *models.Review, author *models.User, text string) *models.Comment {
	t.Helper()
	cm := &models.Comment{
		Text:     text,
		AuthorID: author.ID,
		ReviewID: review.ID,
		PubDate:  time.Now().UTC(),
	}
	require.NoError(t, gdb.Omit("Author", "Review").Create(cm).Error)
	return cm
}

// doJSON performs a request and decodes the JSON response body, if any.
func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, token string) (int, map[string]interface{}) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reqBody)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]interface{}
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out), "response body: %s", data)
	}
	return resp.StatusCode, out
}

// results unwraps the list envelope.
func results(t *testing.T, body map[string]interface{}) []interface{} {
	t.Helper()
	res, ok := body["results"].([]interface{})
	require.True(t, ok, "missing results in %v", body)
	return res
}
