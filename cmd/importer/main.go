package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/akulinin/mediascore/internal/config"
	"github.com/akulinin/mediascore/internal/db"
	"github.com/akulinin/mediascore/internal/models"
	"github.com/akulinin/mediascore/pkg/logger"
	"github.com/akulinin/mediascore/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seed data importer. Reads the CSV files from DATA_DIR and upserts them
// in dependency order, keeping the ids from the files.
func main() {
	ctx := context.Background()

	cfg := config.LoadConfig()

	log, err := logger.NewLogger(logger.WithAppName("mediascore-importer"))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer log.Close()

	gormDB, err := db.NewDB(ctx, cfg.DSN(), models.All(), db.WithLogger(log), models.SetupJoinTables)
	if err != nil {
		log.Error(ctx).WithMeta(utils.Map{"error": err.Error()}).Logs("Failed to initialize PostgreSQL database")
		panic("DB init failed")
	}
	defer db.CloseDB(log)

	imp := importer{db: gormDB, log: log, dir: cfg.DataDir}

	steps := []struct {
		file string
		fn   func(context.Context, []map[string]string) error
	}{
		{"users.csv", imp.users},
		{"category.csv", imp.categories},
		{"genre.csv", imp.genres},
		{"titles.csv", imp.titles},
		{"genre_title.csv", imp.genreTitles},
		{"review.csv", imp.reviews},
		{"comments.csv", imp.comments},
	}
	for _, step := range steps {
		rows, err := readCSV(filepath.Join(imp.dir, step.file))
		if err != nil {
			log.Error(ctx).WithFields(step.file, err).Logs("Failed to read %s: %v")
			os.Exit(1)
		}
		if err := step.fn(ctx, rows); err != nil {
			log.Error(ctx).WithFields(step.file, err).Logs("Failed to import %s: %v")
			os.Exit(1)
		}
		log.Info(ctx).WithFields(len(rows), step.file).Logs("Imported %d rows from %s")
	}
}

type importer struct {
	db  *gorm.DB
	log *logger.Logger
	dir string
}

// readCSV loads a file as a slice of header-keyed rows.
func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows []map[string]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]string, len(header))
		for i, key := range header {
			if i < len(record) {
				row[key] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func atoi(s string) uint {
	n, _ := strconv.Atoi(s)
	return uint(n)
}

// parsePubDate accepts the timestamp formats the seed files use.
func parsePubDate(s string) time.Time {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

func (imp *importer) upsert(ctx context.Context, value interface{}) error {
	return imp.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(value).Error
}

func (imp *importer) users(ctx context.Context, rows []map[string]string) error {
	for _, row := range rows {
		role := models.Role(row["role"])
		if !role.Valid() {
			role = models.RoleUser
		}
		user := models.User{
			ID:        atoi(row["id"]),
			Username:  row["username"],
			Email:     row["email"],
			Role:      role,
			Bio:       row["bio"],
			FirstName: row["first_name"],
			LastName:  row["last_name"],
		}
		if err := imp.upsert(ctx, &user); err != nil {
			return err
		}
	}
	return nil
}

func (imp *importer) categories(ctx context.Context, rows []map[string]string) error {
	for _, row := range rows {
		cat := models.Category{ID: atoi(row["id"]), Name: row["name"], Slug: row["slug"]}
		if err := imp.upsert(ctx, &cat); err != nil {
			return err
		}
	}
	return nil
}

func (imp *importer) genres(ctx context.Context, rows []map[string]string) error {
	for _, row := range rows {
		genre := models.Genre{ID: atoi(row["id"]), Name: row["name"], Slug: row["slug"]}
		if err := imp.upsert(ctx, &genre); err != nil {
			return err
		}
	}
	return nil
}

func (imp *importer) titles(ctx context.Context, rows []map[string]string) error {
	for _, row := range rows {
		year, _ := strconv.Atoi(row["year"])
		title := models.Title{
			ID:         atoi(row["id"]),
			Name:       row["name"],
			Year:       year,
			CategoryID: atoi(row["category"]),
		}
		if err := imp.upsert(ctx, &title); err != nil {
			return err
		}
	}
	return nil
}

func (imp *importer) genreTitles(ctx context.Context, rows []map[string]string) error {
	for _, row := range rows {
		link := models.GenreTitle{TitleID: atoi(row["title_id"]), GenreID: atoi(row["genre_id"])}
		err := imp.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (imp *importer) reviews(ctx context.Context, rows []map[string]string) error {
	for _, row := range rows {
		score, _ := strconv.Atoi(row["score"])
		review := models.Review{
			ID:       atoi(row["id"]),
			TitleID:  atoi(row["title_id"]),
			Text:     row["text"],
			AuthorID: atoi(row["author"]),
			Score:    score,
			PubDate:  parsePubDate(row["pub_date"]),
		}
		if err := imp.upsert(ctx, &review); err != nil {
			return err
		}
	}
	return nil
}

func (imp *importer) comments(ctx context.Context, rows []map[string]string) error {
	for _, row := range rows {
		comment := models.Comment{
			ID:       atoi(row["id"]),
			ReviewID: atoi(row["review_id"]),
			Text:     row["text"],
			AuthorID: atoi(row["author"]),
			PubDate:  parsePubDate(row["pub_date"]),
		}
		if err := imp.upsert(ctx, &comment); err != nil {
			return err
		}
	}
	return nil
}
