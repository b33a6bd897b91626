package models

import (
	"fmt"
	"time"
)

// Title is a reviewable work. Year is validated on input and again at the
// serialization boundary; the derived rating is computed at read time and
// never stored.
type Title struct {
	ID          uint     `gorm:"primaryKey" json:"id"`
	Name        string   `gorm:"type:text;not null;index" json:"name"`
	Year        int      `gorm:"not null;index" json:"year"`
	Description string   `gorm:"type:text" json:"description"`
	CategoryID  uint     `gorm:"not null;index" json:"-"`
	Category    Category `gorm:"constraint:OnDelete:CASCADE" json:"category"`
	Genres      []Genre  `gorm:"many2many:genre_titles;constraint:OnDelete:CASCADE" json:"genre"`
}

// GenreTitle links a title to a genre. Pure join row, no identity of its own.
type GenreTitle struct {
	TitleID uint `gorm:"primaryKey"`
	GenreID uint `gorm:"primaryKey"`
}

// ValidateYear returns a non-empty message when the year is out of range.
// Valid years run from 0 through the current calendar year inclusive.
func ValidateYear(year int) string {
	if year < 0 {
		return "Year must not be negative."
	}
	if now := time.Now().Year(); year > now {
		return fmt.Sprintf("Year %d is greater than the current year.", year)
	}
	return ""
}
