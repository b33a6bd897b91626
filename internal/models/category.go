package models

// Category groups titles by kind of work (books, films, music, ...).
// Deleting a category cascades to its titles.
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"-"`
	Name string `gorm:"size:256;not null" json:"name"`
	Slug string `gorm:"size:50;not null;uniqueIndex" json:"slug"`
}
