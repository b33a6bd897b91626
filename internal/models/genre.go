package models

// Genre tags titles; a title carries any number of genres via GenreTitle.
type Genre struct {
	ID   uint   `gorm:"primaryKey" json:"-"`
	Name string `gorm:"size:256;not null" json:"name"`
	Slug string `gorm:"size:50;not null;uniqueIndex" json:"slug"`
}
