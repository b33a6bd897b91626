package models

import "time"

// Review is a user's single opinion of a title. The composite unique index
// on (title_id, author_id) is the authoritative guard for the one-review-
// per-author rule; handler pre-checks only improve the error message.
type Review struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	PubDate  time.Time `gorm:"not null;index" json:"pub_date"`
	AuthorID uint      `gorm:"not null;uniqueIndex:idx_reviews_title_author" json:"-"`
	Author   User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Score    int       `gorm:"not null" json:"score"`
	TitleID  uint      `gorm:"not null;uniqueIndex:idx_reviews_title_author" json:"title"`
	Title    Title     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
