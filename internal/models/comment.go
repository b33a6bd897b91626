package models

import "time"

// Comment is a remark on a review. The review reference is set from the
// request path and cannot be reassigned.
type Comment struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	AuthorID uint      `gorm:"not null;index" json:"-"`
	Author   User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	PubDate  time.Time `gorm:"not null;index" json:"pub_date"`
	ReviewID uint      `gorm:"not null;index" json:"-"`
	Review   Review    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
