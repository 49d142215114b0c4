package models

import "time"

// Review is a scored opinion on a title. A user reviews a given title at most once.
type Review struct {
	ID       uint      `gorm:"primarykey"`
	TitleID  uint      `gorm:"not null;uniqueIndex:idx_reviews_author_title,priority:2"`
	Title    Title     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	AuthorID uint      `gorm:"not null;uniqueIndex:idx_reviews_author_title,priority:1"`
	Author   User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Text     string    `gorm:"type:text;not null"`
	Score    int       `gorm:"not null;check:chk_reviews_score,score >= 1 AND score <= 10"`
	PubDate  time.Time `gorm:"autoCreateTime;index"`
}

type Comment struct {
	ID       uint      `gorm:"primarykey"`
	ReviewID uint      `gorm:"not null;index"`
	Review   Review    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	AuthorID uint      `gorm:"not null;index"`
	Author   User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Text     string    `gorm:"type:text;not null"`
	PubDate  time.Time `gorm:"autoCreateTime;index"`
}
