package models

// Category groups titles, e.g. "film" or "book". Deleting a category leaves
// its titles in place with no category.
type Category struct {
	ID   uint   `gorm:"primarykey"`
	Name string `gorm:"size:256;not null"`
	Slug string `gorm:"size:50;not null;uniqueIndex"`
}

type Genre struct {
	ID   uint   `gorm:"primarykey"`
	Name string `gorm:"size:256;not null"`
	Slug string `gorm:"size:50;not null;uniqueIndex"`
}

// Title is a catalogued work. Rating is not stored, it is computed from the
// title's reviews when the row is loaded through TitleRepository.
type Title struct {
	ID          uint      `gorm:"primarykey"`
	Name        string    `gorm:"size:256;not null;index"`
	Year        int       `gorm:"not null;index"`
	Description string    `gorm:"type:text"`
	CategoryID  *uint     `gorm:"index"`
	Category    *Category `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Genres      []Genre   `gorm:"many2many:title_genres;constraint:OnDelete:CASCADE;"`
	Rating      *float64  `gorm:"->;-:migration"`
}
