package repositories

import (
	"strings"

	"gorm.io/gorm"
)

// Page selects one page of a list query. Number starts at 1.
type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// Paginate is a gorm scope limiting a query to the rows of p.
func Paginate(p Page) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p.Size <= 0 {
			return db
		}
		return db.Offset(p.Offset()).Limit(p.Size)
	}
}

// likeEscape is the ESCAPE character of containsPattern.
const likeEscape = "!"

var likeEscaper = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

// containsPattern builds a case-insensitive LIKE pattern matching s anywhere.
// Wildcards in s match literally, so queries must add "ESCAPE '!'".
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
