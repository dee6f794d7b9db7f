package domain

import (
	"net/url"
	"strconv"
	"strings"
)

// CourseListFilter belongs to the course list view and drives the catalog
// query. Zero values mean "not filtering".
type CourseListFilter struct {
	SearchQuery string
	MinRating   int
	Category    string
}

// Categories offered by the list view's category choice.
var Categories = []string{"Programming", "Data Science", "Design"}

// MinRatingChoices offered by the list view's rating choice.
var MinRatingChoices = []int{1, 2, 3, 4}

// Query encodes only the fields that are set.
func (f CourseListFilter) Query() url.Values {
	q := url.Values{}
	if s := strings.TrimSpace(f.SearchQuery); s != "" {
		q.Set("search", s)
	}
	if f.MinRating > 0 {
		q.Set("min_rating", strconv.Itoa(f.MinRating))
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		q.Set("category", c)
	}
	return q
}
