package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"tutorly/internal/resources"
)

// Course is the snapshot returned by the catalog. It is never patched from
// the server side; a detail view re-fetches it wholesale on every entry.
type Course struct {
	ID          int           `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Instructor  string        `json:"instructor,omitempty"`
	Price       Price         `json:"price,omitempty"`
	Duration    string        `json:"duration,omitempty"`
	Category    string        `json:"category,omitempty"`
	Syllabus    string        `json:"syllabus,omitempty"`
	Resources   resources.Raw `json:"resources"`
	Enrolled    bool          `json:"enrolled"`
	AvgRating   *float64      `json:"avg_rating,omitempty"`
}

// Topics splits the syllabus on newlines and drops blank lines. A topic is
// identified by its index in the result, so editing the syllabus text
// remaps saved progress.
func (c Course) Topics() []string {
	if c.Syllabus == "" {
		return nil
	}
	lines := strings.Split(c.Syllabus, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

func (c Course) TotalTopics() int { return len(c.Topics()) }

func (c Course) InstructorLabel() string { return orDefault(c.Instructor, "N/A") }

func (c Course) DurationLabel() string { return orDefault(c.Duration, "N/A") }

func (c Course) CategoryLabel() string { return orDefault(c.Category, "Uncategorized") }

func (c Course) PriceLabel() string {
	if c.Price.IsFree() {
		return "Free"
	}
	return "$" + string(c.Price)
}

func (c Course) RatingLabel() string {
	if c.AvgRating == nil || *c.AvgRating == 0 {
		return "No ratings yet"
	}
	return fmt.Sprintf("%.1f", *c.AvgRating)
}

// Price arrives either as a decimal string ("19.99") or a JSON number.
type Price string

func (p *Price) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*p = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = Price(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	// A bare numeric zero means no price. Decimal strings like "0.00" are
	// kept and shown as-is.
	if f, err := n.Float64(); err == nil && f == 0 {
		*p = ""
		return nil
	}
	*p = Price(n.String())
	return nil
}

func (p Price) IsFree() bool {
	return strings.TrimSpace(string(p)) == ""
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
