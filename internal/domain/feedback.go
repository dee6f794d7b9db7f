package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Rating is a closed choice between 1 and 5.
type Rating int

var ErrInvalidRating = errors.New("rating must be one of 1-5")

var RatingChoices = []Rating{1, 2, 3, 4, 5}

func (r Rating) Valid() bool { return r >= 1 && r <= 5 }

// ParseRating accepts only one of the offered choices.
func ParseRating(s string) (Rating, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || !Rating(n).Valid() {
		return 0, fmt.Errorf("%w, got %q", ErrInvalidRating, s)
	}
	return Rating(n), nil
}

// FeedbackSubmission is built per submit and dropped once the request ends.
type FeedbackSubmission struct {
	Rating   Rating `json:"rating"`
	Feedback string `json:"feedback"`
}

// Interaction is one entry of a course's public feedback list.
type Interaction struct {
	ID       int    `json:"id"`
	User     string `json:"user"`
	Course   string `json:"course"`
	Rating   *int   `json:"rating"`
	Feedback string `json:"feedback"`
}
