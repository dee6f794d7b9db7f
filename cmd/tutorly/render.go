package main

import (
	"fmt"
	"io"
	"strings"

	"tutorly/internal/domain"
	"tutorly/internal/resources"
	"tutorly/internal/views"
)

func printCards(w io.Writer, cards []views.CourseCard) {
	if len(cards) == 0 {
		fmt.Fprintln(w, "No courses found.")
		return
	}
	for _, c := range cards {
		fmt.Fprintf(w, "%4d  %s  [%s]  %s\n", c.ID, c.Title, c.Category, c.Rating)
		if d := strings.TrimSpace(c.Description); d != "" {
			fmt.Fprintf(w, "      %s\n", d)
		}
	}
}

func printDetail(w io.Writer, d views.CourseDetail) {
	fmt.Fprintln(w, d.Title)
	if d.Description != "" {
		fmt.Fprintln(w, d.Description)
	}
	fmt.Fprintf(w, "  Instructor: %s\n  Price: %s\n  Duration: %s\n  Category: %s\n  Rating: %s\n",
		d.Instructor, d.Price, d.Duration, d.Category, d.Rating)
	if d.Enrolled {
		fmt.Fprintln(w, "  Enrolled: yes")
	} else {
		fmt.Fprintln(w, "  Enrolled: no")
	}

	fmt.Fprintln(w, "\nSyllabus")
	if d.Syllabus != "" {
		fmt.Fprintf(w, "  %s\n", d.Syllabus)
	}
	for _, t := range d.Topics {
		mark := " "
		if t.Done {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] %d. %s\n", mark, t.Index, t.Title)
	}
	fmt.Fprintf(w, "  %s\n", d.Progress)

	fmt.Fprintln(w, "\nResources")
	if len(d.Resources) == 0 {
		fmt.Fprintf(w, "  %s\n", resources.NoResourcesMessage)
	}
	for _, r := range d.Resources {
		if r.Link {
			fmt.Fprintf(w, "  - <%s>\n", r.Text)
		} else {
			fmt.Fprintf(w, "  - %s\n", r.Text)
		}
	}

	if len(d.Feedback) > 0 {
		fmt.Fprintln(w, "\nFeedback")
		for _, f := range d.Feedback {
			fmt.Fprintf(w, "  %s: %s\n", f.User, feedbackLine(f))
		}
	}
	if d.Message != "" {
		fmt.Fprintf(w, "\n%s\n", d.Message)
	}
}

func feedbackLine(f domain.Interaction) string {
	if f.Rating == nil {
		return f.Feedback
	}
	return fmt.Sprintf("%d/5 %s", *f.Rating, f.Feedback)
}

func printProfile(w io.Writer, p domain.Profile) {
	fmt.Fprintf(w, "Username: %s\nEmail: %s\n", p.Username, p.Email)
	if len(p.EnrolledCourses) == 0 {
		fmt.Fprintln(w, "Enrolled courses: none")
		return
	}
	fmt.Fprintln(w, "Enrolled courses:")
	for _, c := range p.EnrolledCourses {
		fmt.Fprintf(w, "  - %s\n", c)
	}
}
