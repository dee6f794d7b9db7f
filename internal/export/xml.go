package export

import (
	"encoding/xml"
	"io"
)

/*
<progress_report>
  <course id="3">
    <title>Go Basics</title>
    <category>Programming</category>
    <enrolled>true</enrolled>
    <completed_topics>2</completed_topics>
    <total_topics>3</total_topics>
    <percent>66.7</percent>
  </course>
</progress_report>
*/

type xmlReport struct {
	XMLName xml.Name    `xml:"progress_report"`
	Courses []xmlCourse `xml:"course"`
}

type xmlCourse struct {
	ID              int     `xml:"id,attr"`
	Title           string  `xml:"title"`
	Category        string  `xml:"category,omitempty"`
	Enrolled        bool    `xml:"enrolled"`
	CompletedTopics int     `xml:"completed_topics"`
	TotalTopics     int     `xml:"total_topics"`
	Percent         float64 `xml:"percent"`
}

func WriteProgressXML(w io.Writer, rows []ProgressRow) error {
	doc := xmlReport{Courses: make([]xmlCourse, 0, len(rows))}
	for _, r := range rows {
		doc.Courses = append(doc.Courses, xmlCourse{
			ID:              r.CourseID,
			Title:           r.Title,
			Category:        r.Category,
			Enrolled:        r.Enrolled,
			CompletedTopics: r.Completed,
			TotalTopics:     r.Total,
			Percent:         r.Percent(),
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Flush()
}
