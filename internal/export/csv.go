package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
)

// WriteProgressCSV writes the report with a header row.
func WriteProgressCSV(w io.Writer, rows []ProgressRow) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(reportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(toCSVRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func toCSVRow(r ProgressRow) []string {
	return []string{
		strconv.Itoa(r.CourseID),   // COURSE_ID
		oneLine(r.Title),           // COURSE_TITLE
		oneLine(r.Category),        // CATEGORY
		yesNo(r.Enrolled),          // ENROLLED
		strconv.Itoa(r.Completed),  // COMPLETED_TOPICS
		strconv.Itoa(r.Total),      // TOTAL_TOPICS
		floatToString(r.Percent()), // PERCENT
	}
}

func floatToString(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
