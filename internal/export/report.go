package export

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tutorly/internal/concurrency"
	"tutorly/internal/domain"
	"tutorly/internal/providers"
)

// ProgressRow is one course of a progress report.
type ProgressRow struct {
	CourseID  int
	Title     string
	Category  string
	Enrolled  bool
	Completed int
	Total     int
}

// Percent is Completed/Total rounded to one decimal, 0 when there are no topics.
func (r ProgressRow) Percent() float64 {
	if r.Total <= 0 {
		return 0
	}
	return math.Round(float64(r.Completed)*1000/float64(r.Total)) / 10
}

// Keep header order EXACT.
var reportHeader = []string{
	"COURSE_ID",
	"COURSE_TITLE",
	"CATEGORY",
	"ENROLLED",
	"COMPLETED_TOPICS",
	"TOTAL_TOPICS",
	"PERCENT",
}

// Source is what a report is built from.
type Source interface {
	providers.CourseProvider
	providers.ProgressProvider
}

// Collect lists the catalog and fetches the progress of every enrolled course
// in parallel. Rows keep catalog order. Per-course failures leave that row at
// zero progress and are joined into the returned error.
func Collect(ctx context.Context, src Source, f domain.CourseListFilter, opts concurrency.ParallelOptions) ([]ProgressRow, error) {
	courses, err := src.ListCourses(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("export: list courses: %w", err)
	}

	rows, errs := concurrency.ProcessParallel(ctx, courses, opts, func(ctx context.Context, _ int, c domain.Course) (ProgressRow, error) {
		row := ProgressRow{
			CourseID: c.ID,
			Title:    c.Title,
			Category: c.CategoryLabel(),
			Enrolled: c.Enrolled,
			Total:    c.TotalTopics(),
		}
		if !c.Enrolled {
			return row, nil
		}
		completed, err := src.GetProgress(ctx, c.ID)
		if err != nil {
			return row, fmt.Errorf("course %d: %w", c.ID, err)
		}
		row.Completed = countInRange(completed, row.Total)
		return row, nil
	})
	if len(errs) > 0 {
		return rows, fmt.Errorf("export: progress: %w", errors.Join(errs...))
	}
	return rows, nil
}

// Indices past the current syllabus are left over from an older syllabus.
func countInRange(completed []int, total int) int {
	seen := map[int]bool{}
	for _, i := range completed {
		if i >= 0 && i < total {
			seen[i] = true
		}
	}
	return len(seen)
}

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXML  Format = "xml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	case "xml":
		return FormatXML, nil
	default:
		return "", fmt.Errorf("export: unsupported format %q", ext)
	}
}

// DefaultFileName is progress_<timestamp>.<format>.
func DefaultFileName(f Format, now time.Time) string {
	return fmt.Sprintf("progress_%s.%s", now.UTC().Format("20060102_150405"), f)
}

// WriteProgressFile writes rows to path in the format its extension names.
func WriteProgressFile(path string, rows []ProgressRow) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch format {
	case FormatCSV:
		err = WriteProgressCSV(f, rows)
	case FormatXLSX:
		err = WriteProgressXLSX(f, rows)
	case FormatXML:
		err = WriteProgressXML(f, rows)
	}
	if err != nil {
		return err
	}
	return f.Close()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
