package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"tutorly/internal/concurrency"
	"tutorly/internal/domain"
	"tutorly/internal/httpx"
)

type fakeSource struct {
	courses  []domain.Course
	progress map[int][]int
	failID   int
	asked    chan int
}

func (f *fakeSource) ListCourses(ctx context.Context, _ domain.CourseListFilter) ([]domain.Course, error) {
	return f.courses, nil
}

func (f *fakeSource) GetCourse(ctx context.Context, id int) (domain.Course, error) {
	return domain.Course{}, errors.New("not used")
}

func (f *fakeSource) GetProgress(ctx context.Context, id int) ([]int, error) {
	f.asked <- id
	if id == f.failID {
		return nil, &httpx.HTTPError{StatusCode: http.StatusBadGateway}
	}
	return f.progress[id], nil
}

func (f *fakeSource) SaveProgress(ctx context.Context, id int, completed []int) error { return nil }

func sampleRows() []ProgressRow {
	return []ProgressRow{
		{CourseID: 1, Title: "Go Basics", Category: "Programming", Enrolled: true, Completed: 2, Total: 3},
		{CourseID: 2, Title: "Color\nTheory", Category: "Uncategorized", Total: 0},
	}
}

func TestPercent(t *testing.T) {
	testCases := []struct {
		row      ProgressRow
		expected float64
	}{
		{ProgressRow{Completed: 2, Total: 3}, 66.7},
		{ProgressRow{Completed: 3, Total: 3}, 100},
		{ProgressRow{Completed: 0, Total: 0}, 0},
		{ProgressRow{Completed: 1, Total: 8}, 12.5},
	}
	for _, tc := range testCases {
		if got := tc.row.Percent(); got != tc.expected {
			t.Errorf("Percent(%d/%d) = %v, want %v", tc.row.Completed, tc.row.Total, got, tc.expected)
		}
	}
}

func TestCollect(t *testing.T) {
	src := &fakeSource{
		courses: []domain.Course{
			{ID: 1, Title: "Go Basics", Syllabus: "a\nb\nc", Enrolled: true},
			{ID: 2, Title: "Sketching", Syllabus: "a\nb"},
			{ID: 3, Title: "Broken", Syllabus: "a", Enrolled: true},
		},
		progress: map[int][]int{1: {0, 2, 7, 2}},
		failID:   3,
		asked:    make(chan int, 10),
	}

	rows, err := Collect(context.Background(), src, domain.CourseListFilter{}, concurrency.ParallelOptions{MaxWorkers: 2})
	if err == nil {
		t.Error("Expected an error for the failing course")
	} else if httpx.StatusCode(err) != http.StatusBadGateway {
		t.Errorf("Expected wrapped 502, got %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	if rows[0].Completed != 2 || rows[0].Total != 3 {
		t.Errorf("Unexpected first row %+v", rows[0])
	}
	if rows[1].Enrolled || rows[1].Completed != 0 || rows[1].Category != "Uncategorized" {
		t.Errorf("Unexpected second row %+v", rows[1])
	}
	if rows[2].Title != "Broken" || rows[2].Completed != 0 {
		t.Errorf("Unexpected third row %+v", rows[2])
	}

	close(src.asked)
	asked := map[int]bool{}
	for id := range src.asked {
		asked[id] = true
	}
	if asked[2] || !asked[1] || !asked[3] {
		t.Errorf("Expected progress requests only for enrolled courses, got %v", asked)
	}
}

func TestWriteProgressCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteProgressCSV(&buf, sampleRows()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Expected valid CSV, got %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(reportHeader, ",") {
		t.Errorf("Unexpected header %v", records[0])
	}
	if got := strings.Join(records[1], ","); got != "1,Go Basics,Programming,yes,2,3,66.7" {
		t.Errorf("Unexpected row %q", got)
	}
	if records[2][1] != "Color Theory" {
		t.Errorf("Expected newline to be flattened, got %q", records[2][1])
	}
}

func TestWriteProgressXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteProgressXLSX(&buf, sampleRows()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("Expected readable workbook, got %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("Expected rows, got %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "COURSE_ID" || rows[0][6] != "PERCENT" {
		t.Errorf("Unexpected header %v", rows[0])
	}
	if rows[1][0] != "1" || rows[1][1] != "Go Basics" || rows[1][3] != "yes" || rows[1][4] != "2" {
		t.Errorf("Unexpected row %v", rows[1])
	}
}

func TestWriteProgressXML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteProgressXML(&buf, sampleRows()[:1]); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<course id="1">`,
		`<title>Go Basics</title>`,
		`<completed_topics>2</completed_topics>`,
		`<percent>66.7</percent>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q\n%s", want, out)
		}
	}
}

func TestWriteProgressFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"r.csv", "nested/r.xlsx", "r.XML"} {
		p := filepath.Join(dir, name)
		if err := WriteProgressFile(p, sampleRows()); err != nil {
			t.Errorf("%s: expected no error, got %v", name, err)
			continue
		}
		if st, err := os.Stat(p); err != nil || st.Size() == 0 {
			t.Errorf("%s: expected non-empty file (%v)", name, err)
		}
	}
	if err := WriteProgressFile(filepath.Join(dir, "r.pdf"), nil); err == nil {
		t.Error("Expected error for unsupported extension")
	}
}

func TestDefaultFileName(t *testing.T) {
	ts := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	if got := DefaultFileName(FormatXLSX, ts); got != "progress_20261019_083000.xlsx" {
		t.Errorf("Unexpected name %q", got)
	}
}
