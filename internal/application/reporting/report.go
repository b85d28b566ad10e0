package reporting

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/opsdesk/filetrack/internal/domain/file"
	"github.com/opsdesk/filetrack/pkg/errors"
	"github.com/opsdesk/filetrack/pkg/types/common"
)

// reportPageSize bounds how many files a report walk reads per page.
const reportPageSize = 500

// ReportRow is one file in the daily report.
type ReportRow struct {
	FileID       common.ID     `json:"file_id"`
	Filename     string        `json:"filename"`
	SectionID    common.ID     `json:"section_id"`
	Priority     file.Priority `json:"priority"`
	Status       file.Status   `json:"status"`
	UploadTime   time.Time     `json:"upload_time"`
	SLADeadline  *time.Time    `json:"sla_deadline,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	Escalations  int           `json:"escalations"`
	ReminderSent bool          `json:"reminder_sent"`
}

// DailyReport is the day's activity summary.
type DailyReport struct {
	Day       time.Time   `json:"day"`
	Received  []ReportRow `json:"received"`
	Completed []ReportRow `json:"completed"`
	Overdue   []ReportRow `json:"overdue"`
}

// Daily builds the activity report for the UTC day containing at.  Received
// rows are files uploaded that day, Completed rows files finished that day,
// and Overdue rows every file currently overdue regardless of age.
func (s *Service) Daily(ctx context.Context, at time.Time) (*DailyReport, error) {
	day := at.UTC().Truncate(24 * time.Hour)
	next := day.Add(24 * time.Hour)
	report := &DailyReport{
		Day:       day,
		Received:  make([]ReportRow, 0),
		Completed: make([]ReportRow, 0),
		Overdue:   make([]ReportRow, 0),
	}

	err := s.walkFiles(ctx, file.ListFilter{}, func(f *file.File) {
		inDay := func(t *time.Time) bool {
			return t != nil && !t.Before(day) && t.Before(next)
		}
		uploaded := f.UploadTime.UTC()
		if !uploaded.Before(day) && uploaded.Before(next) {
			report.Received = append(report.Received, toReportRow(f))
		}
		if f.IsCompleted() && inDay(f.CompletionTime) {
			report.Completed = append(report.Completed, toReportRow(f))
		}
		if f.Status == file.StatusOverdue {
			report.Overdue = append(report.Overdue, toReportRow(f))
		}
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *Service) walkFiles(ctx context.Context, filter file.ListFilter, visit func(*file.File)) error {
	page := common.Pagination{Page: 1, PageSize: reportPageSize}
	for {
		batch, _, err := s.files.List(ctx, filter, page)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "walking files for report")
		}
		for _, f := range batch {
			visit(f)
		}
		if len(batch) < reportPageSize {
			return nil
		}
		page.Page++
	}
}

func toReportRow(f *file.File) ReportRow {
	return ReportRow{
		FileID:       f.ID,
		Filename:     f.Filename,
		SectionID:    f.SectionID,
		Priority:     f.Priority,
		Status:       f.Status,
		UploadTime:   f.UploadTime,
		SLADeadline:  f.SLADeadline,
		CompletedAt:  f.CompletionTime,
		Escalations:  f.EscalationLevel,
		ReminderSent: f.ReminderSent,
	}
}

// WriteCSV renders the report as CSV with a section column distinguishing
// received, completed, and overdue rows.
func (r *DailyReport) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{"bucket", "file_id", "filename", "section_id", "priority", "status", "upload_time", "sla_deadline", "completed_at", "escalations"}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "writing report header")
	}
	write := func(bucket string, rows []ReportRow) error {
		for _, row := range rows {
			rec := []string{
				bucket,
				row.FileID.String(),
				row.Filename,
				row.SectionID.String(),
				string(row.Priority),
				string(row.Status),
				row.UploadTime.Format(time.RFC3339),
				formatOptionalTime(row.SLADeadline),
				formatOptionalTime(row.CompletedAt),
				strconv.Itoa(row.Escalations),
			}
			if err := cw.Write(rec); err != nil {
				return errors.Wrap(err, errors.ErrCodeSerialization, "writing report row")
			}
		}
		return nil
	}
	if err := write("received", r.Received); err != nil {
		return err
	}
	if err := write("completed", r.Completed); err != nil {
		return err
	}
	if err := write("overdue", r.Overdue); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
