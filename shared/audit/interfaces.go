package audit

import (
	"context"
	"fmt"
	"io"
	"time"
)

// TableExporter reads the tables that go into the report. Columns fix the
// sheet's column order; rows are keyed by column name.
type TableExporter interface {
	GetTableNames(ctx context.Context) ([]string, error)
	GetTableData(ctx context.Context, tableName string) ([]map[string]interface{}, []string, error)
}

// ExcelWriter builds a workbook one sheet at a time. Header and rows go to
// the sheet added last.
type ExcelWriter interface {
	AddSheet(name string) error
	WriteHeader(columns []string) error
	WriteRow(row []interface{}) error
	Save(w io.Writer) error
	Close() error
}

// Notifier hands a finished report to the administrators.
type Notifier interface {
	SendDocument(ctx context.Context, filename string, data io.Reader, caption string) error
}

// Logger takes a message and alternating key/value fields.
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Debug(msg string, fields ...interface{})
}

// GenerateFilename names the report covering month, like
// "black-kingdom_audit_2025-11.xlsx".
func GenerateFilename(month time.Time) string {
	return fmt.Sprintf("black-kingdom_audit_%s.xlsx", month.Format("2006-01"))
}

// PreviousMonth returns the first day of the month before now, in now's
// location.
func PreviousMonth(now time.Time) time.Time {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return first.AddDate(0, -1, 0)
}
