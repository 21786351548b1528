// Package audit writes a monthly Excel report of shops, accounts and
// reservations. It only reads; nothing is ever deleted.
package audit

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Config holds configuration for the audit service.
type Config struct {
	// OutputDir is where reports are written.
	OutputDir string

	// DayOfMonth (1-28) and Hour (0-23) schedule the monthly run.
	DayOfMonth int
	Hour       int

	// Location is the timezone for scheduling and for deciding which
	// month a visit date belongs to.
	Location *time.Location

	// ExportOnStart if true, runs export immediately on service start.
	ExportOnStart bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:  "data/audit",
		DayOfMonth: 1,
		Hour:       3,
		Location:   time.Local,
	}
}

const summarySheet = "summary"

// Service handles monthly audit exports.
type Service struct {
	config   *Config
	exporter TableExporter
	writer   func() ExcelWriter // factory for creating new Excel writers
	notifier Notifier
	logger   Logger
	now      func() time.Time
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewService creates a new audit service. notifier may be nil.
func NewService(
	config *Config,
	exporter TableExporter,
	writerFactory func() ExcelWriter,
	notifier Notifier,
	logger Logger,
) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	if config.OutputDir == "" {
		config.OutputDir = "data/audit"
	}
	if config.DayOfMonth < 1 || config.DayOfMonth > 28 {
		config.DayOfMonth = 1
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if writerFactory == nil {
		writerFactory = NewExcelizeWriter
	}

	return &Service{
		config:   config,
		exporter: exporter,
		writer:   writerFactory,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the audit scheduler.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	if s.config.ExportOnStart {
		go func() {
			if _, err := s.ExportNow(ctx); err != nil {
				s.logger.Error("Failed to export audit data", "error", err)
			}
		}()
	}

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Audit service started",
		"day_of_month", s.config.DayOfMonth,
		"hour", s.config.Hour,
		"output_dir", s.config.OutputDir,
	)
}

// Stop gracefully stops the audit service.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	s.logger.Info("Audit service stopped")
}

func (s *Service) loop(ctx context.Context) {
	defer s.wg.Done()

	nextRun := s.nextRun(s.now())
	timer := time.NewTimer(time.Until(nextRun))
	defer timer.Stop()

	s.logger.Info("Next audit scheduled", "time", nextRun)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-timer.C:
			if _, err := s.ExportNow(ctx); err != nil {
				s.logger.Error("Failed to export audit data", "error", err)
			}

			nextRun = s.nextRun(s.now())
			timer.Reset(time.Until(nextRun))
			s.logger.Info("Next audit scheduled", "time", nextRun)
		}
	}
}

// nextRun returns the first scheduled moment strictly after now.
func (s *Service) nextRun(now time.Time) time.Time {
	now = now.In(s.config.Location)
	run := time.Date(now.Year(), now.Month(), s.config.DayOfMonth, s.config.Hour, 0, 0, 0, s.config.Location)
	if !run.After(now) {
		run = run.AddDate(0, 1, 0)
	}
	return run
}

// ExportNow writes the report for the previous month and returns its path.
func (s *Service) ExportNow(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	month := PreviousMonth(s.now().In(s.config.Location))
	return s.export(ctx, month)
}

func (s *Service) export(ctx context.Context, month time.Time) (string, error) {
	if s.exporter == nil {
		return "", fmt.Errorf("exporter not configured")
	}

	tables, err := s.exporter.GetTableNames(ctx)
	if err != nil {
		return "", fmt.Errorf("get table names: %w", err)
	}

	excel := s.writer()
	if excel == nil {
		return "", fmt.Errorf("failed to create excel writer")
	}
	defer excel.Close()

	var reservations []map[string]interface{}
	for _, tableName := range tables {
		data, columns, err := s.exporter.GetTableData(ctx, tableName)
		if err != nil {
			s.logger.Error("Failed to get table data", "table", tableName, "error", err)
			continue
		}
		if tableName == "reservations" {
			reservations = data
		}

		if err := writeSheet(excel, tableName, columns, data); err != nil {
			s.logger.Error("Failed to write sheet", "table", tableName, "error", err)
			continue
		}
		s.logger.Debug("Exported table", "table", tableName, "rows", len(data))
	}

	if err := writeSummary(excel, MonthlySummary(reservations, month)); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}

	var buf bytes.Buffer
	if err := excel.Save(&buf); err != nil {
		return "", fmt.Errorf("save excel: %w", err)
	}

	if err := os.MkdirAll(s.config.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create audit dir: %w", err)
	}
	filename := GenerateFilename(month)
	path := filepath.Join(s.config.OutputDir, filename)
	if err := os.WriteFile(path, buf.Bytes(), 0o640); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	s.logger.Info("Audit report written", "path", path, "bytes", buf.Len())

	if s.notifier != nil {
		caption := fmt.Sprintf("Black Kingdom monthly report %s", month.Format("2006-01"))
		if err := s.notifier.SendDocument(ctx, filename, bytes.NewReader(buf.Bytes()), caption); err != nil {
			return path, fmt.Errorf("send document: %w", err)
		}
		s.logger.Info("Audit report sent", "filename", filename)
	}

	return path, nil
}

func writeSheet(excel ExcelWriter, name string, columns []string, data []map[string]interface{}) error {
	if err := excel.AddSheet(name); err != nil {
		return err
	}
	if err := excel.WriteHeader(columns); err != nil {
		return err
	}
	for _, row := range data {
		values := make([]interface{}, len(columns))
		for i, col := range columns {
			values[i] = row[col]
		}
		if err := excel.WriteRow(values); err != nil {
			return err
		}
	}
	return nil
}

// SummaryRow counts one shop's reservations for a month by status.
type SummaryRow struct {
	ShopID    int64
	Pending   int
	Confirmed int
	Completed int
	Cancelled int
	Guests    int // party sizes of completed visits
}

// MonthlySummary aggregates reservation rows whose visit date falls in
// month. Rows with malformed dates are ignored.
func MonthlySummary(rows []map[string]interface{}, month time.Time) []SummaryRow {
	prefix := month.Format("2006-01") + "-"
	byShop := make(map[int64]*SummaryRow)

	for _, row := range rows {
		date, _ := row["visit_date"].(string)
		if len(date) != len("2006-01-02") || date[:len(prefix)] != prefix {
			continue
		}
		shopID := toInt64(row["shop_id"])
		sum, ok := byShop[shopID]
		if !ok {
			sum = &SummaryRow{ShopID: shopID}
			byShop[shopID] = sum
		}
		status, _ := row["status"].(string)
		switch status {
		case "pending":
			sum.Pending++
		case "confirmed":
			sum.Confirmed++
		case "completed":
			sum.Completed++
			sum.Guests += int(toInt64(row["party_size"]))
		case "cancelled":
			sum.Cancelled++
		}
	}

	out := make([]SummaryRow, 0, len(byShop))
	for _, sum := range byShop {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShopID < out[j].ShopID })
	return out
}

func writeSummary(excel ExcelWriter, rows []SummaryRow) error {
	if err := excel.AddSheet(summarySheet); err != nil {
		return err
	}
	if err := excel.WriteHeader([]string{"shop_id", "pending", "confirmed", "completed", "cancelled", "guests_served"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := excel.WriteRow([]interface{}{r.ShopID, r.Pending, r.Confirmed, r.Completed, r.Cancelled, r.Guests}); err != nil {
			return err
		}
	}
	return nil
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
