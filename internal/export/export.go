package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"autobook/internal/database"
	"autobook/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	attemptsSheet = "Attempts"
	summarySheet  = "Summary"
)

var outcomeOrder = []models.BookingOutcome{
	models.OutcomeBooked,
	models.OutcomeRejected,
	models.OutcomeSkippedAlreadyBooked,
	models.OutcomeSkippedIgnored,
}

var outcomeFill = map[models.BookingOutcome]string{
	models.OutcomeBooked:   "#E2EFDA",
	models.OutcomeRejected: "#FCE4D6",
}

// AttemptSource is the part of the history database the export reads.
type AttemptSource interface {
	ListAttempts(ctx context.Context, filter database.AttemptFilter) ([]models.Attempt, error)
}

// Exporter writes attempt history to an XLSX workbook for operators.
type Exporter struct {
	source AttemptSource
	logger *zerolog.Logger
}

func NewExporter(source AttemptSource, logger *zerolog.Logger) *Exporter {
	return &Exporter{source: source, logger: logger}
}

// Export writes the rows matching filter into dir and returns the file path.
func (e *Exporter) Export(ctx context.Context, filter database.AttemptFilter, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	attempts, err := e.source.ListAttempts(ctx, filter)
	if err != nil {
		return "", fmt.Errorf("error getting attempts: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(attemptsSheet)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := writeAttempts(f, attempts); err != nil {
		return "", err
	}
	if err := writeSummary(f, attempts); err != nil {
		return "", err
	}
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("autobook_history_%s.xlsx", time.Now().Format("20060102_150405"))
	filePath := filepath.Join(dir, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("rows", len(attempts)).Msg("Excel file created")
	return filePath, nil
}

func writeAttempts(f *excelize.File, attempts []models.Attempt) error {
	headers := []interface{}{"Time", "Run", "Category", "Listing", "Topic", "Outcome", "Detail"}
	if err := f.SetSheetRow(attemptsSheet, "A1", &headers); err != nil {
		return fmt.Errorf("error writing headers: %w", err)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	_ = f.SetCellStyle(attemptsSheet, "A1", "G1", headerStyle)

	fills := make(map[models.BookingOutcome]int)
	for outcome, color := range outcomeFill {
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err == nil {
			fills[outcome] = style
		}
	}

	for i, a := range attempts {
		row := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := []interface{}{
			a.CreatedAt.Format("2006-01-02 15:04:05"),
			a.RunID,
			a.Category,
			a.ListingID.String(),
			a.Topic,
			string(a.Outcome),
			a.Detail,
		}
		if err := f.SetSheetRow(attemptsSheet, cell, &values); err != nil {
			return fmt.Errorf("error writing row %d: %w", row, err)
		}
		if style, ok := fills[a.Outcome]; ok {
			end, _ := excelize.CoordinatesToCellName(len(values), row)
			_ = f.SetCellStyle(attemptsSheet, cell, end, style)
		}
	}

	_ = f.SetColWidth(attemptsSheet, "A", "A", 20)
	_ = f.SetColWidth(attemptsSheet, "B", "B", 38)
	_ = f.SetColWidth(attemptsSheet, "C", "F", 18)
	_ = f.SetColWidth(attemptsSheet, "G", "G", 60)
	_ = f.SetPanes(attemptsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	return nil
}

func writeSummary(f *excelize.File, attempts []models.Attempt) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	counts := make(map[string]map[models.BookingOutcome]int)
	for _, a := range attempts {
		if counts[a.Category] == nil {
			counts[a.Category] = make(map[models.BookingOutcome]int)
		}
		counts[a.Category][a.Outcome]++
	}
	categories := make([]string, 0, len(counts))
	for c := range counts {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	headers := []interface{}{"Category"}
	for _, o := range outcomeOrder {
		headers = append(headers, string(o))
	}
	if err := f.SetSheetRow(summarySheet, "A1", &headers); err != nil {
		return err
	}

	for i, c := range categories {
		row := []interface{}{c}
		for _, o := range outcomeOrder {
			row = append(row, counts[c][o])
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(summarySheet, "A", "E", 24)
	return nil
}
