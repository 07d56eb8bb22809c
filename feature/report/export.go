package report

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"ledger-sync/core/domain"

	"github.com/xuri/excelize/v2"
)

const (
	SheetMappings = "Mappings"
	SheetErrors   = "Errors"
	SheetRuns     = "Runs"

	exportLayout = "2006-01-02 15:04:05"
)

// Source is the store data the export reads.
type Source interface {
	ListAll(ctx context.Context, entityType domain.EntityType) ([]domain.Mapping, error)
	RetryableErrors(ctx context.Context, entityType domain.EntityType, maxRetries int) ([]domain.RetryableError, error)
	History(ctx context.Context, limit int) ([]domain.RunRecord, error)
}

// Exporter writes the store contents as an xlsx workbook.
type Exporter struct {
	source   Source
	runLimit int
}

// NewExporter creates an exporter including at most runLimit runs.
func NewExporter(source Source, runLimit int) *Exporter {
	if runLimit <= 0 {
		runLimit = 100
	}
	return &Exporter{source: source, runLimit: runLimit}
}

// Export writes a workbook with one sheet each for mappings, errors and runs.
func (e *Exporter) Export(ctx context.Context, w io.Writer) error {
	mappings, err := e.source.ListAll(ctx, "")
	if err != nil {
		return err
	}
	// Every error row, including those past the retry limit.
	failures, err := e.source.RetryableErrors(ctx, "", math.MaxInt32)
	if err != nil {
		return err
	}
	runs, err := e.source.History(ctx, e.runLimit)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	rows := make([][]any, 0, len(mappings))
	for _, m := range mappings {
		rows = append(rows, []any{m.SourceID, string(m.EntityType), m.DestinationID, m.Fingerprint, formatTime(m.LastSyncedAt), formatTime(m.SourceUpdatedAt)})
	}
	if err := writeSheet(f, SheetMappings, header,
		[]any{"Source ID", "Entity Type", "Destination ID", "Fingerprint", "Last Synced", "Source Updated"}, rows); err != nil {
		return err
	}

	rows = make([][]any, 0, len(failures))
	for _, fe := range failures {
		rows = append(rows, []any{string(fe.EntityType), fe.SourceID, fe.ErrorMessage, fe.RetryCount, fe.OccurredAt.Format(exportLayout)})
	}
	if err := writeSheet(f, SheetErrors, header,
		[]any{"Entity Type", "Source ID", "Error", "Retry Count", "Occurred At"}, rows); err != nil {
		return err
	}

	rows = make([][]any, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []any{r.RunID, string(r.Status), strconv.FormatBool(r.DryRun), r.EntitiesProcessed, len(r.Errors), r.StartedAt.Format(exportLayout), formatTime(r.CompletedAt)})
	}
	if err := writeSheet(f, SheetRuns, header,
		[]any{"Run ID", "Status", "Dry Run", "Processed", "Errors", "Started At", "Completed At"}, rows); err != nil {
		return err
	}

	if idx, err := f.GetSheetIndex(SheetMappings); err == nil {
		f.SetActiveSheet(idx)
	}
	_ = f.DeleteSheet("Sheet1")

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, name string, headerStyle int, header []any, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", name, err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	_ = f.SetCellStyle(name, "A1", last, headerStyle)
	lastCol, _, _ := excelize.SplitCellName(last)
	_ = f.SetColWidth(name, "A", lastCol, 20)

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", name, i+2, err)
		}
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(exportLayout)
}
