// Package excel exports experiment results as xlsx workbooks, the exchange
// format for analysts who post-process sensitivity studies in spreadsheets.
package excel

import (
	"fmt"

	"episens/domain/experiment"
	apperrors "episens/internal/errors"

	"github.com/xuri/excelize/v2"
)

// ReportWriter renders a bundle into an xlsx workbook
type ReportWriter struct{}

// NewReportWriter creates the writer
func NewReportWriter() *ReportWriter {
	return &ReportWriter{}
}

// Write saves the bundle's reports and aggregated outcomes to path.
// One Sensitivity sheet carries every report; each outcome gets its own
// sheet of reduced per-row values.
func (w *ReportWriter) Write(bundle *experiment.Bundle, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := w.writeSensitivity(f, bundle); err != nil {
		return apperrors.ExportError("writing sensitivity sheet", err)
	}
	if err := w.writeOutcomes(f, bundle); err != nil {
		return apperrors.ExportError("writing outcome sheets", err)
	}

	f.DeleteSheet("Sheet1")
	if err := f.SaveAs(path); err != nil {
		return apperrors.ExportError(fmt.Sprintf("saving workbook %s", path), err)
	}
	return nil
}

func (w *ReportWriter) writeSensitivity(f *excelize.File, bundle *experiment.Bundle) error {
	const sheet = "Sensitivity"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := []any{"Outcome", "Time", "Parameter", "S1", "S1 Conf", "ST", "ST Conf"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	row := 2
	for _, report := range bundle.Reports {
		for _, p := range report.Parameters {
			cells := []any{
				report.Outcome, timeLabel(report.Time), p.Name,
				p.S1, p.S1Conf, p.ST, p.STConf,
			}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

func (w *ReportWriter) writeOutcomes(f *excelize.File, bundle *experiment.Bundle) error {
	if bundle.Aggregated == nil {
		return nil
	}
	for _, o := range bundle.Manifest.Space.Outcomes {
		table, ok := bundle.Aggregated.Outcomes[o.Name]
		if !ok {
			continue
		}
		if err := w.writeOutcomeSheet(f, bundle, table); err != nil {
			return err
		}
	}
	return nil
}

// writeOutcomeSheet emits one row per sample row: the sampled parameter
// values, the reduced final value and the replication spread.
func (w *ReportWriter) writeOutcomeSheet(f *excelize.File, bundle *experiment.Bundle, table *experiment.OutcomeTable) error {
	sheet := sheetName(table.Name)
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := make([]any, 0, len(bundle.Samples.Parameters)+3)
	header = append(header, "Row")
	for _, p := range bundle.Samples.Parameters {
		header = append(header, p)
	}
	header = append(header, "Final Value", "Replication Std")
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, series := range table.Rows {
		cells := make([]any, 0, len(header))
		cells = append(cells, i)
		for _, v := range bundle.Samples.Rows[i] {
			cells = append(cells, v)
		}
		cells = append(cells, series[len(series)-1])
		if i < len(table.ReplicationStd) {
			cells = append(cells, table.ReplicationStd[i])
		} else {
			cells = append(cells, 0.0)
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	return nil
}

func timeLabel(ts experiment.TimeSelection) string {
	switch ts.Mode {
	case experiment.TimeStep:
		return fmt.Sprintf("step %d", ts.Step)
	case experiment.TimePeak:
		return "peak"
	default:
		return "final"
	}
}

// sheetName keeps outcome names within excel's 31-character sheet limit
func sheetName(outcome string) string {
	name := "Outcome " + outcome
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}
