package present

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/snarg/meeting-intel/internal/meeting"
)

const overviewSheet = "Overview"

// WriteXLSX writes a workbook with an Overview sheet (one row per meeting)
// and one sheet per analysis category.
func WriteXLSX(w io.Writer, records []*meeting.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", overviewSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := []any{"Meeting", "Language", "Processed at", "Duration (s)", "Speakers",
		"Transcription", "Diarization", "Analysis", "Fallback",
		"Insights", "Opportunities", "Themes", "Decisions", "Weak signals"}
	if err := f.SetSheetRow(overviewSheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range records {
		processed := ""
		if !r.ProcessedAt.IsZero() {
			processed = r.ProcessedAt.Format("2006-01-02 15:04")
		}
		row := []any{
			r.Title(), r.Language(), processed, r.Transcription.DurationSeconds, r.Diarization.SpeakerCount,
			yesNo(r.TranscriptionSuccess || r.Transcription.OK), yesNo(r.DiarizationSuccess),
			yesNo(r.AnalysisSuccess), yesNo(r.AnalysisFallback),
			r.Analysis.Count(meeting.StrategicInsights),
			r.Analysis.Count(meeting.InnovationOpportunities),
			r.Analysis.Count(meeting.RecurringThemes),
			r.Analysis.Count(meeting.DecisionsMade),
			r.Analysis.Count(meeting.WeakSignals),
		}
		if err := f.SetSheetRow(overviewSheet, cell(1, i+2), &row); err != nil {
			return err
		}
	}
	if err := f.SetPanes(overviewSheet, frozenHeader()); err != nil {
		return err
	}

	for _, lay := range layouts {
		if err := writeCategorySheet(f, lay, records); err != nil {
			return err
		}
	}

	_, err := f.WriteTo(w)
	return err
}

func writeCategorySheet(f *excelize.File, lay categoryLayout, records []*meeting.Record) error {
	sheet := lay.Label
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("new sheet %s: %w", sheet, err)
	}

	header := []any{"Meeting", "#", "Item"}
	for _, fl := range lay.Fields {
		header = append(header, fl.Label)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	row := 2
	for _, r := range records {
		for i, it := range r.Analysis.Items(lay.Category) {
			line := renderItem(lay, it)
			values := []any{r.Title(), i + 1, line.Title}
			for _, fl := range lay.Fields {
				v := it.Get(fl.Key, "")
				if fl.Title && v != "" {
					v = TitleCase(v)
				}
				values = append(values, v)
			}
			if err := f.SetSheetRow(sheet, cell(1, row), &values); err != nil {
				return err
			}
			row++
		}
	}
	return f.SetPanes(sheet, frozenHeader())
}

func frozenHeader() *excelize.Panes {
	return &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
