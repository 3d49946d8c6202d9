package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	analysesSheet = "Analyses"
)

var analysisHeaders = []string{
	"Resume", "Analysis ID", "Match Score", "Band", "Job Description",
	"Key Strengths", "Skills Gap", "Suggestions", "Overall Assessment",
}

// WriteXLSX writes a workbook with a summary sheet and one row per analysis.
func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(analysesSheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return err
	}

	if err := writeSummarySheet(f, rows, headerStyle); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := writeAnalysesSheet(f, rows, headerStyle, wrapStyle); err != nil {
		return fmt.Errorf("failed to create analyses sheet: %w", err)
	}

	return f.Write(w)
}

func writeSummarySheet(f *excelize.File, rows []Row, headerStyle int) error {
	if err := f.SetColWidth(summarySheet, "A", "A", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 30); err != nil {
		return err
	}

	counts := map[string]int{}
	total := 0
	for _, row := range rows {
		counts[string(row.Band())]++
		total += row.Analysis.AISummary.MatchScore
	}
	average := 0.0
	if len(rows) > 0 {
		average = float64(total) / float64(len(rows))
	}

	cells := [][]any{
		{"Saved Analyses Export", ""},
		{"Generated", time.Now().Format("2006-01-02 15:04:05")},
		{"Analyses", len(rows)},
		{"Average Score", fmt.Sprintf("%.1f", average)},
		{"Good (80-100)", counts["good"]},
		{"Fair (60-79)", counts["fair"]},
		{"Poor (<60)", counts["poor"]},
	}
	for i, values := range cells {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &values); err != nil {
			return err
		}
	}
	return f.SetCellStyle(summarySheet, "A1", "B1", headerStyle)
}

func writeAnalysesSheet(f *excelize.File, rows []Row, headerStyle, wrapStyle int) error {
	header := make([]any, len(analysisHeaders))
	for i, h := range analysisHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(analysesSheet, "A1", &header); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(analysisHeaders))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(analysesSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for i, row := range rows {
		summary := row.Analysis.AISummary
		values := []any{
			row.Resume.FileName,
			row.Analysis.ID,
			summary.MatchScore,
			string(row.Band()),
			row.Analysis.JobDescription,
			strings.Join(summary.KeyStrengths, "\n"),
			strings.Join(summary.SkillsGap, "\n"),
			strings.Join(summary.SuggestionsForImprovement, "\n"),
			summary.OverallAssessment,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(analysesSheet, cell, &values); err != nil {
			return err
		}
	}

	if len(rows) > 0 {
		if err := f.SetCellStyle(analysesSheet, "E2", fmt.Sprintf("%s%d", lastCol, len(rows)+1), wrapStyle); err != nil {
			return err
		}
	}
	widths := map[string]float64{"A": 24, "B": 38, "C": 12, "D": 8, "E": 50, "F": 30, "G": 30, "H": 40, "I": 50}
	for col, width := range widths {
		if err := f.SetColWidth(analysesSheet, col, col, width); err != nil {
			return err
		}
	}
	return f.SetPanes(analysesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
