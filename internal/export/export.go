// Package export writes saved analyses to spreadsheets and JSON files.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"resumectl/internal/errors"
	"resumectl/internal/types"

	"golang.org/x/sync/errgroup"
)

// Source is the subset of the API client used by an export.
type Source interface {
	ListResumes(ctx context.Context) ([]types.Resume, error)
	ListAnalyses(ctx context.Context, resumeID string) ([]types.SavedAnalysis, error)
}

// Row is one saved analysis together with its resume.
type Row struct {
	Resume   types.Resume        `json:"resume"`
	Analysis types.SavedAnalysis `json:"analysis"`
}

// Band of the row's match score.
func (r Row) Band() types.ScoreBand {
	return r.Analysis.AISummary.Band()
}

const (
	FormatXLSX = "xlsx"
	FormatJSON = "json"
)

// DefaultConcurrency bounds the parallel list fetches of Collect.
const DefaultConcurrency = 4

// Collect fetches the saved analyses of the given resumes, or of every resume
// when resumeIDs is empty. Rows are ordered by resume list order, then by
// the store's order.
func Collect(ctx context.Context, src Source, resumeIDs []string, concurrency int) ([]Row, error) {
	resumes, err := src.ListResumes(ctx)
	if err != nil {
		return nil, err
	}

	if len(resumeIDs) > 0 {
		byID := make(map[string]types.Resume, len(resumes))
		for _, r := range resumes {
			byID[r.ID] = r
		}
		selected := make([]types.Resume, 0, len(resumeIDs))
		for _, id := range resumeIDs {
			r, ok := byID[id]
			if !ok {
				return nil, errors.NewAPIError(errors.ErrCodeNotFound, fmt.Sprintf("resume %s not found", id), nil)
			}
			selected = append(selected, r)
		}
		resumes = selected
	}

	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	perResume := make([][]types.SavedAnalysis, len(resumes))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, resume := range resumes {
		g.Go(func() error {
			list, err := src.ListAnalyses(gCtx, resume.ID)
			if err != nil {
				return fmt.Errorf("resume %s: %w", resume.FileName, err)
			}
			mu.Lock()
			perResume[i] = list
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var rows []Row
	for i, resume := range resumes {
		for _, analysis := range perResume[i] {
			rows = append(rows, Row{Resume: resume, Analysis: analysis})
		}
	}
	return rows, nil
}

// SortByScore orders rows best match first.
func SortByScore(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Analysis.AISummary.MatchScore > rows[j].Analysis.AISummary.MatchScore
	})
}

// FormatFromPath picks the export format from a file extension.
func FormatFromPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatXLSX
}

// Write encodes rows in format to w.
func Write(w io.Writer, format string, rows []Row) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, rows)
	case FormatJSON:
		return WriteJSON(w, rows)
	default:
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("unsupported export format '%s'", format), nil)
	}
}

// WriteFile writes rows to path, creating its directory.
func WriteFile(path, format string, rows []Row) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED", fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED", fmt.Sprintf("Cannot write file: %s", path), err)
	}
	if err := Write(file, format, rows); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED", fmt.Sprintf("Cannot write file: %s", path), err)
	}
	return nil
}

type jsonRow struct {
	ResumeID       string               `json:"resumeId"`
	FileName       string               `json:"fileName"`
	AnalysisID     string               `json:"analysisId"`
	JobDescription string               `json:"jobDescription"`
	Band           types.ScoreBand      `json:"band"`
	AISummary      types.AnalysisResult `json:"aiSummary"`
}

// WriteJSON writes rows as an indented JSON array.
func WriteJSON(w io.Writer, rows []Row) error {
	out := make([]jsonRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, jsonRow{
			ResumeID:       row.Resume.ID,
			FileName:       row.Resume.FileName,
			AnalysisID:     row.Analysis.ID,
			JobDescription: row.Analysis.JobDescription,
			Band:           row.Band(),
			AISummary:      row.Analysis.AISummary,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
