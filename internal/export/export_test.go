package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"resumectl/internal/errors"
	"resumectl/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeSource struct {
	resumes  []types.Resume
	analyses map[string][]types.SavedAnalysis
	failFor  string
	calls    atomic.Int32
}

func (f *fakeSource) ListResumes(context.Context) ([]types.Resume, error) {
	return f.resumes, nil
}

func (f *fakeSource) ListAnalyses(_ context.Context, resumeID string) ([]types.SavedAnalysis, error) {
	f.calls.Add(1)
	if resumeID == f.failFor {
		return nil, errors.NewAPIError(errors.ErrCodeFetchFailed, "boom", nil)
	}
	return f.analyses[resumeID], nil
}

func newSource() *fakeSource {
	src := &fakeSource{analyses: map[string][]types.SavedAnalysis{}}
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("r%d", i)
		src.resumes = append(src.resumes, types.Resume{ID: id, FileName: id + ".pdf"})
		src.analyses[id] = []types.SavedAnalysis{{
			ID:             "a-" + id,
			ResumeID:       id,
			JobDescription: "job for " + id,
			AISummary:      types.AnalysisResult{MatchScore: i * 20, KeyStrengths: []string{"Go"}},
		}}
	}
	return src
}

func TestCollectAllResumes(t *testing.T) {
	src := newSource()
	rows, err := Collect(context.Background(), src, nil, 2)
	require.NoError(t, err)

	require.Len(t, rows, 5)
	assert.Equal(t, int32(5), src.calls.Load())
	for i, row := range rows {
		assert.Equal(t, fmt.Sprintf("r%d", i+1), row.Resume.ID, "resume order is kept")
	}
}

func TestCollectSelectedResumes(t *testing.T) {
	src := newSource()

	rows, err := Collect(context.Background(), src, []string{"r3", "r1"}, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "r3", rows[0].Resume.ID)

	_, err = Collect(context.Background(), src, []string{"missing"}, 0)
	assert.True(t, errors.IsNotFound(err))
}

func TestCollectFailure(t *testing.T) {
	src := newSource()
	src.failFor = "r2"

	_, err := Collect(context.Background(), src, nil, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "r2.pdf")
	assert.True(t, errors.HasCode(err, errors.ErrCodeFetchFailed))
}

func TestSortByScore(t *testing.T) {
	rows, err := Collect(context.Background(), newSource(), nil, 0)
	require.NoError(t, err)
	SortByScore(rows)
	assert.Equal(t, 100, rows[0].Analysis.AISummary.MatchScore)
	assert.Equal(t, 20, rows[4].Analysis.AISummary.MatchScore)
}

func TestWriteJSON(t *testing.T) {
	rows, err := Collect(context.Background(), newSource(), []string{"r4"}, 0)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, rows))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "good", decoded[0]["band"])
	assert.Equal(t, "r4.pdf", decoded[0]["fileName"])
}

func TestWriteXLSX(t *testing.T) {
	rows, err := Collect(context.Background(), newSource(), nil, 0)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "analyses.xlsx")
	require.NoError(t, WriteFile(path, FormatFromPath(path), rows))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{summarySheet, analysesSheet}, f.GetSheetList())

	value, err := f.GetCellValue(analysesSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "r1.pdf", value)
	value, err = f.GetCellValue(analysesSheet, "D6")
	require.NoError(t, err)
	assert.Equal(t, "good", value)
	value, err = f.GetCellValue(summarySheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "5", value)
}

func TestWriteUnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, "csv", nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidFormat))
	assert.Equal(t, FormatJSON, FormatFromPath("x.JSON"))
	assert.Equal(t, FormatXLSX, FormatFromPath("x"))
}
