package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Resume is an uploaded, parsed PDF owned by the remote resume store.
type Resume struct {
	ID         string    `json:"id"`
	FileName   string    `json:"fileName"`
	FileType   string    `json:"fileType,omitempty"`
	ParsedText string    `json:"parsedText,omitempty"`
	UserID     string    `json:"userId,omitempty"`
	UploadedAt Timestamp `json:"uploadedAt"`
}

// AnalysisResult is the structured output of one analysis call.
// JSON keys follow the remote analyzer exactly.
type AnalysisResult struct {
	MatchScore                int               `json:"MatchScore"`
	KeyStrengths              []string          `json:"KeyStrengths"`
	SkillsGap                 []string          `json:"SkillsGap"`
	SuggestionsForImprovement []string          `json:"SuggestionsForImprovement"`
	OverallAssessment         string            `json:"OverallAssessment"`
	ExtraThingsToConsider     map[string]string `json:"extraThingsToConsider,omitempty"`
}

// Clone returns a deep copy so callers can never mutate controller state.
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	out := *r
	out.KeyStrengths = cloneStrings(r.KeyStrengths)
	out.SkillsGap = cloneStrings(r.SkillsGap)
	out.SuggestionsForImprovement = cloneStrings(r.SuggestionsForImprovement)
	if r.ExtraThingsToConsider != nil {
		out.ExtraThingsToConsider = make(map[string]string, len(r.ExtraThingsToConsider))
		for k, v := range r.ExtraThingsToConsider {
			out.ExtraThingsToConsider[k] = v
		}
	}
	return &out
}

// Band classifies the match score.
func (r *AnalysisResult) Band() ScoreBand {
	return BandFor(r.MatchScore)
}

// SavedAnalysis is a persisted AnalysisResult tied to a resume and job description.
type SavedAnalysis struct {
	ID             string         `json:"id"`
	ResumeID       string         `json:"resumeId"`
	JobDescription string         `json:"jobDescription"`
	AISummary      AnalysisResult `json:"aiSummary"`
}

// Clone returns a deep copy.
func (s *SavedAnalysis) Clone() *SavedAnalysis {
	if s == nil {
		return nil
	}
	out := *s
	out.AISummary = *s.AISummary.Clone()
	return &out
}

// AnalyzeRequest is the body of an analyze call.
type AnalyzeRequest struct {
	JobDescription string `json:"jobDescription" validate:"required"`
}

// CreateAnalysisRequest persists a new saved analysis.
type CreateAnalysisRequest struct {
	ResumeID       string         `json:"resumeId" validate:"required"`
	JobDescription string         `json:"jobDescription" validate:"required"`
	AISummary      AnalysisResult `json:"aiSummary"`
}

// UpdateAnalysisRequest overwrites an existing saved analysis.
type UpdateAnalysisRequest struct {
	JobDescription string         `json:"jobDescription" validate:"required"`
	AISummary      AnalysisResult `json:"aiSummary"`
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// ScoreBand is the coarse rating shown next to a match score.
type ScoreBand string

const (
	BandGood ScoreBand = "good"
	BandFair ScoreBand = "fair"
	BandPoor ScoreBand = "poor"
)

// BandFor maps a 0-100 score onto a band: 80 and above is good, 60 and above fair.
func BandFor(score int) ScoreBand {
	switch {
	case score >= 80:
		return BandGood
	case score >= 60:
		return BandFair
	default:
		return BandPoor
	}
}

// timestampLayouts covers zoned RFC 3339 values and the zone-less
// local date-times the API emits.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Timestamp decodes API date-times with or without a zone offset.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		if string(data) == "null" {
			t.Time = time.Time{}
			return nil
		}
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}
