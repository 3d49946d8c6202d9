package session

import (
	"context"

	"resumectl/internal/types"
)

// ResumeStore lists, uploads and deletes the user's resumes.
type ResumeStore interface {
	ListResumes(ctx context.Context) ([]types.Resume, error)
	UploadResume(ctx context.Context, fileName string, data []byte) (*types.Resume, error)
	DeleteResume(ctx context.Context, id string) error
}

// AnalysisStore persists saved analyses.
type AnalysisStore interface {
	ListAnalyses(ctx context.Context, resumeID string) ([]types.SavedAnalysis, error)
	CreateAnalysis(ctx context.Context, in types.CreateAnalysisRequest) (*types.SavedAnalysis, error)
	UpdateAnalysis(ctx context.Context, id string, in types.UpdateAnalysisRequest) (*types.SavedAnalysis, error)
	DeleteAnalysis(ctx context.Context, id string) error
}

// Analyzer scores a resume against a job description.
type Analyzer interface {
	Analyze(ctx context.Context, resumeID, jobDescription string) (*types.AnalysisResult, error)
}

// Backend bundles the three collaborators; *client.Client satisfies it.
type Backend interface {
	ResumeStore
	AnalysisStore
	Analyzer
}

// EventRecorder receives session outcomes for metrics.
type EventRecorder interface {
	RecordSessionEvent(ctx context.Context, event string, success bool)
}

// Session event names reported to an EventRecorder.
const (
	EventAnalysisRun     = "analysis_run"
	EventAnalysisSaved   = "analysis_saved"
	EventStaleDiscarded  = "stale_discarded"
	EventResumeUploaded  = "resume_uploaded"
	EventResumeDeleted   = "resume_deleted"
	EventAnalysisDeleted = "analysis_deleted"
	EventListRefreshed   = "analyses_refreshed"
)
