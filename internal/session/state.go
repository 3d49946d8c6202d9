package session

import (
	"resumectl/internal/types"
)

// Phase names the stage of the workflow, derived from State.
type Phase string

const (
	PhaseEmpty          Phase = "empty"
	PhaseResumeSelected Phase = "resume_selected"
	PhaseDrafting       Phase = "drafting"
	PhaseResultPending  Phase = "result_pending"
	PhaseResultReady    Phase = "result_ready"
	PhaseSaved          Phase = "saved"
)

// State is a snapshot of one analysis session. Snapshots are deep copies
// and safe to keep, mutate, or serialize.
type State struct {
	Resumes               []types.Resume        `json:"resumes"`
	SelectedResume        *types.Resume         `json:"selectedResume,omitempty"`
	JobDescription        string                `json:"jobDescription"`
	CurrentResult         *types.AnalysisResult `json:"currentResult,omitempty"`
	SelectedSavedAnalysis *types.SavedAnalysis  `json:"selectedSavedAnalysis,omitempty"`
	Dirty                 bool                  `json:"dirty"`
	SavedAnalyses         []types.SavedAnalysis `json:"savedAnalyses"`

	Analyzing  bool `json:"analyzing"`
	Refreshing bool `json:"refreshing"`
	// DraftDiverged is set when the draft was edited after loading or saving
	// a saved analysis. The association is kept until a save overwrites it.
	DraftDiverged bool  `json:"draftDiverged"`
	Phase         Phase `json:"phase"`
}

// session holds the controller's mutable fields. Guarded by Controller.mu.
type session struct {
	resumes       []types.Resume
	selected      *types.Resume
	draft         string
	current       *types.AnalysisResult
	selectedSaved *types.SavedAnalysis
	dirty         bool
	saved         []types.SavedAnalysis
	analyzing     bool
	refreshing    bool
}

// clearWork resets everything that depends on the draft or a result.
func (s *session) clearWork() {
	s.draft = ""
	s.current = nil
	s.selectedSaved = nil
	s.dirty = false
}

func (s *session) phase() Phase {
	switch {
	case s.selected == nil:
		return PhaseEmpty
	case s.analyzing:
		return PhaseResultPending
	case s.current != nil && s.dirty:
		return PhaseResultReady
	case s.current != nil && s.selectedSaved != nil:
		return PhaseSaved
	case s.current != nil:
		return PhaseResultReady
	case s.draft != "":
		return PhaseDrafting
	default:
		return PhaseResumeSelected
	}
}

func (s *session) snapshot() State {
	state := State{
		Resumes:        cloneResumes(s.resumes),
		JobDescription: s.draft,
		CurrentResult:  s.current.Clone(),
		Dirty:          s.dirty,
		SavedAnalyses:  cloneSaved(s.saved),
		Analyzing:      s.analyzing,
		Refreshing:     s.refreshing,
		Phase:          s.phase(),
	}
	if s.selected != nil {
		resume := *s.selected
		state.SelectedResume = &resume
	}
	if s.selectedSaved != nil {
		state.SelectedSavedAnalysis = s.selectedSaved.Clone()
		state.DraftDiverged = s.draft != s.selectedSaved.JobDescription
	}
	return state
}

func cloneResumes(in []types.Resume) []types.Resume {
	out := make([]types.Resume, len(in))
	copy(out, in)
	return out
}

func cloneSaved(in []types.SavedAnalysis) []types.SavedAnalysis {
	out := make([]types.SavedAnalysis, 0, len(in))
	for i := range in {
		out = append(out, *in[i].Clone())
	}
	return out
}
