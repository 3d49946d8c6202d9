// Package session implements the analysis session controller: the rules
// tying a selected resume, a job description draft, a live analysis result
// and a saved analysis together.
package session

import (
	"context"
	"sync"
	"time"

	"resumectl/internal/errors"
	"resumectl/internal/types"
)

// Controller owns the state of one analysis workflow. All methods are safe
// for concurrent use.
type Controller struct {
	mu sync.Mutex
	s  session

	resumes  ResumeStore
	analyses AnalysisStore
	analyzer Analyzer

	// epoch changes whenever the working context is reset (resume switch,
	// saved analysis view, clearing delete, close). Late responses from an
	// older epoch are discarded.
	epoch uint64

	analyzeSeq    uint64
	analyzeCancel context.CancelFunc
	slot          chan struct{} // at most one analyze request on the wire
	resultVersion uint64

	saveMu sync.Mutex

	listGen    uint64
	listCancel context.CancelFunc

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup
	closed     bool

	refreshTimeout time.Duration
	onRefresh      func(resumeID string, err error)
	recorder       EventRecorder
	logger         *errors.Logger
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *errors.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithRecorder reports session events.
func WithRecorder(r EventRecorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithRefreshObserver is called after every saved-analysis list fetch that
// was applied, with the fetch error if any.
func WithRefreshObserver(fn func(resumeID string, err error)) Option {
	return func(c *Controller) { c.onRefresh = fn }
}

// WithRefreshTimeout bounds background list fetches. Zero means no bound.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Controller) { c.refreshTimeout = d }
}

// New creates a controller over the given collaborators.
func New(resumes ResumeStore, analyses AnalysisStore, analyzer Analyzer, opts ...Option) *Controller {
	baseCtx, baseCancel := context.WithCancel(context.Background())
	c := &Controller{
		resumes:    resumes,
		analyses:   analyses,
		analyzer:   analyzer,
		slot:       make(chan struct{}, 1),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		logger:     errors.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewWithBackend creates a controller whose collaborators are all served by b.
func NewWithBackend(b Backend, opts ...Option) *Controller {
	return New(b, b, b, opts...)
}

// State returns a snapshot of the session.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s.snapshot()
}

// Phase returns the current workflow phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s.phase()
}

// CanAnalyze reports whether Analyze would issue a request.
func (c *Controller) CanAnalyze() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.analyzeReadyLocked()
}

// CanSave reports whether Save would issue a request.
func (c *Controller) CanSave() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveReadyLocked()
}

// SaveOffered reports whether an unsaved result is waiting to be saved.
func (c *Controller) SaveOffered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveReadyLocked() && c.s.dirty
}

func (c *Controller) analyzeReadyLocked() bool {
	return !c.closed && c.s.selected != nil && c.s.draft != ""
}

func (c *Controller) saveReadyLocked() bool {
	return c.analyzeReadyLocked() && c.s.current != nil
}

// LoadResumes fetches the user's resumes into the session.
func (c *Controller) LoadResumes(ctx context.Context) ([]types.Resume, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	resumes, err := c.resumes.ListResumes(ctx)
	if err != nil {
		return nil, withCode(err, errors.ErrCodeFetchFailed, "failed to load resumes")
	}

	c.mu.Lock()
	c.s.resumes = cloneResumes(resumes)
	c.mu.Unlock()
	return cloneResumes(resumes), nil
}

// UploadResume stores a new resume and adds it to the local list. The
// selection is not changed.
func (c *Controller) UploadResume(ctx context.Context, fileName string, data []byte) (*types.Resume, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	resume, err := c.resumes.UploadResume(ctx, fileName, data)
	c.record(ctx, EventResumeUploaded, err == nil)
	if err != nil {
		return nil, withCode(err, errors.ErrCodeUploadFailed, "failed to upload resume")
	}

	c.mu.Lock()
	c.s.resumes = append(c.s.resumes, *resume)
	c.mu.Unlock()

	c.logger.Info("Resume uploaded", "resume_id", resume.ID, "file_name", resume.FileName)
	out := *resume
	return &out, nil
}

// SelectResume switches the session to resume, or clears the selection when
// resume is nil. Dependent state is cleared before SelectResume returns; the
// saved-analysis list is fetched in the background and tracked by the
// returned Refresh.
func (c *Controller) SelectResume(resume *types.Resume) *Refresh {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return completedRefresh("", sessionClosed())
	}

	c.resetEpochLocked()
	c.s.clearWork()
	c.s.saved = nil

	if resume == nil {
		c.s.selected = nil
		c.cancelRefreshLocked()
		return completedRefresh("", nil)
	}

	selected := *resume
	c.s.selected = &selected
	c.logger.Debug("Resume selected", "resume_id", selected.ID)
	return c.startRefreshLocked(selected.ID)
}

// EditJobDescription replaces the draft. It never touches the result, the
// saved association, or the dirty flag.
func (c *Controller) EditJobDescription(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.draft = text
}

// Analyze scores the selected resume against the draft. It is a no-op
// returning (nil, nil) unless a resume is selected and the draft is
// non-empty. A newer call supersedes an older one: the older request is
// cancelled and its result, should it still arrive, is discarded with a
// STALE_RESULT error.
func (c *Controller) Analyze(ctx context.Context) (*types.AnalysisResult, error) {
	c.mu.Lock()
	if !c.analyzeReadyLocked() {
		c.mu.Unlock()
		return nil, nil
	}

	c.analyzeSeq++
	seq, epoch := c.analyzeSeq, c.epoch
	if c.analyzeCancel != nil {
		c.analyzeCancel()
	}
	callCtx, cancel := context.WithCancel(ctx)
	c.analyzeCancel = cancel
	c.s.analyzing = true
	resumeID, draft := c.s.selected.ID, c.s.draft
	c.mu.Unlock()
	defer cancel()

	// Wait for any superseded request to drain so two never interleave.
	select {
	case c.slot <- struct{}{}:
	case <-callCtx.Done():
		return nil, c.abandonAnalyze(ctx, seq, epoch)
	}

	c.mu.Lock()
	current := seq == c.analyzeSeq && epoch == c.epoch
	c.mu.Unlock()
	if !current {
		<-c.slot
		return nil, c.abandonAnalyze(ctx, seq, epoch)
	}

	start := time.Now()
	result, err := c.analyzer.Analyze(callCtx, resumeID, draft)
	<-c.slot

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.analyzeSeq || epoch != c.epoch {
		c.logger.Debug("Discarding superseded analysis", "resume_id", resumeID, "seq", seq)
		c.record(ctx, EventStaleDiscarded, true)
		return nil, staleResult()
	}

	c.s.analyzing = false
	c.analyzeCancel = nil
	c.record(ctx, EventAnalysisRun, err == nil)

	if err != nil {
		c.logger.LogError(err, "Analysis failed", "resume_id", resumeID)
		return nil, withCode(err, errors.ErrCodeAnalysisFailed, "analysis failed")
	}
	if result == nil {
		return nil, errors.NewAPIError(errors.ErrCodeAnalysisFailed, "analysis returned no result", nil)
	}

	c.s.current = result.Clone()
	c.s.dirty = true
	c.resultVersion++
	c.logger.Info("Analysis completed",
		"resume_id", resumeID,
		"match_score", result.MatchScore,
		"duration", time.Since(start))
	return result.Clone(), nil
}

// abandonAnalyze handles an analyze call that never reached the network.
func (c *Controller) abandonAnalyze(ctx context.Context, seq, epoch uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.analyzeSeq || epoch != c.epoch {
		c.record(ctx, EventStaleDiscarded, true)
		return staleResult()
	}

	// Still the newest call, so the caller's own context ended.
	c.s.analyzing = false
	c.analyzeCancel = nil
	return errors.NewAPIError(errors.ErrCodeAnalysisFailed, "analysis cancelled", ctx.Err())
}

// Save persists the current result. It updates the selected saved analysis
// when there is one and creates a new record otherwise. It is a no-op
// returning (nil, nil) unless a resume, a result and a non-empty draft are
// present. On success the saved-analysis list is refreshed before Save
// returns; a refresh failure is reported to the refresh observer only.
func (c *Controller) Save(ctx context.Context) (*types.SavedAnalysis, error) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	if !c.saveReadyLocked() {
		c.mu.Unlock()
		return nil, nil
	}
	epoch, version := c.epoch, c.resultVersion
	resumeID, draft := c.s.selected.ID, c.s.draft
	result := *c.s.current.Clone()
	savedID := ""
	if c.s.selectedSaved != nil {
		savedID = c.s.selectedSaved.ID
	}
	c.mu.Unlock()

	var saved *types.SavedAnalysis
	var err error
	if savedID != "" {
		saved, err = c.analyses.UpdateAnalysis(ctx, savedID, types.UpdateAnalysisRequest{
			JobDescription: draft,
			AISummary:      result,
		})
	} else {
		saved, err = c.analyses.CreateAnalysis(ctx, types.CreateAnalysisRequest{
			ResumeID:       resumeID,
			JobDescription: draft,
			AISummary:      result,
		})
	}
	c.record(ctx, EventAnalysisSaved, err == nil)
	if err != nil {
		c.logger.LogError(err, "Saving analysis failed", "resume_id", resumeID, "analysis_id", savedID)
		return nil, withCode(err, errors.ErrCodeSaveFailed, "failed to save analysis")
	}

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		// Persisted, but the session has moved on to other work.
		return saved.Clone(), staleResult()
	}
	c.s.selectedSaved = saved.Clone()
	if version == c.resultVersion {
		c.s.dirty = false
	}
	c.mu.Unlock()

	c.logger.Info("Analysis saved", "resume_id", resumeID, "analysis_id", saved.ID, "updated", savedID != "")

	if err := c.RefreshAnalyses(ctx); err != nil {
		c.logger.Warn("Saved analysis list refresh failed", "resume_id", resumeID, "error", errors.Message(err))
	}
	return saved.Clone(), nil
}

// ViewSavedAnalysis loads saved into the session verbatim, or clears the
// working state when saved is nil. A saved analysis belonging to another
// resume is rejected.
func (c *Controller) ViewSavedAnalysis(saved *types.SavedAnalysis) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return sessionClosed()
	}

	if saved != nil {
		if c.s.selected == nil {
			return errors.NewValidationError(errors.ErrCodeInvalidRequest, "select a resume before viewing its analyses", nil)
		}
		if saved.ResumeID != "" && saved.ResumeID != c.s.selected.ID {
			return errors.NewValidationError(errors.ErrCodeInvalidRequest, "saved analysis belongs to another resume", nil).
				WithContext("analysis_id", saved.ID)
		}
	}

	c.resetEpochLocked()
	if saved == nil {
		c.s.clearWork()
		return nil
	}

	c.s.selectedSaved = saved.Clone()
	c.s.draft = saved.JobDescription
	c.s.current = saved.AISummary.Clone()
	c.s.dirty = false
	return nil
}

// DeleteSavedAnalysis removes a saved analysis. When it is the one being
// viewed the working state is cleared as well. A record that is already gone
// is removed locally and NOT_FOUND is returned.
func (c *Controller) DeleteSavedAnalysis(ctx context.Context, id string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	err := c.analyses.DeleteAnalysis(ctx, id)
	c.record(ctx, EventAnalysisDeleted, err == nil)
	if err != nil && !errors.IsNotFound(err) {
		return withCode(err, errors.ErrCodeDeleteFailed, "failed to delete analysis")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.s.saved[:0]
	for _, saved := range c.s.saved {
		if saved.ID != id {
			kept = append(kept, saved)
		}
	}
	c.s.saved = kept

	// A fetch that started before the delete may still carry the record.
	if c.s.refreshing && c.s.selected != nil {
		c.startRefreshLocked(c.s.selected.ID)
	}

	if c.s.selectedSaved != nil && c.s.selectedSaved.ID == id {
		c.resetEpochLocked()
		c.s.clearWork()
	}
	return err
}

// DeleteResume removes a resume. When it is the selected one the whole
// session is cleared and no list fetch is issued. A resume that is already
// gone is removed locally and NOT_FOUND is returned.
func (c *Controller) DeleteResume(ctx context.Context, id string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}

	err := c.resumes.DeleteResume(ctx, id)
	c.record(ctx, EventResumeDeleted, err == nil)
	if err != nil && !errors.IsNotFound(err) {
		return withCode(err, errors.ErrCodeDeleteFailed, "failed to delete resume")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.s.resumes[:0]
	for _, resume := range c.s.resumes {
		if resume.ID != id {
			kept = append(kept, resume)
		}
	}
	c.s.resumes = kept

	if c.s.selected != nil && c.s.selected.ID == id {
		c.resetEpochLocked()
		c.cancelRefreshLocked()
		c.s.clearWork()
		c.s.selected = nil
		c.s.saved = nil
	}
	return err
}

// RefreshAnalyses re-fetches the saved analyses of the selected resume and
// waits for the result.
func (c *Controller) RefreshAnalyses(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return sessionClosed()
	}
	if c.s.selected == nil {
		c.mu.Unlock()
		return nil
	}
	refresh := c.startRefreshLocked(c.s.selected.ID)
	c.mu.Unlock()

	return refresh.Wait(ctx)
}

// Close cancels outstanding work and waits for background fetches to stop.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.resetEpochLocked()
	c.cancelRefreshLocked()
	c.baseCancel()
	c.mu.Unlock()

	c.wg.Wait()
}

// resetEpochLocked invalidates every in-flight analyze call.
func (c *Controller) resetEpochLocked() {
	c.epoch++
	if c.analyzeCancel != nil {
		c.analyzeCancel()
		c.analyzeCancel = nil
	}
	c.s.analyzing = false
}

func (c *Controller) cancelRefreshLocked() {
	c.listGen++
	if c.listCancel != nil {
		c.listCancel()
		c.listCancel = nil
	}
	c.s.refreshing = false
}

// startRefreshLocked launches a list fetch that supersedes any running one.
func (c *Controller) startRefreshLocked(resumeID string) *Refresh {
	c.cancelRefreshLocked()
	gen := c.listGen

	var ctx context.Context
	var cancel context.CancelFunc
	if c.refreshTimeout > 0 {
		ctx, cancel = context.WithTimeout(c.baseCtx, c.refreshTimeout)
	} else {
		ctx, cancel = context.WithCancel(c.baseCtx)
	}
	c.listCancel = cancel
	c.s.refreshing = true

	refresh := newRefresh(resumeID)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		list, err := c.analyses.ListAnalyses(ctx, resumeID)

		c.mu.Lock()
		if gen != c.listGen {
			c.mu.Unlock()
			refresh.finish(staleResult())
			return
		}
		c.listCancel = nil
		c.s.refreshing = false
		if err != nil {
			err = withCode(err, errors.ErrCodeFetchFailed, "failed to load saved analyses")
			c.s.saved = []types.SavedAnalysis{}
		} else {
			c.s.saved = cloneSaved(list)
		}
		c.mu.Unlock()

		if err != nil {
			c.logger.LogError(err, "Saved analysis fetch failed", "resume_id", resumeID)
		}
		c.record(ctx, EventListRefreshed, err == nil)
		refresh.finish(err)
		if c.onRefresh != nil {
			c.onRefresh(resumeID, err)
		}
	}()
	return refresh
}

func (c *Controller) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return sessionClosed()
	}
	return nil
}

func (c *Controller) record(ctx context.Context, event string, success bool) {
	if c.recorder != nil {
		c.recorder.RecordSessionEvent(ctx, event, success)
	}
}

// IsStale reports whether err marks a superseded, discarded response.
func IsStale(err error) bool {
	return errors.HasCode(err, errors.ErrCodeStaleResult)
}

func staleResult() error {
	return errors.NewSessionError(errors.ErrCodeStaleResult, "result superseded by a newer request", nil)
}

func sessionClosed() error {
	return errors.NewSessionError(errors.ErrCodeSessionClosed, "session is closed", nil)
}

// withCode makes sure err carries code, keeping NOT_FOUND and an existing
// code as they are.
func withCode(err error, code, fallback string) error {
	if errors.HasCode(err, code) || errors.IsNotFound(err) {
		return err
	}
	message := errors.Message(err)
	if message == "" {
		message = fallback
	}
	return errors.NewAPIError(code, message, err)
}
