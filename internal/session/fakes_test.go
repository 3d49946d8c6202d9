package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"resumectl/internal/errors"
	"resumectl/internal/types"
)

// fakeBackend is an in-memory Backend. Analyze answers are routed through
// per-draft gates so tests can control response order.
type fakeBackend struct {
	mu sync.Mutex

	resumes  []types.Resume
	analyses map[string]types.SavedAnalysis
	order    []string
	nextID   int

	results  map[string]*types.AnalysisResult
	gates    map[string]chan struct{}
	ignoreCt bool // keep answering after cancellation, like a slow server

	analyzeCalls atomic.Int32
	inFlight     atomic.Int32
	maxInFlight  atomic.Int32
	listCalls    atomic.Int32
	creates      atomic.Int32
	updates      atomic.Int32

	analyzeErr error
	saveErr    error
	listErr    error
	listGate   chan struct{}
	// holdRead, when set, blocks the next list call after it has read its
	// data, like a response already in transit.
	holdRead    chan struct{}
	holdRelease chan struct{}
	deleteErr  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		analyses: make(map[string]types.SavedAnalysis),
		results:  make(map[string]*types.AnalysisResult),
		gates:    make(map[string]chan struct{}),
	}
}

func (f *fakeBackend) ListResumes(context.Context) ([]types.Resume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneResumes(f.resumes), nil
}

func (f *fakeBackend) UploadResume(_ context.Context, fileName string, data []byte) (*types.Resume, error) {
	if len(data) == 0 {
		return nil, errors.NewAPIError(errors.ErrCodeUploadFailed, "empty file", nil)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	resume := types.Resume{ID: fmt.Sprintf("resume-%d", f.nextID), FileName: fileName, FileType: "application/pdf"}
	f.resumes = append(f.resumes, resume)
	return &resume, nil
}

func (f *fakeBackend) DeleteResume(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, r := range f.resumes {
		if r.ID == id {
			f.resumes = append(f.resumes[:i], f.resumes[i+1:]...)
			return nil
		}
	}
	return errors.NewAPIError(errors.ErrCodeNotFound, "resume not found", nil)
}

func (f *fakeBackend) ListAnalyses(ctx context.Context, resumeID string) ([]types.SavedAnalysis, error) {
	f.listCalls.Add(1)
	f.mu.Lock()
	gate := f.listGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []types.SavedAnalysis
	for _, id := range f.order {
		if a, ok := f.analyses[id]; ok && a.ResumeID == resumeID {
			out = append(out, *a.Clone())
		}
	}
	read, release := f.holdRead, f.holdRelease
	f.holdRead, f.holdRelease = nil, nil
	if read == nil {
		return out, nil
	}

	f.mu.Unlock()
	close(read)
	<-release
	f.mu.Lock()
	return out, nil
}

// holdListAfterRead arms holdRead. The first channel closes once the list is
// captured; calling release lets the response through.
func (f *fakeBackend) holdListAfterRead() (<-chan struct{}, func()) {
	read := make(chan struct{})
	release := make(chan struct{})
	f.mu.Lock()
	f.holdRead, f.holdRelease = read, release
	f.mu.Unlock()
	var once sync.Once
	return read, func() { once.Do(func() { close(release) }) }
}

func (f *fakeBackend) CreateAnalysis(_ context.Context, in types.CreateAnalysisRequest) (*types.SavedAnalysis, error) {
	f.creates.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.nextID++
	saved := types.SavedAnalysis{
		ID:             fmt.Sprintf("analysis-%d", f.nextID),
		ResumeID:       in.ResumeID,
		JobDescription: in.JobDescription,
		AISummary:      *in.AISummary.Clone(),
	}
	f.analyses[saved.ID] = saved
	f.order = append(f.order, saved.ID)
	return saved.Clone(), nil
}

func (f *fakeBackend) UpdateAnalysis(_ context.Context, id string, in types.UpdateAnalysisRequest) (*types.SavedAnalysis, error) {
	f.updates.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	saved, ok := f.analyses[id]
	if !ok {
		return nil, errors.NewAPIError(errors.ErrCodeNotFound, "analysis not found", nil)
	}
	saved.JobDescription = in.JobDescription
	saved.AISummary = *in.AISummary.Clone()
	f.analyses[id] = saved
	return saved.Clone(), nil
}

func (f *fakeBackend) DeleteAnalysis(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.analyses[id]; !ok {
		return errors.NewAPIError(errors.ErrCodeNotFound, "analysis not found", nil)
	}
	delete(f.analyses, id)
	return nil
}

func (f *fakeBackend) Analyze(ctx context.Context, resumeID, jobDescription string) (*types.AnalysisResult, error) {
	f.analyzeCalls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	f.mu.Lock()
	gate := f.gates[jobDescription]
	result := f.results[jobDescription]
	err := f.analyzeErr
	ignore := f.ignoreCt
	f.mu.Unlock()

	if gate != nil {
		if ignore {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &types.AnalysisResult{MatchScore: 50, OverallAssessment: "for " + jobDescription}
	}
	return result.Clone(), nil
}

// gate makes Analyze for draft block until the returned func is called.
func (f *fakeBackend) gate(draft string) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[draft] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (f *fakeBackend) setResult(draft string, result *types.AnalysisResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[draft] = result
}

func (f *fakeBackend) seedAnalysis(saved types.SavedAnalysis) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyses[saved.ID] = saved
	f.order = append(f.order, saved.ID)
}

func (f *fakeBackend) stored(id string) (types.SavedAnalysis, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.analyses[id]
	return a, ok
}

type fakeEvents struct {
	mu     sync.Mutex
	events map[string]int
}

func (r *fakeEvents) RecordSessionEvent(_ context.Context, event string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events == nil {
		r.events = make(map[string]int)
	}
	r.events[fmt.Sprintf("%s:%t", event, success)]++
}

func (r *fakeEvents) count(event string, success bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[fmt.Sprintf("%s:%t", event, success)]
}
