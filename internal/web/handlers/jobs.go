package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/face-tagger/internal/constants"
	"github.com/kozaktomas/face-tagger/internal/training"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// TrainJobState is a point-in-time view of a training job.
type TrainJobState struct {
	ID              string          `json:"id"`
	Root            string          `json:"root"`
	Status          JobStatus       `json:"status"`
	Progress        int             `json:"progress"`
	TotalImages     int             `json:"total_images"`
	ProcessedImages int             `json:"processed_images"`
	SkippedImages   int             `json:"skipped_images"`
	Error           string          `json:"error,omitempty"`
	StartedAt       time.Time       `json:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	Result          *TrainJobResult `json:"result,omitempty"`
}

// TrainJobResult represents the result of a training job.
type TrainJobResult struct {
	Labels     []string                `json:"labels"`
	Embeddings int                     `json:"embeddings"`
	Images     int                     `json:"images"`
	Skipped    []training.SkippedImage `json:"skipped,omitempty"`
	Failed     []string                `json:"failed,omitempty"`
	Ambiguous  [][]string              `json:"ambiguous_labels,omitempty"`
	DurationMs int64                   `json:"duration_ms"`
	RunID      string                  `json:"run_id,omitempty"`
}

// TrainJob represents an async training job.
type TrainJob struct {
	EventBroadcaster

	state TrainJobState
}

// Snapshot returns a copy of the job state.
func (j *TrainJob) Snapshot() TrainJobState {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state
}

// GetStatus returns the current job status.
func (j *TrainJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.state.Status
}

// update changes the state under the job lock.
func (j *TrainJob) update(fn func(s *TrainJobState)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(&j.state)
}

// finish moves the job to a terminal status.
func (j *TrainJob) finish(status JobStatus, message string, result *TrainJobResult) {
	now := time.Now()
	j.update(func(s *TrainJobState) {
		s.Status = status
		s.Error = message
		s.CompletedAt = &now
		if result != nil {
			s.Result = result
			s.Progress = 100
		}
	})
}

// Cancel cancels the training job.
func (j *TrainJob) Cancel() {
	j.EventBroadcaster.Cancel()
	j.update(func(s *TrainJobState) {
		if !isJobTerminal(s.Status) {
			s.Status = JobStatusCancelled
		}
	})
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	cancel    context.CancelFunc
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// Cancel cancels the job via context and sends a cancelled event.
func (b *EventBroadcaster) Cancel() {
	b.release()
	b.SendEvent(JobEvent{Type: "cancelled", Message: "Job cancelled by user"})
}

// release frees the job context once the job has finished.
func (b *EventBroadcaster) release() {
	b.mu.RLock()
	cancel := b.cancel
	b.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// JobManager manages async jobs.
type JobManager struct {
	jobs map[string]*TrainJob
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*TrainJob),
	}
}

func newTrainJob(id, root string, cancel context.CancelFunc) *TrainJob {
	return &TrainJob{
		EventBroadcaster: EventBroadcaster{cancel: cancel},
		state: TrainJobState{
			ID:        id,
			Root:      root,
			Status:    JobStatusPending,
			StartedAt: time.Now(),
		},
	}
}

// CreateJob creates a new pending training job.
func (m *JobManager) CreateJob(id, root string, cancel context.CancelFunc) *TrainJob {
	job := newTrainJob(id, root, cancel)

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	return job
}

// StartIfIdle creates a pending job unless another job is still pending or
// running. When busy it returns that job and false.
func (m *JobManager) StartIfIdle(id, root string, cancel context.CancelFunc) (*TrainJob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if running := m.runningLocked(); running != nil {
		return running, false
	}
	job := newTrainJob(id, root, cancel)
	m.jobs[id] = job
	return job, true
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *TrainJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// DeleteJob removes a job.
func (m *JobManager) DeleteJob(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
}

// Running returns the job that is still pending or running, if any.
func (m *JobManager) Running() *TrainJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runningLocked()
}

func (m *JobManager) runningLocked() *TrainJob {
	for _, job := range m.jobs {
		if !isJobTerminal(job.GetStatus()) {
			return job
		}
	}
	return nil
}
