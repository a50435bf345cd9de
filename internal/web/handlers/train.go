package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kozaktomas/face-tagger/internal/config"
	"github.com/kozaktomas/face-tagger/internal/constants"
	"github.com/kozaktomas/face-tagger/internal/database"
	"github.com/kozaktomas/face-tagger/internal/facematch"
	"github.com/kozaktomas/face-tagger/internal/recognize"
	"github.com/kozaktomas/face-tagger/internal/training"
)

// TrainHandler handles training endpoints
type TrainHandler struct {
	config     *config.Config
	embedder   training.Embedder
	store      database.CollectionStore
	pipeline   *recognize.Pipeline
	jobManager *JobManager
}

// NewTrainHandler creates a new train handler
func NewTrainHandler(cfg *config.Config, embedder training.Embedder, store database.CollectionStore,
	pipeline *recognize.Pipeline, jm *JobManager) *TrainHandler {
	return &TrainHandler{
		config:     cfg,
		embedder:   embedder,
		store:      store,
		pipeline:   pipeline,
		jobManager: jm,
	}
}

// TrainRequest represents a train start request
type TrainRequest struct {
	Root        string `json:"root"`
	Concurrency int    `json:"concurrency"`
}

// Start starts a new training job. Only one job runs at a time.
func (h *TrainHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req TrainRequest
	// empty body uses the configured root
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Root == "" {
		req.Root = h.config.Training.Root
	}
	if req.Root == "" {
		respondError(w, http.StatusBadRequest, "root is required")
		return
	}
	if req.Concurrency <= 0 {
		req.Concurrency = h.config.Training.Concurrency
	}

	ctx, cancel := context.WithCancel(context.Background())
	jobID := uuid.New().String()
	job, started := h.jobManager.StartIfIdle(jobID, req.Root, cancel)
	if !started {
		cancel()
		respondError(w, http.StatusConflict, "training job "+job.Snapshot().ID+" is already running")
		return
	}

	go h.runTrainJob(ctx, job, req)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"root":   req.Root,
		"status": string(JobStatusPending),
	})
}

// lookup returns the job named by the jobId URL parameter, writing an error response when missing.
func (h *TrainHandler) lookup(w http.ResponseWriter, r *http.Request) *TrainJob {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return nil
	}

	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return nil
	}
	return job
}

// Status returns the status of a training job
func (h *TrainHandler) Status(w http.ResponseWriter, r *http.Request) {
	job := h.lookup(w, r)
	if job == nil {
		return
	}
	respondJSON(w, http.StatusOK, job.Snapshot())
}

// Events streams job events via SSE
func (h *TrainHandler) Events(w http.ResponseWriter, r *http.Request) {
	job := h.lookup(w, r)
	if job == nil {
		return
	}
	streamJob(w, r, job)
}

// Cancel cancels a training job
func (h *TrainHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	job := h.lookup(w, r)
	if job == nil {
		return
	}
	job.Cancel()
	respondJSON(w, http.StatusOK, map[string]bool{"cancelled": true})
}

// Runs lists recent training runs recorded in PostgreSQL. Query parameter: limit.
func (h *TrainHandler) Runs(w http.ResponseWriter, r *http.Request) {
	recorder, err := database.GetTrainingRunRecorder(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	limit := constants.DefaultRunHistory
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}

	runs, err := recorder.ListRuns(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type runResponse struct {
		ID           string    `json:"id"`
		Root         string    `json:"root"`
		Labels       int       `json:"labels"`
		Embeddings   int       `json:"embeddings"`
		Images       int       `json:"images"`
		Skipped      int       `json:"skipped"`
		FailedLabels []string  `json:"failed_labels"`
		DurationMs   int64     `json:"duration_ms"`
		CreatedAt    time.Time `json:"created_at"`
	}
	out := make([]runResponse, len(runs))
	for i, run := range runs {
		out[i] = runResponse{
			ID:           run.ID.String(),
			Root:         run.Root,
			Labels:       run.Labels,
			Embeddings:   run.Embeddings,
			Images:       run.Images,
			Skipped:      run.Skipped,
			FailedLabels: run.FailedLabels,
			DurationMs:   run.Duration.Milliseconds(),
			CreatedAt:    run.CreatedAt,
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// runTrainJob trains in the background, saves the collection and swaps the
// served matcher once the new collection is stored.
func (h *TrainHandler) runTrainJob(ctx context.Context, job *TrainJob, req TrainRequest) {
	defer job.release()

	job.update(func(s *TrainJobState) { s.Status = JobStatusRunning })
	job.SendEvent(JobEvent{Type: "started", Message: "Training started"})

	if labels, err := training.DiscoverLabels(req.Root); err == nil {
		total := 0
		for _, label := range labels {
			images, _ := training.ListImages(filepath.Join(req.Root, label), h.config.Training.Extensions)
			total += len(images)
		}
		job.update(func(s *TrainJobState) { s.TotalImages = total })
		job.SendEvent(JobEvent{Type: "labels_discovered", Data: map[string]int{"labels": len(labels), "images": total}})
	}

	trainer := training.NewTrainer(h.embedder, training.Options{
		Extensions:  h.config.Training.Extensions,
		Concurrency: req.Concurrency,
		OnProgress: func(p training.Progress) {
			var state TrainJobState
			job.update(func(s *TrainJobState) {
				s.ProcessedImages++
				if p.Skipped {
					s.SkippedImages++
				}
				if s.TotalImages > 0 {
					s.Progress = s.ProcessedImages * 100 / s.TotalImages
				}
				state = *s
			})
			job.SendEvent(JobEvent{
				Type: "progress",
				Data: map[string]any{
					"label":            p.Label,
					"skipped":          p.Skipped,
					"processed_images": state.ProcessedImages,
					"total_images":     state.TotalImages,
				},
			})
		},
	})

	report, err := trainer.Train(ctx, req.Root)
	if ctx.Err() != nil {
		job.finish(JobStatusCancelled, "", nil)
		job.SendEvent(JobEvent{Type: "cancelled", Message: "Job was cancelled"})
		return
	}
	if err != nil {
		h.failJob(job, fmt.Sprintf("training failed: %v", err))
		return
	}

	matcher, err := facematch.NewMatcher(report.Collection, facematch.MatcherConfig{
		Threshold: h.config.Match.Threshold,
		Dim:       h.config.Match.Dim,
	})
	if err != nil {
		h.failJob(job, fmt.Sprintf("invalid collection: %v", err))
		return
	}
	if err := h.store.Save(ctx, report.Collection); err != nil {
		h.failJob(job, fmt.Sprintf("failed to save collection: %v", err))
		return
	}
	h.pipeline.SetMatcher(matcher)

	result := &TrainJobResult{
		Labels:     report.Collection.Labels(),
		Embeddings: report.Collection.EmbeddingCount(),
		Images:     report.Images,
		Skipped:    report.Skipped,
		Failed:     report.Failed,
		Ambiguous:  report.Ambiguous,
		DurationMs: report.Duration.Milliseconds(),
	}

	if recorder, err := database.GetTrainingRunRecorder(ctx); err == nil {
		run := &database.TrainingRun{
			Root:         req.Root,
			Labels:       len(report.Collection),
			Embeddings:   result.Embeddings,
			Images:       report.Images,
			Skipped:      len(report.Skipped),
			FailedLabels: report.Failed,
			Duration:     report.Duration,
		}
		if err := recorder.RecordRun(ctx, run); err != nil {
			log.Printf("WARNING: failed to record training run: %v", err)
		} else {
			result.RunID = run.ID.String()
		}
	}

	job.finish(JobStatusCompleted, "", result)
	job.SendEvent(JobEvent{Type: "completed", Data: result})
}

func (h *TrainHandler) failJob(job *TrainJob, message string) {
	job.finish(JobStatusFailed, message, nil)
	job.SendEvent(JobEvent{Type: "job_error", Message: message})
}
