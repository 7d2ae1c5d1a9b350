// Package app ties the capture, watch, storage, and registry layers into
// one orchestrator shared by the CLI and the API server. Watch jobs run as
// goroutines with a buffered event channel each, so transports can stream
// progress without being able to stall the session loop.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vigil-watch/vigil/internal/capture"
	"github.com/vigil-watch/vigil/internal/logging"
	"github.com/vigil-watch/vigil/internal/registry"
	"github.com/vigil-watch/vigil/internal/retention"
	"github.com/vigil-watch/vigil/internal/sampling"
	"github.com/vigil-watch/vigil/internal/store"
	"github.com/vigil-watch/vigil/internal/watch"
)

type JobEventType string

const (
	JobEventStatus    JobEventType = "status"
	JobEventHeartbeat JobEventType = "heartbeat"
	JobEventResult    JobEventType = "result"
)

type JobStatus string

const (
	JobPending  JobStatus = "pending"
	JobRunning  JobStatus = "running"
	JobDone     JobStatus = "done"
	JobFailed   JobStatus = "failed"
	JobCanceled JobStatus = "canceled"
)

// JobEvent is one progress signal for a running job.
type JobEvent struct {
	JobID string       `json:"job_id"`
	Type  JobEventType `json:"type"`

	// For status changes
	Status JobStatus `json:"status,omitempty"`
	Error  string    `json:"error,omitempty"`

	// For heartbeats
	FramesKept int            `json:"frames_kept,omitempty"`
	State      sampling.State `json:"state,omitempty"`
	ElapsedMS  int64          `json:"elapsed_ms,omitempty"`
}

// Job is one watch session running in the background.
type Job struct {
	ID        string        `json:"id"`
	Scope     string        `json:"scope"`
	Status    JobStatus     `json:"status"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Events    chan JobEvent `json:"-"`

	// Result is set once the job reaches a terminal status.
	Result *watch.Result `json:"result,omitempty"`
}

type Orchestrator struct {
	cfg      *Config
	registry *registry.Registry
	logger   logging.Logger

	jobsMu     sync.Mutex
	jobs       map[string]*Job
	jobCancels map[string]context.CancelFunc
}

// NewOrchestrator ties together config, registry and logger. reg may be
// nil; sessions then run without being indexed.
func NewOrchestrator(cfg *Config, reg *registry.Registry, logger logging.Logger) *Orchestrator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewStdoutLogger("Orchestrator")
	}
	return &Orchestrator{
		cfg:      cfg,
		registry: reg,
		logger:   logger,
	}
}

func (o *Orchestrator) emitJobEvent(jobID string, ev JobEvent) {
	o.jobsMu.Lock()
	job, ok := o.jobs[jobID]
	o.jobsMu.Unlock()
	if !ok || job == nil || job.Events == nil {
		return
	}

	// Non-blocking send; drop if buffer is full.
	select {
	case job.Events <- ev:
	default:
	}
}

func (o *Orchestrator) setJob(job *Job) {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	if o.jobs == nil {
		o.jobs = make(map[string]*Job)
	}
	o.jobs[job.ID] = job
}

func (o *Orchestrator) setCancel(jobID string, cancel context.CancelFunc) {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	if o.jobCancels == nil {
		o.jobCancels = make(map[string]context.CancelFunc)
	}
	o.jobCancels[jobID] = cancel
}

func (o *Orchestrator) deleteCancel(jobID string) {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	delete(o.jobCancels, jobID)
}

func (o *Orchestrator) getCancel(jobID string) context.CancelFunc {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	return o.jobCancels[jobID]
}

// RunWatch executes one watch session synchronously: constructs the frame
// source and store, runs the session, and records the outcome in the
// registry. onHeartbeat may be nil.
func (o *Orchestrator) RunWatch(ctx context.Context, scopeStr string, opts watch.Options, onHeartbeat func(watch.Heartbeat)) (*watch.Result, error) {
	scope, err := capture.ParseScope(scopeStr)
	if err != nil {
		return nil, err
	}

	src, err := capture.NewFrameSource(o.cfg.CaptureCfg, scope, o.logger)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	sessionID := uuid.New().String()
	st, err := store.NewFSStore(o.cfg.StorageRoot, sessionID, o.logger)
	if err != nil {
		return nil, err
	}

	sess, err := watch.NewSession(scope, opts, src, st, o.logger)
	if err != nil {
		return nil, err
	}
	sess.OnHeartbeat = onHeartbeat

	if o.registry != nil {
		if err := o.registry.CreateSession(ctx, sess.ID(), scope.String(), st.Dir(), time.Now()); err != nil {
			return nil, err
		}
	}

	res, runErr := sess.Run(ctx)

	if o.registry != nil && res != nil {
		// Recording must not be interrupted by a canceled watch context.
		recCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		for _, kf := range res.Kept {
			if err := o.registry.AddFrame(recCtx, res.SessionID, kf); err != nil {
				o.logger.Warn("failed to index kept frame",
					logging.Field{Key: "session_id", Value: res.SessionID},
					logging.Field{Key: "seq", Value: kf.Seq},
					logging.Field{Key: "error", Value: err.Error()})
			}
		}
		errMsg := ""
		if runErr != nil {
			errMsg = runErr.Error()
		}
		if err := o.registry.FinishSession(recCtx, res, errMsg); err != nil {
			o.logger.Warn("failed to finalize session in registry",
				logging.Field{Key: "session_id", Value: res.SessionID},
				logging.Field{Key: "error", Value: err.Error()})
		}
	}

	return res, runErr
}

// StartWatchJob runs a watch session in the background and returns
// immediately. Progress streams over the job's Events channel, which is
// closed once the job reaches a terminal status.
func (o *Orchestrator) StartWatchJob(ctx context.Context, scopeStr string, opts watch.Options) (*Job, error) {
	if _, err := capture.ParseScope(scopeStr); err != nil {
		return nil, err
	}

	jobID := uuid.New().String()
	now := time.Now().UTC()

	job := &Job{
		ID:        jobID,
		Scope:     scopeStr,
		Status:    JobPending,
		StartedAt: now,
		Events:    make(chan JobEvent, 16),
	}
	o.setJob(job)

	jobCtx, cancel := context.WithCancel(ctx)
	o.setCancel(jobID, cancel)

	o.emitJobEvent(jobID, JobEvent{
		JobID:  jobID,
		Type:   JobEventStatus,
		Status: JobPending,
	})

	go func() {
		defer func() {
			o.jobsMu.Lock()
			if j, ok := o.jobs[jobID]; ok {
				j.EndedAt = time.Now().UTC()
			}
			o.jobsMu.Unlock()
			o.deleteCancel(jobID)

			// Close events channel so websocket loops terminate cleanly.
			o.jobsMu.Lock()
			j := o.jobs[jobID]
			o.jobsMu.Unlock()
			if j != nil && j.Events != nil {
				close(j.Events)
			}
		}()

		o.jobsMu.Lock()
		if j, ok := o.jobs[jobID]; ok {
			j.Status = JobRunning
		}
		o.jobsMu.Unlock()
		o.emitJobEvent(jobID, JobEvent{
			JobID:  jobID,
			Type:   JobEventStatus,
			Status: JobRunning,
		})

		res, err := o.RunWatch(jobCtx, scopeStr, opts, func(hb watch.Heartbeat) {
			o.emitJobEvent(jobID, JobEvent{
				JobID:      jobID,
				Type:       JobEventHeartbeat,
				FramesKept: hb.FramesKept,
				State:      hb.State,
				ElapsedMS:  hb.Elapsed.Milliseconds(),
			})
		})

		if err != nil {
			select {
			case <-jobCtx.Done():
				o.jobsMu.Lock()
				if j, ok := o.jobs[jobID]; ok {
					j.Status = JobCanceled
					j.Error = jobCtx.Err().Error()
					j.Result = res
				}
				o.jobsMu.Unlock()
				o.emitJobEvent(jobID, JobEvent{
					JobID:  jobID,
					Type:   JobEventStatus,
					Status: JobCanceled,
					Error:  jobCtx.Err().Error(),
				})
			default:
				o.jobsMu.Lock()
				if j, ok := o.jobs[jobID]; ok {
					j.Status = JobFailed
					j.Error = err.Error()
					j.Result = res
				}
				o.jobsMu.Unlock()
				o.emitJobEvent(jobID, JobEvent{
					JobID:  jobID,
					Type:   JobEventStatus,
					Status: JobFailed,
					Error:  err.Error(),
				})
			}
			return
		}

		// A canceled session ends gracefully with a nil error and a
		// partial result; report it as canceled, not done.
		if jobCtx.Err() != nil {
			o.jobsMu.Lock()
			if j, ok := o.jobs[jobID]; ok {
				j.Status = JobCanceled
				j.Error = jobCtx.Err().Error()
				j.Result = res
			}
			o.jobsMu.Unlock()
			o.emitJobEvent(jobID, JobEvent{
				JobID:  jobID,
				Type:   JobEventStatus,
				Status: JobCanceled,
				Error:  jobCtx.Err().Error(),
			})
			return
		}

		o.jobsMu.Lock()
		if j, ok := o.jobs[jobID]; ok {
			j.Status = JobDone
			j.Result = res
		}
		o.jobsMu.Unlock()
		o.emitJobEvent(jobID, JobEvent{
			JobID:  jobID,
			Type:   JobEventResult,
			Status: JobDone,
		})
	}()

	return job, nil
}

// CancelJob cancels a running job. Unknown IDs are ignored.
func (o *Orchestrator) CancelJob(jobID string) {
	cancel := o.getCancel(jobID)
	if cancel != nil {
		cancel()
	}
}

// GetJob returns a job by ID, or nil if unknown.
func (o *Orchestrator) GetJob(jobID string) *Job {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	return o.jobs[jobID]
}

// ListJobs returns every known job, running or finished.
func (o *Orchestrator) ListJobs() []*Job {
	o.jobsMu.Lock()
	defer o.jobsMu.Unlock()
	out := make([]*Job, 0, len(o.jobs))
	for _, j := range o.jobs {
		out = append(out, j)
	}
	return out
}

// ListSessions returns past sessions from the registry, newest first.
func (o *Orchestrator) ListSessions(ctx context.Context, limit int) ([]registry.Session, error) {
	return o.registry.ListSessions(ctx, limit)
}

// GetSession returns one past session by ID.
func (o *Orchestrator) GetSession(ctx context.Context, id string) (*registry.Session, error) {
	return o.registry.GetSession(ctx, id)
}

// ListSessionFrames returns the kept frames of a past session.
func (o *Orchestrator) ListSessionFrames(ctx context.Context, id string) ([]registry.FrameRow, error) {
	return o.registry.ListFrames(ctx, id)
}

// CleanSessions sweeps old session directories per the retention config.
func (o *Orchestrator) CleanSessions(ctx context.Context, cfg retention.Config) (*retention.Report, error) {
	return retention.Sweep(ctx, o.cfg.StorageRoot, cfg, o.registry, o.logger)
}

// Close cancels every running job.
func (o *Orchestrator) Close() {
	o.jobsMu.Lock()
	cancels := make([]context.CancelFunc, 0, len(o.jobCancels))
	for _, c := range o.jobCancels {
		cancels = append(cancels, c)
	}
	o.jobsMu.Unlock()
	for _, c := range cancels {
		c()
	}
}
