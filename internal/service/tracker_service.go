package service

import (
	"context"
	"fmt"

	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/mcsmartbytes/job-sense/internal/tracker"
	"github.com/mcsmartbytes/job-sense/internal/workspace"
	"go.uber.org/zap"
)

// TrackerService exposes the authenticated user's job tracker
type TrackerService struct {
	workspaces *workspace.Manager
	logger     *zap.Logger
}

func NewTrackerService(workspaces *workspace.Manager, logger *zap.Logger) *TrackerService {
	return &TrackerService{
		workspaces: workspaces,
		logger:     logger,
	}
}

// ListJobs returns every tracked job, or only those in status when it is set
func (s *TrackerService) ListJobs(ctx context.Context, status string) ([]tracker.Job, error) {
	var filter domain.JobStatus
	if status != "" {
		parsed, err := domain.ParseJobStatus(status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		filter = parsed
	}

	var jobs []tracker.Job
	err := s.view(ctx, func(ws *workspace.Workspace) error {
		if filter == "" {
			jobs = ws.Tracker.Jobs()
		} else {
			jobs = ws.Tracker.JobsByStatus(filter)
		}
		return nil
	})
	return jobs, err
}

func (s *TrackerService) GetJob(ctx context.Context, id string) (*tracker.Job, error) {
	var job tracker.Job
	err := s.view(ctx, func(ws *workspace.Workspace) error {
		var err error
		job, err = ws.Tracker.Job(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateJob applies a typed update; status changes follow the job lifecycle
func (s *TrackerService) UpdateJob(ctx context.Context, id string, update *tracker.JobUpdate) (*tracker.Job, error) {
	if update.Status != nil {
		status, err := domain.ParseJobStatus(string(*update.Status))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		update.Status = &status
	}

	var job tracker.Job
	err := s.mutate(ctx, func(ws *workspace.Workspace) error {
		var err error
		job, err = ws.Tracker.UpdateJob(id, *update)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *TrackerService) DeleteJob(ctx context.Context, id string) error {
	return s.mutate(ctx, func(ws *workspace.Workspace) error {
		return ws.Tracker.RemoveJob(id)
	})
}

func (s *TrackerService) Stats(ctx context.Context) (*tracker.Stats, error) {
	var stats tracker.Stats
	err := s.view(ctx, func(ws *workspace.Workspace) error {
		stats = ws.Tracker.Stats()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// ActiveJob returns the selected job, or nil when nothing is selected
func (s *TrackerService) ActiveJob(ctx context.Context) (*tracker.Job, error) {
	var (
		job tracker.Job
		ok  bool
	)
	err := s.view(ctx, func(ws *workspace.Workspace) error {
		job, ok = ws.Tracker.ActiveJob()
		return nil
	})
	if err != nil || !ok {
		return nil, err
	}
	return &job, nil
}

// SetActiveJob selects a job; an empty id clears the selection
func (s *TrackerService) SetActiveJob(ctx context.Context, id string) (*tracker.Job, error) {
	if err := s.mutate(ctx, func(ws *workspace.Workspace) error {
		return ws.Tracker.SetActiveJob(id)
	}); err != nil {
		return nil, err
	}
	return s.ActiveJob(ctx)
}

func (s *TrackerService) AddPhase(ctx context.Context, jobID string, in *tracker.PhaseInput) (*tracker.Phase, error) {
	if in.Status != "" && !in.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown phase status %q", ErrInvalidInput, in.Status)
	}

	var phase tracker.Phase
	err := s.mutate(ctx, func(ws *workspace.Workspace) error {
		var err error
		phase, err = ws.Tracker.AddPhase(jobID, *in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &phase, nil
}

func (s *TrackerService) UpdatePhase(ctx context.Context, jobID, phaseID string, update *tracker.PhaseUpdate) (*tracker.Phase, error) {
	if update.Status != nil && !update.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown phase status %q", ErrInvalidInput, *update.Status)
	}

	var phase tracker.Phase
	err := s.mutate(ctx, func(ws *workspace.Workspace) error {
		var err error
		phase, err = ws.Tracker.UpdatePhase(jobID, phaseID, *update)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &phase, nil
}

func (s *TrackerService) RemovePhase(ctx context.Context, jobID, phaseID string) error {
	return s.mutate(ctx, func(ws *workspace.Workspace) error {
		return ws.Tracker.RemovePhase(jobID, phaseID)
	})
}

func (s *TrackerService) AddTask(ctx context.Context, jobID string, in *tracker.TaskInput) (*tracker.Task, error) {
	if in.Status != "" && !in.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown task status %q", ErrInvalidInput, in.Status)
	}

	var task tracker.Task
	err := s.mutate(ctx, func(ws *workspace.Workspace) error {
		var err error
		task, err = ws.Tracker.AddTask(jobID, *in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TrackerService) UpdateTask(ctx context.Context, jobID, taskID string, update *tracker.TaskUpdate) (*tracker.Task, error) {
	if update.Status != nil && !update.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown task status %q", ErrInvalidInput, *update.Status)
	}

	var task tracker.Task
	err := s.mutate(ctx, func(ws *workspace.Workspace) error {
		var err error
		task, err = ws.Tracker.UpdateTask(jobID, taskID, *update)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TrackerService) RemoveTask(ctx context.Context, jobID, taskID string) error {
	return s.mutate(ctx, func(ws *workspace.Workspace) error {
		return ws.Tracker.RemoveTask(jobID, taskID)
	})
}

func (s *TrackerService) AddMaterial(ctx context.Context, jobID string, in *tracker.MaterialInput) (*tracker.Material, error) {
	var material tracker.Material
	err := s.mutate(ctx, func(ws *workspace.Workspace) error {
		var err error
		material, err = ws.Tracker.AddMaterial(jobID, *in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &material, nil
}

func (s *TrackerService) RemoveMaterial(ctx context.Context, jobID, materialID string) error {
	return s.mutate(ctx, func(ws *workspace.Workspace) error {
		return ws.Tracker.RemoveMaterial(jobID, materialID)
	})
}

func (s *TrackerService) view(ctx context.Context, fn func(ws *workspace.Workspace) error) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}
	return storeError(s.workspaces.View(ctx, userID, fn))
}

func (s *TrackerService) mutate(ctx context.Context, fn func(ws *workspace.Workspace) error) error {
	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}
	return storeError(s.workspaces.Mutate(ctx, userID, fn))
}
