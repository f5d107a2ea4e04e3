// Package tracker keeps the execution-side jobs of one user: phases, tasks,
// materials and the status roll-up across jobs.
package tracker

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/mcsmartbytes/job-sense/internal/pipeline"
	"github.com/mcsmartbytes/job-sense/internal/rollup"
	"github.com/shopspring/decimal"
)

// Store holds the jobs of one user. It is safe for concurrent use.
// Mutations addressed to an unknown job leave the state untouched and
// return ErrJobNotFound.
type Store struct {
	mu          sync.RWMutex
	jobs        []Job
	activeJobID string
	now         func() time.Time
	newID       func() string
}

type Option func(*Store)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator replaces the uuid generator
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		s.newID = newID
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateJobFromBid turns a bid into a planned job with the default phases.
// Calling it twice for one bid creates two jobs. Inputs are expected to have
// passed LineItemInput.Validate.
func (s *Store) CreateJobFromBid(bid pipeline.Bid, lineItems []LineItemInput) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	jobID := s.newID()

	phases := make([]Phase, 0, len(DefaultPhases))
	for _, p := range DefaultPhases {
		phases = append(phases, Phase{
			ID:          s.newID(),
			JobID:       jobID,
			Name:        p.Name,
			Description: p.Description,
			SortOrder:   p.SortOrder,
			Status:      PhaseStatusPending,
			CreatedAt:   now,
		})
	}

	items := make([]LineItem, 0, len(lineItems))
	for _, in := range lineItems {
		items = append(items, LineItem{
			ID:            s.newID(),
			JobID:         jobID,
			ServiceID:     in.ServiceID,
			ServiceName:   in.ServiceName,
			Quantity:      in.Quantity,
			Unit:          in.Unit,
			Rate:          in.Rate,
			Subtotal:      rollup.LineItemTotal(in.Quantity, in.Rate),
			LaborHours:    in.LaborHours,
			LaborCost:     in.LaborCost,
			MaterialCost:  in.MaterialCost,
			EquipmentCost: in.EquipmentCost,
		})
	}

	wonDate := now
	job := Job{
		ID:              jobID,
		Name:            bid.Name,
		BidID:           bid.ID,
		ClientName:      bid.CustomerName,
		Status:          domain.JobStatusPlanned,
		PropertyAddress: bid.CustomerAddress,
		EstimatedValue:  bid.Value(),
		Margin:          DefaultMargin,
		LineItems:       items,
		WonDate:         &wonDate,
		Phases:          phases,
		Tasks:           []Task{},
		Materials:       []Material{},
		Notes:           bid.Description,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	s.jobs = append(s.jobs, job)
	return job.clone()
}

// SetJobs replaces the working set
func (s *Store) SetJobs(jobs []Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = cloneJobs(jobs)
}

// AddJob appends a job as given, filling in an id and timestamps when missing
func (s *Store) AddJob(job Job) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if job.ID == "" {
		job.ID = s.newID()
	}
	if job.Status == "" {
		job.Status = domain.JobStatusPlanned
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	s.jobs = append(s.jobs, job.clone())
	return job.clone()
}

// Jobs returns every job in creation order
func (s *Store) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneJobs(s.jobs)
}

func (s *Store) Job(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return Job{}, ErrJobNotFound
	}
	return s.jobs[i].clone(), nil
}

// UpdateJob applies update. Status changes must follow the job lifecycle;
// entering active or completed stamps the start or end date when unset.
func (s *Store) UpdateJob(id string, update JobUpdate) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Job{}, ErrJobNotFound
	}
	job := s.jobs[i]
	now := s.now()

	if update.Status != nil && *update.Status != job.Status {
		if !job.Status.CanTransitionTo(*update.Status) {
			return Job{}, ErrInvalidTransition
		}
		job.Status = *update.Status
		switch job.Status {
		case domain.JobStatusActive:
			if job.StartDate == nil && update.StartDate == nil {
				start := now
				job.StartDate = &start
			}
		case domain.JobStatusCompleted, domain.JobStatusCancelled:
			if job.EndDate == nil && update.EndDate == nil {
				end := now
				job.EndDate = &end
			}
		}
	}

	setString(&job.Name, update.Name)
	setString(&job.ClientName, update.ClientName)
	setString(&job.ClientEmail, update.ClientEmail)
	setString(&job.ClientPhone, update.ClientPhone)
	setString(&job.PropertyAddress, update.PropertyAddress)
	setString(&job.City, update.City)
	setString(&job.State, update.State)
	setString(&job.Zip, update.Zip)
	setString(&job.Notes, update.Notes)
	if update.TotalArea != nil {
		job.TotalArea = update.TotalArea
	}
	if update.TotalPerimeter != nil {
		job.TotalPerimeter = update.TotalPerimeter
	}
	if update.EstimatedValue != nil {
		job.EstimatedValue = *update.EstimatedValue
	}
	if update.ActualCost != nil {
		job.ActualCost = update.ActualCost
	}
	if update.Margin != nil {
		job.Margin = *update.Margin
	}
	if update.StartDate != nil {
		job.StartDate = update.StartDate
	}
	if update.EndDate != nil {
		job.EndDate = update.EndDate
	}

	job.UpdatedAt = now
	s.jobs[i] = job
	return job.clone(), nil
}

// RemoveJob deletes a job and clears the active selection if it pointed at it
func (s *Store) RemoveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrJobNotFound
	}
	s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
	if s.activeJobID == id {
		s.activeJobID = ""
	}
	return nil
}

// SetActiveJob selects a job; an empty id clears the selection
func (s *Store) SetActiveJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" && s.indexOf(id) < 0 {
		return ErrJobNotFound
	}
	s.activeJobID = id
	return nil
}

func (s *Store) ActiveJob() (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.activeJobID == "" {
		return Job{}, false
	}
	i := s.indexOf(s.activeJobID)
	if i < 0 {
		return Job{}, false
	}
	return s.jobs[i].clone(), true
}

func (s *Store) AddPhase(jobID string, in PhaseInput) (Phase, error) {
	var phase Phase
	err := s.mutate(jobID, func(job *Job, now time.Time) error {
		status := in.Status
		if status == "" {
			status = PhaseStatusPending
		}
		phase = Phase{
			ID:          s.newID(),
			JobID:       job.ID,
			Name:        in.Name,
			Description: in.Description,
			SortOrder:   in.SortOrder,
			Status:      status,
			CreatedAt:   now,
		}
		job.Phases = append(job.Phases, phase)
		return nil
	})
	return phase, err
}

func (s *Store) UpdatePhase(jobID, phaseID string, update PhaseUpdate) (Phase, error) {
	var phase Phase
	err := s.mutate(jobID, func(job *Job, _ time.Time) error {
		for i := range job.Phases {
			if job.Phases[i].ID != phaseID {
				continue
			}
			p := &job.Phases[i]
			setString(&p.Name, update.Name)
			setString(&p.Description, update.Description)
			if update.SortOrder != nil {
				p.SortOrder = *update.SortOrder
			}
			if update.Status != nil {
				p.Status = *update.Status
			}
			phase = *p
			return nil
		}
		return ErrPhaseNotFound
	})
	return phase, err
}

func (s *Store) RemovePhase(jobID, phaseID string) error {
	return s.mutate(jobID, func(job *Job, _ time.Time) error {
		for i := range job.Phases {
			if job.Phases[i].ID == phaseID {
				job.Phases = append(job.Phases[:i], job.Phases[i+1:]...)
				return nil
			}
		}
		return ErrPhaseNotFound
	})
}

func (s *Store) AddTask(jobID string, in TaskInput) (Task, error) {
	var task Task
	err := s.mutate(jobID, func(job *Job, now time.Time) error {
		status := in.Status
		if status == "" {
			status = TaskStatusTodo
		}
		task = Task{
			ID:             s.newID(),
			JobID:          job.ID,
			PhaseID:        in.PhaseID,
			Name:           in.Name,
			Description:    in.Description,
			Status:         status,
			Assignee:       in.Assignee,
			DueDate:        in.DueDate,
			EstimatedHours: in.EstimatedHours,
			SortOrder:      in.SortOrder,
			Notes:          in.Notes,
			CreatedAt:      now,
		}
		job.Tasks = append(job.Tasks, task)
		return nil
	})
	return task, err
}

func (s *Store) UpdateTask(jobID, taskID string, update TaskUpdate) (Task, error) {
	var task Task
	err := s.mutate(jobID, func(job *Job, _ time.Time) error {
		for i := range job.Tasks {
			if job.Tasks[i].ID != taskID {
				continue
			}
			t := &job.Tasks[i]
			setString(&t.PhaseID, update.PhaseID)
			setString(&t.Name, update.Name)
			setString(&t.Description, update.Description)
			setString(&t.Assignee, update.Assignee)
			setString(&t.Notes, update.Notes)
			if update.Status != nil {
				t.Status = *update.Status
			}
			if update.DueDate != nil {
				t.DueDate = update.DueDate
			}
			if update.EstimatedHours != nil {
				t.EstimatedHours = update.EstimatedHours
			}
			if update.SortOrder != nil {
				t.SortOrder = *update.SortOrder
			}
			task = *t
			return nil
		}
		return ErrTaskNotFound
	})
	return task, err
}

func (s *Store) RemoveTask(jobID, taskID string) error {
	return s.mutate(jobID, func(job *Job, _ time.Time) error {
		for i := range job.Tasks {
			if job.Tasks[i].ID == taskID {
				job.Tasks = append(job.Tasks[:i], job.Tasks[i+1:]...)
				return nil
			}
		}
		return ErrTaskNotFound
	})
}

func (s *Store) AddMaterial(jobID string, in MaterialInput) (Material, error) {
	var material Material
	err := s.mutate(jobID, func(job *Job, now time.Time) error {
		material = Material{
			ID:        s.newID(),
			JobID:     job.ID,
			Name:      in.Name,
			Quantity:  in.Quantity,
			Unit:      in.Unit,
			UnitCost:  in.UnitCost,
			Vendor:    in.Vendor,
			Notes:     in.Notes,
			CreatedAt: now,
		}
		job.Materials = append(job.Materials, material)
		return nil
	})
	return material, err
}

func (s *Store) RemoveMaterial(jobID, materialID string) error {
	return s.mutate(jobID, func(job *Job, _ time.Time) error {
		for i := range job.Materials {
			if job.Materials[i].ID == materialID {
				job.Materials = append(job.Materials[:i], job.Materials[i+1:]...)
				return nil
			}
		}
		return ErrMaterialNotFound
	})
}

// JobsByStatus returns the jobs whose status equals status
func (s *Store) JobsByStatus(status domain.JobStatus) []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Job, 0)
	for _, j := range s.jobs {
		if j.Status == status {
			out = append(out, j.clone())
		}
	}
	return out
}

// Stats counts jobs by status. Revenue only includes completed jobs.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{TotalJobs: len(s.jobs), TotalRevenue: decimal.Zero}
	for _, j := range s.jobs {
		switch j.Status {
		case domain.JobStatusActive:
			stats.ActiveJobs++
		case domain.JobStatusCompleted:
			stats.CompletedJobs++
			stats.TotalRevenue = stats.TotalRevenue.Add(j.EstimatedValue)
		}
	}

	denominator := stats.CompletedJobs
	if denominator < 1 {
		denominator = 1
	}
	stats.AverageJobValue = stats.TotalRevenue.Div(decimal.NewFromInt(int64(denominator))).Round(rollup.MoneyPlaces)
	return stats
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Jobs: cloneJobs(s.jobs), ActiveJobID: s.activeJobID}
}

func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = cloneJobs(snap.Jobs)
	s.activeJobID = snap.ActiveJobID
}

// mutate runs fn against a copy of the job and commits it, with a fresh
// UpdatedAt, only when fn succeeds.
func (s *Store) mutate(jobID string, fn func(job *Job, now time.Time) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(jobID)
	if i < 0 {
		return ErrJobNotFound
	}

	now := s.now()
	job := s.jobs[i].clone()
	if err := fn(&job, now); err != nil {
		return err
	}
	job.UpdatedAt = now
	s.jobs[i] = job
	return nil
}

func (s *Store) indexOf(id string) int {
	for i := range s.jobs {
		if s.jobs[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneJobs(jobs []Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.clone())
	}
	return out
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
