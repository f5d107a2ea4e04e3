package tracker

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrPhaseNotFound     = errors.New("phase not found")
	ErrTaskNotFound      = errors.New("task not found")
	ErrMaterialNotFound  = errors.New("material not found")
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrInvalidLineItem   = errors.New("invalid line item")
)

// DefaultMargin is applied to jobs created from a bid
var DefaultMargin = decimal.RequireFromString("0.25")

// PhaseStatus is caller-driven; any transition is accepted
type PhaseStatus string

const (
	PhaseStatusPending    PhaseStatus = "pending"
	PhaseStatusInProgress PhaseStatus = "in_progress"
	PhaseStatusCompleted  PhaseStatus = "completed"
)

func (s PhaseStatus) IsValid() bool {
	switch s {
	case PhaseStatusPending, PhaseStatusInProgress, PhaseStatusCompleted:
		return true
	}
	return false
}

// TaskStatus is caller-driven; any transition is accepted
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusDone       TaskStatus = "done"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusBlocked, TaskStatusDone:
		return true
	}
	return false
}

// DefaultPhases is the checklist every new job starts with
var DefaultPhases = []PhaseInput{
	{Name: "Pre-Job", Description: "Setup and preparation", SortOrder: 0},
	{Name: "Mobilization", Description: "Equipment and crew arrival", SortOrder: 1},
	{Name: "Execution", Description: "Main work activities", SortOrder: 2},
	{Name: "Quality Check", Description: "Inspection and punch list", SortOrder: 3},
	{Name: "Closeout", Description: "Final cleanup and documentation", SortOrder: 4},
}

type Phase struct {
	ID          string      `json:"id"`
	JobID       string      `json:"jobId"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	SortOrder   int         `json:"sortOrder"`
	Status      PhaseStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type Task struct {
	ID             string           `json:"id"`
	JobID          string           `json:"jobId"`
	PhaseID        string           `json:"phaseId,omitempty"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	Status         TaskStatus       `json:"status"`
	Assignee       string           `json:"assignee,omitempty"`
	DueDate        *time.Time       `json:"dueDate,omitempty"`
	EstimatedHours *decimal.Decimal `json:"estimatedHours,omitempty"`
	SortOrder      int              `json:"sortOrder"`
	Notes          string           `json:"notes,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

type Material struct {
	ID        string           `json:"id"`
	JobID     string           `json:"jobId"`
	Name      string           `json:"name"`
	Quantity  *decimal.Decimal `json:"quantity,omitempty"`
	Unit      string           `json:"unit,omitempty"`
	UnitCost  *decimal.Decimal `json:"unitCost,omitempty"`
	Vendor    string           `json:"vendor,omitempty"`
	Notes     string           `json:"notes,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// LineItem is a priced service carried over from the estimate
type LineItem struct {
	ID            string           `json:"id"`
	JobID         string           `json:"jobId"`
	ServiceID     string           `json:"serviceId,omitempty"`
	ServiceName   string           `json:"serviceName"`
	Quantity      decimal.Decimal  `json:"quantity"`
	Unit          string           `json:"unit"`
	Rate          decimal.Decimal  `json:"rate"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	LaborHours    *decimal.Decimal `json:"laborHours,omitempty"`
	LaborCost     *decimal.Decimal `json:"laborCost,omitempty"`
	MaterialCost  *decimal.Decimal `json:"materialCost,omitempty"`
	EquipmentCost *decimal.Decimal `json:"equipmentCost,omitempty"`
}

// LineItemInput is a priced service supplied when a bid becomes a job.
// The subtotal is always derived from quantity and rate.
type LineItemInput struct {
	ServiceID     string           `json:"serviceId,omitempty" validate:"max=100"`
	ServiceName   string           `json:"serviceName" validate:"required,max=200"`
	Quantity      decimal.Decimal  `json:"quantity" validate:"gte=0"`
	Unit          string           `json:"unit" validate:"required,max=50"`
	Rate          decimal.Decimal  `json:"rate" validate:"gte=0"`
	LaborHours    *decimal.Decimal `json:"laborHours,omitempty"`
	LaborCost     *decimal.Decimal `json:"laborCost,omitempty"`
	MaterialCost  *decimal.Decimal `json:"materialCost,omitempty"`
	EquipmentCost *decimal.Decimal `json:"equipmentCost,omitempty"`
}

// Validate rejects blank names and negative amounts
func (in LineItemInput) Validate() error {
	if strings.TrimSpace(in.ServiceName) == "" {
		return fmt.Errorf("%w: serviceName is required", ErrInvalidLineItem)
	}
	if in.Quantity.IsNegative() {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidLineItem)
	}
	if in.Rate.IsNegative() {
		return fmt.Errorf("%w: rate must not be negative", ErrInvalidLineItem)
	}
	optional := []struct {
		name  string
		value *decimal.Decimal
	}{
		{"laborHours", in.LaborHours},
		{"laborCost", in.LaborCost},
		{"materialCost", in.MaterialCost},
		{"equipmentCost", in.EquipmentCost},
	}
	for _, o := range optional {
		if o.value != nil && o.value.IsNegative() {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidLineItem, o.name)
		}
	}
	return nil
}

// Job is an execution record created from a won bid
type Job struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	BidID           string           `json:"bidId,omitempty"`
	ClientName      string           `json:"clientName,omitempty"`
	ClientEmail     string           `json:"clientEmail,omitempty"`
	ClientPhone     string           `json:"clientPhone,omitempty"`
	Status          domain.JobStatus `json:"status"`
	PropertyAddress string           `json:"propertyAddress,omitempty"`
	City            string           `json:"city,omitempty"`
	State           string           `json:"state,omitempty"`
	Zip             string           `json:"zip,omitempty"`
	TotalArea       *decimal.Decimal `json:"totalArea,omitempty"`
	TotalPerimeter  *decimal.Decimal `json:"totalPerimeter,omitempty"`
	EstimatedValue  decimal.Decimal  `json:"estimatedValue"`
	ActualCost      *decimal.Decimal `json:"actualCost,omitempty"`
	Margin          decimal.Decimal  `json:"margin"`
	LineItems       []LineItem       `json:"lineItems"`
	StartDate       *time.Time       `json:"startDate,omitempty"`
	EndDate         *time.Time       `json:"endDate,omitempty"`
	WonDate         *time.Time       `json:"wonDate,omitempty"`
	Phases          []Phase          `json:"phases"`
	Tasks           []Task           `json:"tasks"`
	Materials       []Material       `json:"materials"`
	Notes           string           `json:"notes,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

func (j Job) clone() Job {
	c := j
	c.LineItems = append(make([]LineItem, 0, len(j.LineItems)), j.LineItems...)
	c.Phases = append(make([]Phase, 0, len(j.Phases)), j.Phases...)
	c.Tasks = append(make([]Task, 0, len(j.Tasks)), j.Tasks...)
	c.Materials = append(make([]Material, 0, len(j.Materials)), j.Materials...)
	return c
}

// JobUpdate lists every mutable job field; nil fields are left unchanged
type JobUpdate struct {
	Name            *string           `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	ClientName      *string           `json:"clientName,omitempty" validate:"omitempty,max=200"`
	ClientEmail     *string           `json:"clientEmail,omitempty" validate:"omitempty,email"`
	ClientPhone     *string           `json:"clientPhone,omitempty" validate:"omitempty,max=50"`
	Status          *domain.JobStatus `json:"status,omitempty"`
	PropertyAddress *string           `json:"propertyAddress,omitempty" validate:"omitempty,max=500"`
	City            *string           `json:"city,omitempty" validate:"omitempty,max=100"`
	State           *string           `json:"state,omitempty" validate:"omitempty,max=50"`
	Zip             *string           `json:"zip,omitempty" validate:"omitempty,max=20"`
	TotalArea       *decimal.Decimal  `json:"totalArea,omitempty"`
	TotalPerimeter  *decimal.Decimal  `json:"totalPerimeter,omitempty"`
	EstimatedValue  *decimal.Decimal  `json:"estimatedValue,omitempty"`
	ActualCost      *decimal.Decimal  `json:"actualCost,omitempty"`
	Margin          *decimal.Decimal  `json:"margin,omitempty"`
	StartDate       *time.Time        `json:"startDate,omitempty"`
	EndDate         *time.Time        `json:"endDate,omitempty"`
	Notes           *string           `json:"notes,omitempty"`
}

type PhaseInput struct {
	Name        string      `json:"name" validate:"required,max=200"`
	Description string      `json:"description,omitempty"`
	SortOrder   int         `json:"sortOrder"`
	Status      PhaseStatus `json:"status,omitempty"`
}

type PhaseUpdate struct {
	Name        *string      `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string      `json:"description,omitempty"`
	SortOrder   *int         `json:"sortOrder,omitempty"`
	Status      *PhaseStatus `json:"status,omitempty"`
}

type TaskInput struct {
	PhaseID        string           `json:"phaseId,omitempty"`
	Name           string           `json:"name" validate:"required,max=200"`
	Description    string           `json:"description,omitempty"`
	Status         TaskStatus       `json:"status,omitempty"`
	Assignee       string           `json:"assignee,omitempty" validate:"max=200"`
	DueDate        *time.Time       `json:"dueDate,omitempty"`
	EstimatedHours *decimal.Decimal `json:"estimatedHours,omitempty"`
	SortOrder      int              `json:"sortOrder"`
	Notes          string           `json:"notes,omitempty"`
}

type TaskUpdate struct {
	PhaseID        *string          `json:"phaseId,omitempty"`
	Name           *string          `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description    *string          `json:"description,omitempty"`
	Status         *TaskStatus      `json:"status,omitempty"`
	Assignee       *string          `json:"assignee,omitempty" validate:"omitempty,max=200"`
	DueDate        *time.Time       `json:"dueDate,omitempty"`
	EstimatedHours *decimal.Decimal `json:"estimatedHours,omitempty"`
	SortOrder      *int             `json:"sortOrder,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
}

type MaterialInput struct {
	Name     string           `json:"name" validate:"required,max=200"`
	Quantity *decimal.Decimal `json:"quantity,omitempty"`
	Unit     string           `json:"unit,omitempty" validate:"max=50"`
	UnitCost *decimal.Decimal `json:"unitCost,omitempty"`
	Vendor   string           `json:"vendor,omitempty" validate:"max=200"`
	Notes    string           `json:"notes,omitempty"`
}

// Stats aggregates jobs by status
type Stats struct {
	TotalJobs       int             `json:"totalJobs"`
	ActiveJobs      int             `json:"activeJobs"`
	CompletedJobs   int             `json:"completedJobs"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	AverageJobValue decimal.Decimal `json:"averageJobValue"`
}

// Snapshot is the persisted form of a Store
type Snapshot struct {
	Jobs        []Job  `json:"jobs"`
	ActiveJobID string `json:"activeJobId,omitempty"`
}
